package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.Observe("inference_time", true, nil, time.Millisecond)
	c.Observe("inference_time", false, nil, time.Millisecond)
	c.Observe("inference_time", false, nil, time.Millisecond)
	c.Observe("inference_time", true, errors.New("boom"), time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.runs.WithLabelValues("inference_time", OutcomePass)))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.runs.WithLabelValues("inference_time", OutcomeFail)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runs.WithLabelValues("inference_time", OutcomeError)))
	assert.Equal(t, 1, testutil.CollectAndCount(c.duration))
}

func TestDoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)

	_, err = NewCollector(reg)
	assert.Error(t, err)
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.Observe("anything", true, nil, time.Second)
}
