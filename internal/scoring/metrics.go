package scoring

import (
	"context"
	"fmt"
	"math"

	"gotrubric/domain/core"
	"gotrubric/domain/frame"
	"gotrubric/ports"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// positiveLabel is the class treated as positive by binary metrics
const positiveLabel = 1.0

// PredictionMetric compares raw labels with raw predictions
type PredictionMetric func(yTrue, yPred []any) (float64, error)

// FloatMetric compares numeric labels with numeric predictions
type FloatMetric func(yTrue, yPred []float64) (float64, error)

// FromPredictions turns a metric over predictions into a Scorer
func FromPredictions(metric PredictionMetric) ports.Scorer {
	return func(ctx context.Context, model ports.Model, X *frame.Frame, y frame.Series) (float64, error) {
		preds, err := predict(ctx, model, X, y)
		if err != nil {
			return 0, err
		}
		return metric(y.Values, preds)
	}
}

// FromFloatPredictions turns a numeric metric into a Scorer
func FromFloatPredictions(metric FloatMetric) ports.Scorer {
	return func(ctx context.Context, model ports.Model, X *frame.Frame, y frame.Series) (float64, error) {
		preds, err := predict(ctx, model, X, y)
		if err != nil {
			return 0, err
		}
		truth, err := y.Floats()
		if err != nil {
			return 0, err
		}
		p, err := frame.ToFloats(preds)
		if err != nil {
			return 0, err
		}
		return metric(truth, p)
	}
}

func predict(ctx context.Context, model ports.Model, X *frame.Frame, y frame.Series) ([]any, error) {
	if y.Len() == 0 {
		return nil, fmt.Errorf("%w: cannot score zero rows", core.ErrEmptyData)
	}
	preds, err := model.Predict(ctx, X)
	if err != nil {
		return nil, err
	}
	if len(preds) != y.Len() {
		return nil, fmt.Errorf("%w: model returned %d predictions for %d rows", core.ErrType, len(preds), y.Len())
	}
	for i, p := range preds {
		preds[i] = frame.Normalize(p)
	}
	return preds, nil
}

func negate(metric FloatMetric) FloatMetric {
	return func(yTrue, yPred []float64) (float64, error) {
		v, err := metric(yTrue, yPred)
		return -v, err
	}
}

func accuracy(yTrue, yPred []any) (float64, error) {
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue)), nil
}

func balancedAccuracy(yTrue, yPred []any) (float64, error) {
	classes := frame.Distinct(yTrue)
	recalls := make([]float64, 0, len(classes))
	for _, class := range classes {
		var hit, total float64
		for i := range yTrue {
			if yTrue[i] != class {
				continue
			}
			total++
			if yPred[i] == class {
				hit++
			}
		}
		recalls = append(recalls, hit/total)
	}
	return stat.Mean(recalls, nil), nil
}

type confusion struct {
	tp, fp, fn float64
}

func binaryConfusion(yTrue, yPred []any) confusion {
	var c confusion
	for i := range yTrue {
		truePos := yTrue[i] == positiveLabel
		predPos := yPred[i] == positiveLabel
		switch {
		case truePos && predPos:
			c.tp++
		case predPos:
			c.fp++
		case truePos:
			c.fn++
		}
	}
	return c
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func precision(yTrue, yPred []any) (float64, error) {
	c := binaryConfusion(yTrue, yPred)
	return ratio(c.tp, c.tp+c.fp), nil
}

func recall(yTrue, yPred []any) (float64, error) {
	c := binaryConfusion(yTrue, yPred)
	return ratio(c.tp, c.tp+c.fn), nil
}

func f1(yTrue, yPred []any) (float64, error) {
	c := binaryConfusion(yTrue, yPred)
	return ratio(2*c.tp, 2*c.tp+c.fp+c.fn), nil
}

func residuals(yTrue, yPred []float64) []float64 {
	res := make([]float64, len(yTrue))
	floats.SubTo(res, yTrue, yPred)
	return res
}

// constantTargetScore mirrors the usual convention for r2 and explained
// variance on a constant target: perfect predictions score 1, anything else 0
func constantTargetScore(res []float64) float64 {
	for _, r := range res {
		if r != 0 {
			return 0
		}
	}
	return 1
}

func r2(yTrue, yPred []float64) (float64, error) {
	if stat.Variance(yTrue, nil) == 0 || len(yTrue) < 2 {
		return constantTargetScore(residuals(yTrue, yPred)), nil
	}
	return stat.RSquaredFrom(yPred, yTrue, nil), nil
}

func explainedVariance(yTrue, yPred []float64) (float64, error) {
	res := residuals(yTrue, yPred)
	if len(yTrue) < 2 || stat.Variance(yTrue, nil) == 0 {
		return constantTargetScore(res), nil
	}
	return 1 - stat.Variance(res, nil)/stat.Variance(yTrue, nil), nil
}

func meanSquaredError(yTrue, yPred []float64) (float64, error) {
	res := residuals(yTrue, yPred)
	return floats.Dot(res, res) / float64(len(res)), nil
}

func rootMeanSquaredError(yTrue, yPred []float64) (float64, error) {
	mse, err := meanSquaredError(yTrue, yPred)
	return math.Sqrt(mse), err
}

func absResiduals(yTrue, yPred []float64) []float64 {
	res := residuals(yTrue, yPred)
	for i, r := range res {
		res[i] = math.Abs(r)
	}
	return res
}

func meanAbsoluteError(yTrue, yPred []float64) (float64, error) {
	return stat.Mean(absResiduals(yTrue, yPred), nil), nil
}

func medianAbsoluteError(yTrue, yPred []float64) (float64, error) {
	return stats.Median(absResiduals(yTrue, yPred))
}

func maxError(yTrue, yPred []float64) (float64, error) {
	return floats.Max(absResiduals(yTrue, yPred)), nil
}
