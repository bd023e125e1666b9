package trubric

import (
	"encoding/json"

	"gotrubric/internal/validation"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const evidenceTolerance = 1e-9

// normalizeEvidence maps evidence onto plain JSON values (float64 numbers,
// map[string]any objects, []any lists) so that evidence produced in memory,
// loaded from JSON and loaded from YAML compare equal
func normalizeEvidence(e validation.Evidence) (map[string]any, error) {
	if e == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// evidenceDiff returns a go-cmp diff of two evidence maps, empty when they
// agree within evidenceTolerance
func evidenceDiff(expected, actual validation.Evidence) (string, error) {
	want, err := normalizeEvidence(expected)
	if err != nil {
		return "", err
	}
	got, err := normalizeEvidence(actual)
	if err != nil {
		return "", err
	}
	return cmp.Diff(want, got, cmpopts.EquateApprox(0, evidenceTolerance), cmpopts.EquateEmpty()), nil
}

// EvidenceEqual reports whether two verdicts agree on pass/fail and on
// evidence within tolerance
func EvidenceEqual(a, b validation.Verdict) bool {
	if a.Passed != b.Passed {
		return false
	}
	diff, err := evidenceDiff(a.Evidence, b.Evidence)
	return err == nil && diff == ""
}
