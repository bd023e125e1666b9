// Package trubric stores an ordered list of validation rule invocations
// with their expected verdicts, and replays them against a Validator.
package trubric

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gotrubric/domain/core"
	"gotrubric/internal/logging"
	"gotrubric/internal/validation"
)

// Invocation is one rule call and the verdict it is expected to produce
type Invocation struct {
	Rule     validation.Rule
	Expected validation.Verdict
}

// Trubric is an ordered validation report
type Trubric struct {
	Name        string       `json:"name,omitempty" yaml:"name,omitempty"`
	Invocations []Invocation `json:"invocations" yaml:"invocations"`
}

// Outcome compares a replayed verdict to its expectation
type Outcome struct {
	RuleName validation.RuleName `json:"rule_name"`
	Actual   validation.Verdict  `json:"actual"`
	Expected validation.Verdict  `json:"expected"`
	// Matched compares pass/fail only
	Matched bool `json:"matched"`
	// Diff renders evidence differences, empty when evidence agrees
	Diff string `json:"diff,omitempty"`
}

// Add appends an invocation
func (t *Trubric) Add(rule validation.Rule, expected validation.Verdict) {
	t.Invocations = append(t.Invocations, Invocation{Rule: rule, Expected: expected})
}

// Run replays every invocation in recorded order. A rule error stops the
// replay and is returned unchanged along with the outcomes so far.
func (t *Trubric) Run(ctx context.Context, v *validation.Validator) ([]Outcome, error) {
	runID := core.NewRunID()
	logger := logging.New("trubric").With(
		slog.String("run", runID.String()),
		slog.String("trubric", t.Name))
	start := time.Now()

	outcomes := make([]Outcome, 0, len(t.Invocations))
	for i, inv := range t.Invocations {
		if inv.Rule == nil {
			return outcomes, fmt.Errorf("%w: invocation %d has no rule", core.ErrInvalidArgument, i)
		}
		actual, err := v.Apply(ctx, inv.Rule)
		if err != nil {
			logger.Error("replay aborted",
				slog.Int("invocation", i),
				slog.String("rule", string(inv.Rule.RuleName())),
				slog.Any("error", err))
			return outcomes, err
		}
		diff, err := evidenceDiff(inv.Expected.Evidence, actual.Evidence)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, Outcome{
			RuleName: inv.Rule.RuleName(),
			Actual:   actual,
			Expected: inv.Expected,
			Matched:  actual.Passed == inv.Expected.Passed,
			Diff:     diff,
		})
	}

	s := Summarize(outcomes)
	logger.Info("replay finished",
		slog.Int("matched", s.Matched),
		slog.Int("mismatched", s.Mismatched),
		slog.Duration("elapsed", time.Since(start)))
	return outcomes, nil
}

// Record replays every invocation and stores the actual verdicts as the new
// expectations. The trubric is left unchanged on error.
func (t *Trubric) Record(ctx context.Context, v *validation.Validator) error {
	recorded := make([]validation.Verdict, len(t.Invocations))
	for i, inv := range t.Invocations {
		verdict, err := v.Apply(ctx, inv.Rule)
		if err != nil {
			return err
		}
		recorded[i] = verdict
	}
	for i := range t.Invocations {
		t.Invocations[i].Expected = recorded[i]
	}
	return nil
}

// Summary counts replay outcomes
type Summary struct {
	Total      int `json:"total"`
	Matched    int `json:"matched"`
	Mismatched int `json:"mismatched"`
	Passed     int `json:"passed"`
	Failed     int `json:"failed"`
}

// OK reports whether every outcome matched its expectation
func (s Summary) OK() bool {
	return s.Mismatched == 0
}

// Summarize counts matched/mismatched outcomes and actual passes/failures
func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		if o.Matched {
			s.Matched++
		} else {
			s.Mismatched++
		}
		if o.Actual.Passed {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}

// record is the persisted shape of an invocation
type record struct {
	RuleName        validation.RuleName `json:"rule_name"`
	Arguments       json.RawMessage     `json:"arguments"`
	ExpectedOutcome validation.Verdict  `json:"expected_outcome"`
}

// MarshalJSON writes {rule_name, arguments, expected_outcome}
func (inv Invocation) MarshalJSON() ([]byte, error) {
	if inv.Rule == nil {
		return nil, fmt.Errorf("%w: invocation has no rule", core.ErrInvalidArgument)
	}
	args, err := json.Marshal(inv.Rule)
	if err != nil {
		return nil, err
	}
	return json.Marshal(record{
		RuleName:        inv.Rule.RuleName(),
		Arguments:       args,
		ExpectedOutcome: newExpected(inv.Expected),
	})
}

// UnmarshalJSON decodes a record, checking the rule name and arguments
func (inv *Invocation) UnmarshalJSON(data []byte) error {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return core.NewInvalidArgumentError("invocation", err.Error())
	}
	rule, err := validation.DecodeRule(string(rec.RuleName), rec.Arguments)
	if err != nil {
		return err
	}
	inv.Rule = rule
	inv.Expected = newExpected(rec.ExpectedOutcome)
	return nil
}

func newExpected(v validation.Verdict) validation.Verdict {
	if v.Evidence == nil {
		v.Evidence = validation.Evidence{}
	}
	return v
}
