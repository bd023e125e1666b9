package trubric

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gotrubric/domain/core"
	"gotrubric/internal/validation"

	"gopkg.in/yaml.v3"
)

// Format is a persisted trubric encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the encoding from a file extension
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: unsupported trubric file extension %q", core.ErrConfiguration, filepath.Ext(path))
	}
}

// Load reads a trubric from a .json, .yaml or .yml file
func Load(path string) (*Trubric, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trubric %s: %w", path, err)
	}
	return Decode(data, format)
}

// Save writes the trubric in the format implied by the extension
func (t *Trubric) Save(path string) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	data, err := t.Encode(format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write trubric %s: %w", path, err)
	}
	return nil
}

// Decode parses a trubric. Rule names and arguments are checked strictly.
func Decode(data []byte, format Format) (*Trubric, error) {
	var t Trubric
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, err
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &t); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unsupported trubric format %q", core.ErrConfiguration, format)
	}
	if t.Invocations == nil {
		t.Invocations = []Invocation{}
	}
	return &t, nil
}

// Encode serializes the trubric
func (t *Trubric) Encode(format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(t, "", "  ")
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(t); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported trubric format %q", core.ErrConfiguration, format)
	}
}

type yamlRecord struct {
	RuleName        validation.RuleName `yaml:"rule_name"`
	Arguments       any                 `yaml:"arguments"`
	ExpectedOutcome validation.Verdict  `yaml:"expected_outcome"`
}

// MarshalYAML writes the same record shape as MarshalJSON
func (inv Invocation) MarshalYAML() (any, error) {
	if inv.Rule == nil {
		return nil, fmt.Errorf("%w: invocation has no rule", core.ErrInvalidArgument)
	}
	return yamlRecord{
		RuleName:        inv.Rule.RuleName(),
		Arguments:       inv.Rule,
		ExpectedOutcome: newExpected(inv.Expected),
	}, nil
}

// UnmarshalYAML decodes a record. Arguments go through the same strict
// decoder as JSON.
func (inv *Invocation) UnmarshalYAML(node *yaml.Node) error {
	var rec struct {
		RuleName        string         `yaml:"rule_name"`
		Arguments       map[string]any `yaml:"arguments"`
		ExpectedOutcome struct {
			Passed   bool           `yaml:"passed"`
			Evidence map[string]any `yaml:"evidence"`
		} `yaml:"expected_outcome"`
	}
	if err := node.Decode(&rec); err != nil {
		return core.NewInvalidArgumentError("invocation", err.Error())
	}

	args, err := json.Marshal(rec.Arguments)
	if err != nil {
		return core.NewInvalidArgumentError("arguments", err.Error())
	}
	rule, err := validation.DecodeRule(rec.RuleName, args)
	if err != nil {
		return err
	}
	inv.Rule = rule
	inv.Expected = newExpected(validation.Verdict{
		Passed:   rec.ExpectedOutcome.Passed,
		Evidence: rec.ExpectedOutcome.Evidence,
	})
	return nil
}
