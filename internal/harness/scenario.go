package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: one estimate, one
// pinned configuration, and assertions over the result.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Estimate is the path to the estimate YAML file, relative to the
	// scenario file location.
	Estimate string `yaml:"estimate"`

	// Seed pins the random stream. Scenarios always run with an
	// explicit seed so golden comparison is deterministic.
	Seed uint64 `yaml:"seed"`

	// Iterations is the sample count for the run.
	Iterations int `yaml:"iterations"`

	// Percentiles overrides the default reported levels when set.
	Percentiles []float64 `yaml:"percentiles,omitempty"`

	// Assertions validate the simulation result.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates one aspect of a result.
type Assertion struct {
	// Type selects the check:
	//   - "base_cost": deterministic total equals Value
	//   - "percentile_between": percentile Level lies in [Min, Max]
	//   - "mean_between": result mean lies in [Min, Max]
	//   - "sensitivity_order": tornado order starts with Factors
	//   - "correlation_corrected": CorrelationCorrected equals Expected
	Type string `yaml:"type"`

	// Value is the expected exact value (base_cost).
	Value float64 `yaml:"value,omitempty"`

	// Level is the percentile level (percentile_between).
	Level float64 `yaml:"level,omitempty"`

	// Min and Max bound the checked statistic.
	Min float64 `yaml:"min,omitempty"`
	Max float64 `yaml:"max,omitempty"`

	// Factors is the expected leading tornado order (sensitivity_order).
	Factors []string `yaml:"factors,omitempty"`

	// Expected is the expected flag value (correlation_corrected).
	Expected bool `yaml:"expected,omitempty"`
}

// Assertion type constants.
const (
	AssertBaseCost             = "base_cost"
	AssertPercentileBetween    = "percentile_between"
	AssertMeanBetween          = "mean_between"
	AssertSensitivityOrder     = "sensitivity_order"
	AssertCorrelationCorrected = "correlation_corrected"
)

// LoadScenario reads and parses a scenario YAML file. The estimate
// path is resolved relative to the scenario file's directory. Unknown
// fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Estimate != "" && !filepath.IsAbs(scenario.Estimate) {
		scenario.Estimate = filepath.Join(filepath.Dir(path), scenario.Estimate)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Estimate == "" {
		return fmt.Errorf("estimate is required")
	}
	if _, err := os.Stat(s.Estimate); os.IsNotExist(err) {
		return fmt.Errorf("estimate file not found: %s", s.Estimate)
	}
	if s.Iterations <= 0 {
		return fmt.Errorf("iterations is required and must be positive")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertBaseCost:
		// Value zero is legal for an empty-cost estimate.
	case AssertPercentileBetween:
		if a.Level <= 0 || a.Level >= 1 {
			return fmt.Errorf("assertions[%d]: level must be in (0, 1) for percentile_between", index)
		}
		if a.Min > a.Max {
			return fmt.Errorf("assertions[%d]: min must not exceed max", index)
		}
	case AssertMeanBetween:
		if a.Min > a.Max {
			return fmt.Errorf("assertions[%d]: min must not exceed max", index)
		}
	case AssertSensitivityOrder:
		if len(a.Factors) == 0 {
			return fmt.Errorf("assertions[%d]: factors list is required for sensitivity_order", index)
		}
	case AssertCorrelationCorrected:
		// Expected defaults to false, which is a valid expectation.
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
