package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// Scenarios exercise the sequencing engine by executing a series of steps
// against a cursor and recording the resulting trace.
type Scenario struct {
	// Name uniquely identifies this scenario. It is also the golden file
	// name when the scenario runs under RunWithGolden.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Conditions lists the trial records, inline. Each map is one trial
	// definition with its fields.
	Conditions []map[string]any `yaml:"conditions"`

	// Reps is the repetition count passed to the ordering builder.
	Reps int `yaml:"reps"`

	// Method selects the ordering method: sequential, random, or
	// fullRandom.
	Method string `yaml:"method"`

	// Floats is the fixed random stream for shuffled methods. The stream
	// makes the shuffle reproducible and hand-computable. Required for
	// random and fullRandom; ignored by sequential.
	Floats []float64 `yaml:"floats,omitempty"`

	// Steps is the sequence of cursor operations to execute.
	Steps []Step `yaml:"steps"`
}

// Step is one cursor operation in a scenario.
type Step struct {
	// Op names the operation. See the Op* constants.
	Op string `yaml:"op"`

	// Key is the field name for add_data.
	Key string `yaml:"key,omitempty"`

	// Value is the field value for add_data, or the flag for set_finished.
	Value any `yaml:"value,omitempty"`

	// N is the relative offset for peek.
	N int `yaml:"n,omitempty"`

	// Index is the flat sequence position for record_at.
	Index int `yaml:"index,omitempty"`
}

// Step operation constants.
const (
	OpAdvance     = "advance"
	OpDrain       = "drain"
	OpCapture     = "capture"
	OpRestore     = "restore"
	OpPeek        = "peek"
	OpRecordAt    = "record_at"
	OpAddData     = "add_data"
	OpSetFinished = "set_finished"
)

var knownOps = map[string]bool{
	OpAdvance:     true,
	OpDrain:       true,
	OpCapture:     true,
	OpRestore:     true,
	OpPeek:        true,
	OpRecordAt:    true,
	OpAddData:     true,
	OpSetFinished: true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Method == "" {
		return fmt.Errorf("method is required")
	}
	if s.Reps < 0 {
		return fmt.Errorf("reps must be non-negative, got %d", s.Reps)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Op == "" {
			return fmt.Errorf("steps[%d]: op is required", i)
		}
		if !knownOps[step.Op] {
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
		if step.Op == OpAddData && step.Key == "" {
			return fmt.Errorf("steps[%d]: key is required for add_data", i)
		}
	}
	return nil
}
