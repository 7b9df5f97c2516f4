package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/apexcost/riskengine/internal/engine"
	"github.com/apexcost/riskengine/internal/estimate"
	"github.com/apexcost/riskengine/internal/schema"
)

// loadEstimate reads, schema-checks, and semantically validates an
// estimate YAML file. Structural errors are collected and reported
// together; the first semantic violation ends validation.
func loadEstimate(path string) (*estimate.Estimate, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{WrapExitError(ExitCommandError,
			fmt.Sprintf("failed to read estimate file %s", path), err)}
	}

	est, errs := schema.DecodeYAML(data)
	if len(errs) > 0 {
		return nil, errs
	}

	if err := est.Validate(); err != nil {
		return nil, []error{err}
	}
	for _, f := range est.Factors() {
		if err := f.Dist.Validate(); err != nil {
			return nil, []error{fmt.Errorf("risk factor %q: %w", f.ID, err)}
		}
	}
	return est, nil
}

// errorCode maps a domain error to its CLI error code.
func errorCode(err error) string {
	var schemaErr *schema.SchemaError
	if errors.As(err, &schemaErr) {
		return ErrCodeSchema
	}

	var validationErr *engine.ValidationError
	if errors.As(err, &validationErr) {
		switch validationErr.Code {
		case engine.ErrCodeIterationsOutOfRange, engine.ErrCodePercentileOutOfRange:
			return ErrCodeConfig
		default:
			return ErrCodeEstimate
		}
	}

	if engine.IsTimeout(err) || engine.IsNumeric(err) {
		return ErrCodeSimulation
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code == ExitCommandError {
		return ErrCodeFileNotFound
	}

	return ErrCodeEstimate
}
