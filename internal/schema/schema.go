// Package schema validates estimate definition documents against an
// embedded CUE schema before they are decoded into estimate types.
//
// CUE catches structural problems (unknown fields, wrong types, enum
// violations, rho outside [-1, 1]) with source positions, so a user
// editing an estimate file gets a precise message instead of a zero
// value silently flowing into the simulation.
package schema

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/apexcost/riskengine/internal/estimate"
)

//go:embed estimate.cue
var estimateCUE string

var (
	schemaOnce sync.Once
	schemaVal  cue.Value
	schemaCtx  *cue.Context
)

// SchemaError reports a structural violation with source position when
// the CUE evaluator can attribute one.
type SchemaError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *SchemaError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func compiled() (cue.Value, *cue.Context) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		root := schemaCtx.CompileString(estimateCUE, cue.Filename("estimate.cue"))
		schemaVal = root.LookupPath(cue.ParsePath("#Estimate"))
	})
	return schemaVal, schemaCtx
}

// Validate unifies a decoded document with the estimate schema and
// returns every violation the evaluator finds.
func Validate(doc any) []error {
	sv, ctx := compiled()
	if err := sv.Err(); err != nil {
		return []error{formatCUEError(err)}
	}

	dv := ctx.Encode(doc)
	if err := dv.Err(); err != nil {
		return []error{formatCUEError(err)}
	}

	unified := sv.Unify(dv)
	if err := unified.Err(); err != nil {
		return collectCUEErrors(err)
	}
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return collectCUEErrors(err)
	}
	return nil
}

// DecodeYAML validates YAML estimate bytes against the schema and
// decodes them into an Estimate. Structural (CUE) errors are returned
// before any decoding happens; semantic validation is the caller's
// responsibility via Estimate.Validate.
func DecodeYAML(data []byte) (*estimate.Estimate, []error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, []error{&SchemaError{Field: "yaml", Message: err.Error()}}
	}
	if doc == nil {
		return nil, []error{&SchemaError{Field: "yaml", Message: "document is empty"}}
	}

	if errs := Validate(doc); len(errs) > 0 {
		return nil, errs
	}

	var est estimate.Estimate
	if err := yaml.Unmarshal(data, &est); err != nil {
		return nil, []error{&SchemaError{Field: "yaml", Message: err.Error()}}
	}
	return &est, nil
}

// collectCUEErrors expands a CUE error list into one SchemaError per
// violation, preserving positions.
func collectCUEErrors(err error) []error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return []error{err}
	}
	out := make([]error, 0, len(errs))
	for _, e := range errs {
		se := &SchemaError{Field: pathString(e.Path()), Message: e.Error()}
		if positions := cueerrors.Positions(e); len(positions) > 0 {
			se.Pos = positions[0]
		}
		out = append(out, se)
	}
	return out
}

func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	se := &SchemaError{Field: pathString(first.Path()), Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		se.Pos = positions[0]
	}
	return se
}

func pathString(parts []string) string {
	if len(parts) == 0 {
		return "cue"
	}
	s := parts[0]
	for _, p := range parts[1:] {
		s += "." + p
	}
	return s
}
