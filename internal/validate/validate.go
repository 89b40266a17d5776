// Package validate checks submitted tree forms before anything touches a store.
package validate

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/greengliwice/trees-backend/internal/apierr"
	"github.com/greengliwice/trees-backend/internal/form"
)

// File and field names of a tree submission.
const (
	FileTree = "tree"
	FileLeaf = "leaf"
	FileBark = "bark"

	FieldSpecies          = "species"
	FieldState            = "state"
	FieldBadState         = "bad-state"
	FieldDescription      = "description"
	FieldPerimeter        = "perimeter"
	FieldStateDescription = "state-description"
	FieldLatLong          = "lat-long"
)

var (
	requiredFiles = []string{FileTree, FileLeaf}
	acceptedFiles = []string{FileTree, FileLeaf, FileBark}

	// checked first, in this order; other fields follow sorted by name
	orderedFields = []string{FieldSpecies, FieldState, FieldBadState, FieldPerimeter, FieldLatLong}
)

// Rules holds the configurable part of the field contract.
type Rules struct {
	RequireDescription      bool
	RequireStateDescription bool
}

// Engine validates submissions. It is safe for concurrent use.
type Engine struct {
	v     *validator.Validate
	rules Rules
}

// New returns an Engine applying rules.
func New(rules Rules) *Engine {
	return &Engine{v: validator.New(), rules: rules}
}

// Files checks the file part names.
func (e *Engine) Files(f form.Form) error {
	if !namesOK(f.FileNames(), requiredFiles, acceptedFiles) {
		return apierr.New(apierr.CodeInvalidFiles, "invalid files")
	}
	return nil
}

// Fields checks the field part names and then each value, stopping at the
// first failure.
func (e *Engine) Fields(f form.Form) error {
	required := []string{FieldSpecies, FieldState, FieldPerimeter, FieldLatLong}
	if e.rules.RequireDescription {
		required = append(required, FieldDescription)
	}
	if e.rules.RequireStateDescription {
		required = append(required, FieldStateDescription)
	}
	accepted := []string{FieldSpecies, FieldState, FieldBadState, FieldDescription, FieldPerimeter, FieldStateDescription, FieldLatLong}

	names := f.FieldNames()
	if !namesOK(names, required, accepted) {
		return apierr.New(apierr.CodeInvalidFields, "invalid fields")
	}

	for _, name := range checkOrder(names) {
		value, _ := f.Field(name)
		if err := e.field(name, value); err != nil {
			return err
		}
	}
	return nil
}

// Form runs Files then Fields.
func (e *Engine) Form(f form.Form) error {
	validators := []func() error{
		func() error { return e.Files(f) },
		func() error { return e.Fields(f) },
	}
	for _, check := range validators {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) field(name, value string) error {
	var ok bool
	switch name {
	case FieldSpecies, FieldState, FieldBadState:
		ok = e.v.Var(value, "required,uuid") == nil
	case FieldPerimeter:
		ok = PositiveNumber(e.v, value)
	case FieldLatLong:
		_, _, err := ParseLatLong(e.v, value)
		ok = err == nil
	default:
		ok = strings.TrimSpace(value) != ""
	}
	if !ok {
		return apierr.New(apierr.CodeInvalidFields, "invalid "+name)
	}
	return nil
}

// PositiveNumber reports whether s is a numeric string greater than zero.
func PositiveNumber(v *validator.Validate, s string) bool {
	if v.Var(s, "required,numeric") != nil {
		return false
	}
	n, err := strconv.ParseFloat(s, 64)
	return err == nil && n > 0
}

// ParseLatLong parses a "lat,lon" pair within geographic ranges.
func ParseLatLong(v *validator.Validate, s string) (lat, lon float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("lat-long %q: want two comma separated values", s)
	}
	latS, lonS := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if v.Var(latS, "required,latitude") != nil || v.Var(lonS, "required,longitude") != nil {
		return 0, 0, fmt.Errorf("lat-long %q: out of range", s)
	}
	if lat, err = strconv.ParseFloat(latS, 64); err != nil {
		return 0, 0, fmt.Errorf("lat-long %q: %w", s, err)
	}
	if lon, err = strconv.ParseFloat(lonS, 64); err != nil {
		return 0, 0, fmt.Errorf("lat-long %q: %w", s, err)
	}
	return lat, lon, nil
}

// LatLong parses s with the engine's validator.
func (e *Engine) LatLong(s string) (lat, lon float64, err error) {
	return ParseLatLong(e.v, s)
}

// namesOK reports whether every name is accepted and every required name is present.
func namesOK(names, required, accepted []string) bool {
	for _, n := range names {
		if !slices.Contains(accepted, n) {
			return false
		}
	}
	for _, r := range required {
		if !slices.Contains(names, r) {
			return false
		}
	}
	return true
}

func checkOrder(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range orderedFields {
		if slices.Contains(names, n) {
			out = append(out, n)
		}
	}
	for _, n := range names {
		if !slices.Contains(orderedFields, n) {
			out = append(out, n)
		}
	}
	return out
}

// Integer parses s as a base-10 integer not lower than lowest.
func (e *Engine) Integer(s string, lowest int) (int, bool) {
	if e.v.Var(s, "required,number") != nil {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lowest {
		return 0, false
	}
	return n, true
}
