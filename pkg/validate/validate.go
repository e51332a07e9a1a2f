// Package validate provides the pluggable format-validator registry from
// §4.13. No concrete format-specific validator ships with this package —
// Out of Scope names playback/rendering correctness explicitly, and only
// structural conformance (shape, required fields, declared types) is this
// package's concern. Callers register their own Validator per format tag.
package validate

import "fmt"

// Result is one validator's outcome, in the shape the evidence recorder and
// MTB builder both expect (see evidence.KindValidation payloads and
// mtb.ValidationRecord).
type Result struct {
	Format  string
	Passed  bool
	Details map[string]interface{}
}

// Validator checks an artifact set (content address by logical name) for
// conformance to one format. It returns a Result even on failure —
// validation failing is not itself an error; only an inability to run the
// check (artifact unreadable, malformed spec) is.
type Validator func(artifacts map[string]string) (Result, error)

// UnknownFormat is returned when Validate is asked for a format tag with no
// registered Validator.
type UnknownFormat struct {
	Format string
}

func (e *UnknownFormat) Error() string {
	return fmt.Sprintf("validate: no validator registered for format %q", e.Format)
}

// DuplicateFormat is returned by Register when a format tag is already taken.
type DuplicateFormat struct {
	Format string
}

func (e *DuplicateFormat) Error() string {
	return fmt.Sprintf("validate: format %q is already registered", e.Format)
}

// Registry maps format tags to Validators. Like node.Registry, it has no
// unregister operation — once a format is wired in at process-init time it
// stays wired for the process's lifetime.
type Registry struct {
	validators map[string]Validator
}

// NewRegistry returns an empty registry. No formats are pre-registered:
// structural validation is always caller-supplied.
func NewRegistry() *Registry {
	return &Registry{validators: make(map[string]Validator)}
}

// Register adds v under format. Fails if format is already taken.
func (r *Registry) Register(format string, v Validator) error {
	if _, exists := r.validators[format]; exists {
		return &DuplicateFormat{Format: format}
	}
	r.validators[format] = v
	return nil
}

// MustRegister is Register but panics on error; reserved for process-init
// registration where a duplicate indicates a programming error.
func (r *Registry) MustRegister(format string, v Validator) {
	if err := r.Register(format, v); err != nil {
		panic(err)
	}
}

// Validate runs the registered Validator for format against artifacts.
func (r *Registry) Validate(format string, artifacts map[string]string) (Result, error) {
	v, ok := r.validators[format]
	if !ok {
		return Result{}, &UnknownFormat{Format: format}
	}
	res, err := v(artifacts)
	if err != nil {
		return Result{}, fmt.Errorf("validate: format %q: %w", format, err)
	}
	res.Format = format
	return res, nil
}

// Formats returns the registered format tags.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.validators))
	for f := range r.validators {
		out = append(out, f)
	}
	return out
}
