// Package versioning gates DAG-source and rule-file format_version fields
// using semantic-version range checks.
package versioning

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// CurrentRange is the semver constraint this build accepts for any
// format_version field (DAG sources, rule files) absent a more specific
// reason to diverge — a single build-wide compatibility window rather
// than one per document type.
const CurrentRange = ">= 1.0.0, < 2.0.0"

// UnsupportedVersion is returned when a declared format_version falls
// outside the range this build accepts.
type UnsupportedVersion struct {
	Declared string
	Accepts  string
}

func (e *UnsupportedVersion) Error() string {
	return fmt.Sprintf("unsupported format_version %q: this build accepts %s", e.Declared, e.Accepts)
}

// Check validates declaredVersion against a semver constraint string (e.g.
// ">= 1.0.0, < 2.0.0"). An empty declaredVersion is treated as "1.0.0" —
// the format's initial, implicit version.
func Check(declaredVersion, constraint string) error {
	if declaredVersion == "" {
		declaredVersion = "1.0.0"
	}
	v, err := semver.NewVersion(declaredVersion)
	if err != nil {
		return fmt.Errorf("versioning: parse %q: %w", declaredVersion, err)
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("versioning: parse constraint %q: %w", constraint, err)
	}
	if !c.Check(v) {
		return &UnsupportedVersion{Declared: declaredVersion, Accepts: constraint}
	}
	return nil
}
