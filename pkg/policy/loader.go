package policy

import (
	"fmt"

	"github.com/mk10pro/truthcore/pkg/versioning"
	"gopkg.in/yaml.v3"
)

// ruleFile mirrors the rule-file external interface: declarative,
// enumerated predicates only.
type ruleFile struct {
	Version string `yaml:"version"`
	Rules   []Rule `yaml:"rules"`
}

// LoadRules parses a rule file (YAML or JSON) into a validated, immutable
// Set. Any rule naming a predicate outside the fixed set rejects the whole
// file with UnknownRule — the loader never drops one bad rule and
// continues with the rest, which would silently narrow enforcement.
func LoadRules(doc []byte) (*Set, error) {
	var rf ruleFile
	if err := yaml.Unmarshal(doc, &rf); err != nil {
		return nil, fmt.Errorf("policy: parse rule file: %w", err)
	}
	if err := versioning.Check(rf.Version, versioning.CurrentRange); err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}
	return NewSet(rf.Rules)
}
