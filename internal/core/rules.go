package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Range bounds a numeric field. A nil bound is open.
type Range struct {
	Min *float64 `yaml:"min"`
	Max *float64 `yaml:"max"`
}

// RuleSet is the declarative validation configuration for one dataset.
type RuleSet struct {
	RequiredColumns []string            `yaml:"required_columns"`
	NonNull         []string            `yaml:"non_null"`
	Unique          []string            `yaml:"unique"`
	Ranges          map[string]Range    `yaml:"ranges"`
	AllowedValues   map[string][]string `yaml:"allowed_values"`
}

// LoadRuleSet reads the rule set for dataset from a YAML file.
func LoadRuleSet(path, dataset string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, newConfigError("read rule set %s: %v", path, err)
	}
	return ParseRuleSet(data, dataset)
}

// ParseRuleSet decodes a YAML document of rule sets keyed by dataset name
// and returns the validated rule set for dataset. Unknown keys are rejected.
func ParseRuleSet(data []byte, dataset string) (RuleSet, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return RuleSet{}, newConfigError("rule set is empty")
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc map[string]RuleSet
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return RuleSet{}, newConfigError("parse rule set: %v", err)
	}

	rules, ok := doc[dataset]
	if !ok {
		return RuleSet{}, newConfigError("rule set has no entry for dataset %q", dataset)
	}
	if err := rules.Validate(); err != nil {
		return RuleSet{}, err
	}
	return rules, nil
}

// Validate checks the rule set for internal consistency and returns a
// *ConfigurationError listing every problem.
func (r RuleSet) Validate() error {
	var problems []string

	checkNames := func(option string, names []string) {
		seen := make(map[string]bool, len(names))
		for _, n := range names {
			switch {
			case strings.TrimSpace(n) == "":
				problems = append(problems, fmt.Sprintf("%s: empty column name", option))
			case seen[n]:
				problems = append(problems, fmt.Sprintf("%s: %s listed twice", option, n))
			}
			seen[n] = true
		}
	}
	checkNames("required_columns", r.RequiredColumns)
	checkNames("non_null", r.NonNull)
	checkNames("unique", r.Unique)

	for _, field := range sortedKeys(r.Ranges) {
		rg := r.Ranges[field]
		if rg.Min == nil && rg.Max == nil {
			problems = append(problems, fmt.Sprintf("ranges.%s: needs min or max", field))
		}
		if rg.Min != nil && rg.Max != nil && *rg.Min > *rg.Max {
			problems = append(problems, fmt.Sprintf("ranges.%s: min %v exceeds max %v", field, *rg.Min, *rg.Max))
		}
	}

	for _, field := range sortedKeys(r.AllowedValues) {
		if len(r.AllowedValues[field]) == 0 {
			problems = append(problems, fmt.Sprintf("allowed_values.%s: empty whitelist", field))
		}
	}

	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}
	return nil
}

// allowedSet returns the normalized whitelist for field.
func (r RuleSet) allowedSet(field string) map[string]struct{} {
	set := make(map[string]struct{}, len(r.AllowedValues[field]))
	for _, v := range r.AllowedValues[field] {
		set[NormalizeLabel(v)] = struct{}{}
	}
	return set
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
