package tool

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesRaw []byte

type CategoryRule struct {
	Category string   `yaml:"category"`
	Fields   []string `yaml:"fields"`
}

type RedirectMessages struct {
	Related   string `yaml:"related"`
	Unrelated string `yaml:"unrelated"`
}

// Rules are the static tables behind the deterministic tools.
type Rules struct {
	RequiredFields    []CategoryRule   `yaml:"required_fields"`
	ShoppingKeywords  []string         `yaml:"shopping_keywords"`
	NegativeThreshold float64          `yaml:"negative_threshold"`
	Redirect          RedirectMessages `yaml:"redirect"`
}

func ParseRules(raw []byte) (Rules, error) {
	var rules Rules
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return Rules{}, fmt.Errorf("parse tool rules: %w", err)
	}
	if len(rules.ShoppingKeywords) == 0 {
		return Rules{}, fmt.Errorf("parse tool rules: shopping_keywords is empty")
	}
	if rules.Redirect.Related == "" || rules.Redirect.Unrelated == "" {
		return Rules{}, fmt.Errorf("parse tool rules: redirect messages are required")
	}
	if rules.NegativeThreshold <= 0 {
		rules.NegativeThreshold = 0.4
	}
	return rules, nil
}

// DefaultRules returns the embedded rule tables.
func DefaultRules() Rules {
	rules, err := ParseRules(defaultRulesRaw)
	if err != nil {
		panic(err)
	}
	return rules
}

// MissingFields lists required fields of every category named in query
// that query does not mention, sorted and deduplicated.
func (r Rules) MissingFields(query string) []string {
	missing := map[string]struct{}{}
	for _, rule := range r.RequiredFields {
		if !strings.Contains(query, rule.Category) {
			continue
		}
		for _, f := range rule.Fields {
			if !strings.Contains(query, f) {
				missing[f] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(missing))
	for f := range missing {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func (r Rules) RelatedToShopping(query string) bool {
	lower := strings.ToLower(query)
	for _, k := range r.ShoppingKeywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
