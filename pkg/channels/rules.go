package channels

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Rule maps a column-group naming pattern to a channel kind. Rules are
// evaluated in order; the first rule whose pattern matches the group name
// and whose width constraint holds wins. New dataset naming schemes can be
// supported with a rule file instead of code changes.
type Rule struct {
	Pattern string      `yaml:"pattern"`
	Kind    ChannelKind `yaml:"kind"`
	Width   int         `yaml:"width,omitempty"` // 0 matches any width

	re *regexp.Regexp
}

func (r *Rule) compile() error {
	re, err := regexp.Compile(r.Pattern)
	if err != nil {
		return fmt.Errorf("rule %q: %w", r.Pattern, err)
	}
	r.re = re
	return nil
}

func (r *Rule) matches(name string, width int) bool {
	if r.Width != 0 && width != r.Width {
		return false
	}
	return r.re.MatchString(name)
}

func matchRules(rules []Rule, name string, width int) (ChannelKind, bool) {
	for i := range rules {
		if rules[i].matches(name, width) {
			return rules[i].Kind, true
		}
	}
	return "", false
}

// DefaultRules returns the built-in classification rules for LeRobot-style
// column naming.
func DefaultRules() []Rule {
	rules := []Rule{
		{Pattern: `(?i)(^|[._ |])(ee|eef|tcp|pose|cartesian)([._ |]|$)`, Kind: KindCartesianPose, Width: 6},
		{Pattern: `(?i)grip`, Kind: KindGripper, Width: 1},
		{Pattern: `(?i)(observation\.state|joint|motor)`, Kind: KindJointPositions},
	}
	for i := range rules {
		rules[i].re = regexp.MustCompile(rules[i].Pattern)
	}
	return rules
}

// LoadRules reads an ordered rule list from a YAML file.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	for i := range rules {
		switch rules[i].Kind {
		case KindJointPositions, KindCartesianPose, KindGripper:
		default:
			return nil, fmt.Errorf("rule %q: unknown kind %q", rules[i].Pattern, rules[i].Kind)
		}
		if err := rules[i].compile(); err != nil {
			return nil, err
		}
	}
	return rules, nil
}
