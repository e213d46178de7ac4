package domain

import (
	"fmt"
	"regexp"
	"strconv"
)

// KindPattern pairs a measurement kind with the regular expression source
// that recognizes it, as declared in configuration.
type KindPattern struct {
	Kind string
	Expr string
}

type patternRule struct {
	kind string
	re   *regexp.Regexp
}

// PatternSet holds compiled measurement patterns in declaration order.
// Order is contractual: extraction returns the first matching rule even when
// a later rule would also match, so results are deterministic regardless of
// pattern specificity.
type PatternSet struct {
	rules []patternRule
}

// CompilePatterns compiles an ordered list of kind/pattern pairs. Kinds must
// be non-empty and unique; every pattern needs at least one capture group.
func CompilePatterns(pairs []KindPattern) (PatternSet, error) {
	if len(pairs) == 0 {
		return PatternSet{}, fmt.Errorf("no measurement patterns configured")
	}
	seen := make(map[string]struct{}, len(pairs))
	rules := make([]patternRule, 0, len(pairs))
	for _, p := range pairs {
		if p.Kind == "" {
			return PatternSet{}, fmt.Errorf("measurement pattern %q has no kind", p.Expr)
		}
		if _, dup := seen[p.Kind]; dup {
			return PatternSet{}, fmt.Errorf("duplicate measurement kind %q", p.Kind)
		}
		seen[p.Kind] = struct{}{}

		re, err := regexp.Compile(p.Expr)
		if err != nil {
			return PatternSet{}, fmt.Errorf("compile pattern for %q: %w", p.Kind, err)
		}
		if re.NumSubexp() == 0 {
			return PatternSet{}, fmt.Errorf("pattern for %q has no capture group", p.Kind)
		}
		rules = append(rules, patternRule{kind: p.Kind, re: re})
	}
	return PatternSet{rules: rules}, nil
}

// Kinds returns the measurement kinds in declaration order.
func (s PatternSet) Kinds() []string {
	kinds := make([]string, len(s.rules))
	for i, r := range s.rules {
		kinds[i] = r.kind
	}
	return kinds
}

// Measurement is the result of extracting one station message. The zero
// value is the "no rule matched" sentinel: it is a normal business outcome
// for malformed or unexpected telemetry, not an error.
type Measurement struct {
	Kind  string   // empty when no rule matched
	Value *float64 // nil iff Kind is empty
}

// Known reports whether a rule matched.
func (m Measurement) Known() bool { return m.Kind != "" }

// Extract evaluates the rules in declaration order against a raw message and
// returns the first kind whose pattern matches, with the value taken from
// the first capture group that actually captured text (patterns may carry
// alternate groups for unit variants). A matched capture that does not parse
// as a number is a configuration error and is returned as such.
func (s PatternSet) Extract(message string) (Measurement, error) {
	for _, r := range s.rules {
		groups := r.re.FindStringSubmatch(message)
		if groups == nil {
			continue
		}
		raw, ok := firstCapture(groups)
		if !ok {
			return Measurement{}, fmt.Errorf("pattern for %q matched %q but no group captured text", r.kind, message)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Measurement{}, fmt.Errorf("pattern for %q captured non-numeric %q: %w", r.kind, raw, err)
		}
		return Measurement{Kind: r.kind, Value: &v}, nil
	}
	return Measurement{}, nil
}

// firstCapture returns the first submatch group that captured text.
func firstCapture(groups []string) (string, bool) {
	for _, g := range groups[1:] {
		if g != "" {
			return g, true
		}
	}
	return "", false
}
