// Package intent resolves free user text to a catalog topic.
//
// Resolution runs three passes and the first hit wins: keyword containment,
// keyword prefix (for abbreviations such as "enf"), then a similarity ratio
// against every keyword. Topic declaration order and keyword order break ties.
package intent

import (
	"strings"
	"unicode/utf8"

	"github.com/m3rciful/minerva/internal/catalog"
)

const (
	// ExactScore is reported when a keyword occurs inside the text.
	ExactScore = 0.99
	// PrefixScore is reported when the text abbreviates a keyword.
	PrefixScore = 0.95

	// DefaultStrongThreshold is the lowest score accepted without confirmation.
	DefaultStrongThreshold = 0.65
	// DefaultModerateThreshold is the lowest score worth a suggestion.
	DefaultModerateThreshold = 0.45

	minContainmentLen = 3
	minPrefixLen      = 2
)

// Kind tells which pass produced a Result.
type Kind string

const (
	KindNone   Kind = "none"
	KindExact  Kind = "exact"
	KindPrefix Kind = "prefix"
	KindFuzzy  Kind = "fuzzy"
)

// Strength is the confidence band of a score.
type Strength int

const (
	StrengthNone Strength = iota
	StrengthModerate
	StrengthStrong
)

func (s Strength) String() string {
	switch s {
	case StrengthStrong:
		return "strong"
	case StrengthModerate:
		return "moderate"
	default:
		return "none"
	}
}

// Result is the outcome of matching one message. Topic is empty when nothing matched.
type Result struct {
	Topic   catalog.Key
	Score   float64
	Keyword string
	Kind    Kind
}

// Matched reports whether a topic was resolved at all.
func (r Result) Matched() bool {
	return r.Topic != ""
}

// Thresholds splits scores into confidence bands.
type Thresholds struct {
	Strong   float64
	Moderate float64
}

// DefaultThresholds returns the standard 0.65 / 0.45 bands.
func DefaultThresholds() Thresholds {
	return Thresholds{Strong: DefaultStrongThreshold, Moderate: DefaultModerateThreshold}
}

// Classify maps a result to its band. Unmatched results are always StrengthNone.
func (t Thresholds) Classify(r Result) Strength {
	switch {
	case !r.Matched():
		return StrengthNone
	case r.Score >= t.Strong:
		return StrengthStrong
	case r.Score >= t.Moderate:
		return StrengthModerate
	default:
		return StrengthNone
	}
}

type group struct {
	topic    catalog.Key
	keywords []string
}

// Matcher is immutable and safe for concurrent use.
type Matcher struct {
	groups []group
}

// NewMatcher snapshots the keyword groups of reg in declaration order.
func NewMatcher(reg *catalog.Registry) *Matcher {
	topics := reg.Topics()
	m := &Matcher{groups: make([]group, 0, len(topics))}
	for _, t := range topics {
		m.groups = append(m.groups, group{topic: t.Key, keywords: t.Keywords})
	}
	return m
}

// Normalize trims surrounding whitespace and lower-cases text.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Match resolves text to the best topic. It never fails; no intent is a zero Topic.
func (m *Matcher) Match(text string) Result {
	norm := Normalize(text)
	if norm == "" {
		return Result{Kind: KindNone}
	}

	for _, g := range m.groups {
		for _, kw := range g.keywords {
			if utf8.RuneCountInString(kw) < minContainmentLen {
				continue
			}
			if strings.Contains(norm, kw) {
				return Result{Topic: g.topic, Score: ExactScore, Keyword: kw, Kind: KindExact}
			}
		}
	}

	if utf8.RuneCountInString(norm) >= minPrefixLen {
		for _, g := range m.groups {
			for _, kw := range g.keywords {
				if strings.HasPrefix(kw, norm) {
					return Result{Topic: g.topic, Score: PrefixScore, Keyword: kw, Kind: KindPrefix}
				}
			}
		}
	}

	best := Result{Kind: KindNone}
	for _, g := range m.groups {
		for _, kw := range g.keywords {
			if score := Ratio(norm, kw); score > best.Score {
				best = Result{Topic: g.topic, Score: score, Keyword: kw, Kind: KindFuzzy}
			}
		}
	}
	return best
}
