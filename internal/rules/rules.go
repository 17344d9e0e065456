// Package rules holds the versioned rule data that drives classification,
// extraction and validation: category keyword groups, ordered field pattern
// rules, required-field sets, sensitive term tables and report templates.
// The built-in set can be replaced wholesale or per section from a YAML file,
// so tuning the tables never requires a code change.
package rules

import (
	"fmt"
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/medreport-server/internal/domain"
	"github.com/medreport-server/pkg/textnorm"
)

// PatternRule is a single prioritized extraction rule for one field. Rules
// for a field are evaluated in order and the first match wins. Group is the
// capture group holding the field value; 0 takes the whole match.
type PatternRule struct {
	ID    string `mapstructure:"id" json:"id"`
	Expr  string `mapstructure:"expr" json:"expr"`
	Group int    `mapstructure:"group" json:"group"`
}

// KeywordGroup is a named set of interchangeable terms. A group counts at
// most once toward a category's confidence tier no matter how many of its
// terms appear.
type KeywordGroup struct {
	Name  string   `mapstructure:"name" json:"name"`
	Terms []string `mapstructure:"terms" json:"terms"`
}

// CategoryRules bundles everything rule-driven about one benefit category.
type CategoryRules struct {
	Groups         []KeywordGroup          `mapstructure:"groups" json:"groups"`
	RequiredFields []string                `mapstructure:"required_fields" json:"required_fields"`
	Template       domain.CategoryTemplate `mapstructure:"template" json:"template"`
}

// RuleSet is the complete rule data at a given version.
type RuleSet struct {
	Version    string                                        `mapstructure:"version" json:"version"`
	Categories map[domain.BenefitCategory]CategoryRules      `mapstructure:"categories" json:"categories"`
	Fields     map[string][]PatternRule                      `mapstructure:"fields" json:"fields"`
	FieldOrder []string                                      `mapstructure:"field_order" json:"field_order"`
	Sensitive  map[string][]string                           `mapstructure:"sensitive" json:"sensitive"`
}

// CompiledRule pairs a pattern rule with its compiled expression.
type CompiledRule struct {
	PatternRule
	Regexp *regexp.Regexp
}

// CompiledGroup holds a keyword group with every term pre-folded for
// accent-insensitive matching.
type CompiledGroup struct {
	Name        string
	FoldedTerms []string
}

// Compiled is a RuleSet ready for matching. It is immutable after Compile.
type Compiled struct {
	Source     *RuleSet
	Fields     map[string][]CompiledRule
	FieldOrder []string
	Keywords   map[domain.BenefitCategory][]CompiledGroup
	Sensitive  map[string][]string
}

// Compile validates and compiles the rule set. Every regexp failure is
// reported with the offending rule ID so a bad YAML edit is diagnosable.
func Compile(rs *RuleSet) (*Compiled, error) {
	c := &Compiled{
		Source:     rs,
		Fields:     make(map[string][]CompiledRule, len(rs.Fields)),
		FieldOrder: rs.FieldOrder,
		Keywords:   make(map[domain.BenefitCategory][]CompiledGroup, len(rs.Categories)),
		Sensitive:  make(map[string][]string, len(rs.Sensitive)),
	}

	for field, ruleList := range rs.Fields {
		compiled := make([]CompiledRule, 0, len(ruleList))
		for _, r := range ruleList {
			re, err := regexp.Compile(r.Expr)
			if err != nil {
				return nil, fmt.Errorf("field %s rule %s: %w", field, r.ID, err)
			}
			if r.Group > re.NumSubexp() {
				return nil, fmt.Errorf("field %s rule %s: capture group %d not present", field, r.ID, r.Group)
			}
			compiled = append(compiled, CompiledRule{PatternRule: r, Regexp: re})
		}
		c.Fields[field] = compiled
	}

	for cat, cr := range rs.Categories {
		if !cat.IsValid() {
			return nil, fmt.Errorf("unknown category %q in rule set %s", cat, rs.Version)
		}
		groups := make([]CompiledGroup, 0, len(cr.Groups))
		for _, g := range cr.Groups {
			folded := make([]string, 0, len(g.Terms))
			for _, t := range g.Terms {
				folded = append(folded, textnorm.Fold(t))
			}
			groups = append(groups, CompiledGroup{Name: g.Name, FoldedTerms: folded})
		}
		c.Keywords[cat] = groups
	}

	for class, terms := range rs.Sensitive {
		folded := make([]string, 0, len(terms))
		for _, t := range terms {
			folded = append(folded, textnorm.Fold(t))
		}
		c.Sensitive[class] = folded
	}

	return c, nil
}

// Category returns the rules for a category, falling back to the general
// clinical entry for unknown or unconfigured categories.
func (rs *RuleSet) Category(cat domain.BenefitCategory) CategoryRules {
	if cr, ok := rs.Categories[cat]; ok {
		return cr
	}
	return rs.Categories[domain.CLINICA_GERAL]
}

// Store owns the active rule set and an LRU of compiled versions. Reloading
// a tuned YAML file swaps the active version; recently used compilations
// stay cached so concurrent requests on the old version finish cheaply.
type Store struct {
	logger *logrus.Logger
	active *RuleSet
	// startup compilation of the active version, kept so Active can
	// restore it after an LRU eviction without recompiling.
	compiled *Compiled
	cache    *lru.Cache[string, *Compiled]
}

// NewStore compiles the given rule set eagerly so configuration errors
// surface at startup rather than on the first request.
func NewStore(rs *RuleSet, cacheSize int, logger *logrus.Logger) (*Store, error) {
	if cacheSize <= 0 {
		cacheSize = 4
	}
	cache, err := lru.New[string, *Compiled](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create rules cache: %w", err)
	}

	compiled, err := Compile(rs)
	if err != nil {
		return nil, fmt.Errorf("failed to compile rule set %s: %w", rs.Version, err)
	}
	s := &Store{logger: logger, active: rs, compiled: compiled, cache: cache}
	cache.Add(rs.Version, compiled)

	logger.WithFields(logrus.Fields{
		"rules_version": rs.Version,
		"categories":    len(rs.Categories),
		"fields":        len(rs.Fields),
	}).Info("Rule set loaded")

	return s, nil
}

// Active returns the compiled active rule set. Never nil: the active set is
// immutable, so the startup compilation remains valid and is restored to the
// cache after an eviction.
func (s *Store) Active() *Compiled {
	if compiled, ok := s.cache.Get(s.active.Version); ok {
		return compiled
	}
	s.cache.Add(s.active.Version, s.compiled)
	return s.compiled
}

// Version reports the active rule set version, recorded on every
// classification and extraction result for auditability.
func (s *Store) Version() string {
	return s.active.Version
}
