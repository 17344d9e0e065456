package rules

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/medreport-server/internal/domain"
)

// fileRuleSet mirrors RuleSet with string category keys so the YAML stays
// readable. Sections left out of the file keep the built-in defaults.
type fileRuleSet struct {
	Version    string                      `mapstructure:"version"`
	Categories map[string]fileCategory     `mapstructure:"categories"`
	Fields     map[string][]PatternRule    `mapstructure:"fields"`
	FieldOrder []string                    `mapstructure:"field_order"`
	Sensitive  map[string][]string         `mapstructure:"sensitive"`
}

type fileCategory struct {
	Groups         []KeywordGroup `mapstructure:"groups"`
	RequiredFields []string       `mapstructure:"required_fields"`
	Prompt         string         `mapstructure:"prompt"`
	Conclusion     string         `mapstructure:"conclusion"`
}

// Load builds the active rule set: the built-in defaults, overlaid with the
// YAML file named in the configuration when one is set. An override file
// must carry its own version string so results remain attributable.
func Load(cfg domain.RulesConfig, logger *logrus.Logger) (*RuleSet, error) {
	rs := Default()
	if cfg.Path == "" {
		return rs, nil
	}

	v := viper.New()
	v.SetConfigFile(cfg.Path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read rules file %s: %w", cfg.Path, err)
	}

	var file fileRuleSet
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", cfg.Path, err)
	}
	if file.Version == "" {
		return nil, fmt.Errorf("rules file %s missing version", cfg.Path)
	}
	rs.Version = file.Version

	for name, fc := range file.Categories {
		cat, err := domain.ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("rules file %s: %w", cfg.Path, err)
		}
		cr := rs.Categories[cat]
		if len(fc.Groups) > 0 {
			cr.Groups = fc.Groups
		}
		if len(fc.RequiredFields) > 0 {
			cr.RequiredFields = fc.RequiredFields
		}
		if fc.Prompt != "" {
			cr.Template.PromptTemplate = fc.Prompt
		}
		if fc.Conclusion != "" {
			cr.Template.ConclusionTemplate = fc.Conclusion
		}
		rs.Categories[cat] = cr
	}

	for field, ruleList := range file.Fields {
		if _, known := rs.Fields[field]; !known {
			return nil, fmt.Errorf("rules file %s: unknown field %q", cfg.Path, field)
		}
		rs.Fields[field] = ruleList
	}
	if len(file.FieldOrder) > 0 {
		rs.FieldOrder = file.FieldOrder
	}
	for class, terms := range file.Sensitive {
		rs.Sensitive[class] = terms
	}

	logger.WithFields(logrus.Fields{
		"rules_version": rs.Version,
		"path":          cfg.Path,
	}).Info("Rule overrides applied")

	return rs, nil
}
