package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/medreport-server/internal/domain"
	"github.com/medreport-server/internal/rules"
	"github.com/medreport-server/pkg/textnorm"
)

// rejectedValues are captures too generic to be a real field value. The
// loose prose patterns occasionally grab a stray preposition; these never
// enter the record.
var rejectedValues = map[string]struct{}{
	"com": {}, "por": {}, "que": {}, "para": {}, "uso": {}, "de": {},
}

// FieldExtractorService populates a PatientRecord by running each field's
// prioritized pattern rules against the raw text. The first rule that
// matches wins the field; which rule fired is recorded on the value and
// logged so the rule tables can be measured offline.
type FieldExtractorService struct {
	logger *logrus.Logger
	store  *rules.Store
	config domain.PipelineConfig
	assist TextCompleter
}

// NewFieldExtractorService creates a field extractor.
func NewFieldExtractorService(store *rules.Store, config domain.PipelineConfig, logger *logrus.Logger) *FieldExtractorService {
	return &FieldExtractorService{
		logger: logger,
		store:  store,
		config: config,
	}
}

// EnableLLMAssist wires the optional second-pass extraction for fields the
// pattern rules left unfilled. It only takes effect when the pipeline config
// also enables it.
func (s *FieldExtractorService) EnableLLMAssist(completer TextCompleter) {
	s.assist = completer
}

// Extract runs the pattern rules over the text and grades completeness
// against the required fields of the given category. Empty input is not an
// error: it yields an empty record with LOW completeness and zero
// confidence, and the caller proceeds to the safe template.
func (s *FieldExtractorService) Extract(ctx context.Context, text string, category domain.BenefitCategory) (*domain.ExtractionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	compiled := s.store.Active()
	record := make(domain.PatientRecord)

	if strings.TrimSpace(text) != "" {
		for _, field := range compiled.FieldOrder {
			if value, ok := s.extractField(compiled.Fields[field], text, field); ok {
				record[field] = value
			}
		}
	}

	required := compiled.Source.Category(category).RequiredFields

	if s.config.LLMAssistEnabled && s.assist != nil && strings.TrimSpace(text) != "" {
		if missing := missingRequired(record, required); len(missing) > 0 {
			s.assistFill(ctx, text, missing, record)
		}
	}

	result := &domain.ExtractionResult{
		Record:       record,
		RulesVersion: s.store.Version(),
	}

	matched := 0
	for _, field := range required {
		if record.Has(field) {
			matched++
		} else {
			result.MissingFields = append(result.MissingFields, field)
		}
	}
	if len(required) > 0 {
		result.Confidence = float64(matched) / float64(len(required))
	}

	switch {
	case result.Confidence >= s.config.HighCompleteness:
		result.Completeness = domain.COMPLETENESS_HIGH
	case result.Confidence >= s.config.MediumCompleteness:
		result.Completeness = domain.COMPLETENESS_MEDIUM
	default:
		result.Completeness = domain.COMPLETENESS_LOW
	}

	s.logger.WithFields(logrus.Fields{
		"category":       category.String(),
		"fields_found":   len(record),
		"completeness":   result.Completeness.String(),
		"confidence":     result.Confidence,
		"missing_fields": result.MissingFields,
		"rules_version":  result.RulesVersion,
	}).Debug("Field extraction completed")

	return result, nil
}

// extractField evaluates one field's rules in priority order. Confidence
// decays with rule position: a rule further down the list is a weaker
// phrasing and its captures are trusted less.
func (s *FieldExtractorService) extractField(ruleList []rules.CompiledRule, text, field string) (domain.FieldValue, bool) {
	for i, rule := range ruleList {
		m := rule.Regexp.FindStringSubmatchIndex(text)
		if m == nil {
			continue
		}

		start, end := m[2*rule.Group], m[2*rule.Group+1]
		if start < 0 || end < 0 {
			continue
		}
		value := normalizeCapture(text[start:end])
		if value == "" {
			continue
		}

		confidence := 0.9 - 0.1*float64(i)
		if confidence < 0.5 {
			confidence = 0.5
		}

		s.logger.WithFields(logrus.Fields{
			"field":   field,
			"rule_id": rule.ID,
		}).Debug("Extraction rule fired")

		return domain.FieldValue{
			Value:      value,
			SourceSpan: strings.TrimSpace(text[m[0]:m[1]]),
			RuleID:     rule.ID,
			Confidence: confidence,
		}, true
	}
	return domain.FieldValue{}, false
}

func missingRequired(record domain.PatientRecord, required []string) []string {
	var missing []string
	for _, field := range required {
		if !record.Has(field) {
			missing = append(missing, field)
		}
	}
	return missing
}

const assistSystemPrompt = `Você extrai dados de consultas médicas transcritas.
Responda APENAS com um objeto JSON mapeando cada campo pedido ao trecho exato
do texto que o responde. Use null quando o texto não contém a informação.
NUNCA invente ou parafraseie: copie o trecho literalmente.`

// assistFill asks the model for the fields the patterns missed. A returned
// value is accepted only when it occurs verbatim in the source text; anything
// else is dropped, so the absent-if-not-found rule survives the second pass.
func (s *FieldExtractorService) assistFill(ctx context.Context, text string, fields []string, record domain.PatientRecord) {
	callCtx := ctx
	if s.config.ExternalCallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.config.ExternalCallTimeout)
		defer cancel()
	}

	prompt := fmt.Sprintf("CAMPOS: %s\n\nTEXTO:\n%s", strings.Join(fields, ", "), text)
	raw, err := s.assist.Complete(callCtx, assistSystemPrompt, prompt)
	if err != nil {
		s.logger.WithError(err).Warn("LLM-assisted extraction failed, keeping pattern results only")
		return
	}

	var candidates map[string]*string
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &candidates); err != nil {
		s.logger.WithError(err).Warn("LLM-assisted extraction returned unparseable output")
		return
	}

	folded := textnorm.Fold(text)
	wanted := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		wanted[field] = struct{}{}
	}

	for field, candidate := range candidates {
		if _, ok := wanted[field]; !ok || candidate == nil {
			continue
		}
		value := normalizeCapture(*candidate)
		if value == "" || !textnorm.ContainsWord(folded, textnorm.Fold(value)) {
			continue
		}

		s.logger.WithFields(logrus.Fields{
			"field":   field,
			"rule_id": "llm-assist",
		}).Debug("Extraction rule fired")

		record[field] = domain.FieldValue{
			Value:      value,
			SourceSpan: value,
			RuleID:     "llm-assist",
			Confidence: 0.5,
		}
	}
}

// extractJSONObject trims markdown fences and surrounding prose the model
// sometimes wraps its JSON in.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return raw
	}
	return raw[start : end+1]
}

func normalizeCapture(raw string) string {
	value := strings.TrimSpace(raw)
	value = strings.Trim(value, ".,;:")
	if len(value) < 2 {
		return ""
	}
	if _, rejected := rejectedValues[strings.ToLower(value)]; rejected {
		return ""
	}
	return value
}
