package service

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/medreport-server/internal/domain"
	"github.com/medreport-server/internal/rules"
	"github.com/medreport-server/pkg/textnorm"
)

var temporalPattern = regexp.MustCompile(`(?i)\b(?:há|ha|faz|fazem)\s+(\d+\s*(?:anos?|meses?|semanas?|dias?))\b`)
var agePattern = regexp.MustCompile(`(?i)\b(\d{1,3})\s*anos\b`)

// HallucinationValidatorService checks a draft against the source texts and
// produces the final report. Every sensitive clinical term in the draft must
// be traceable to the transcript, the patient notes or an extracted field;
// untraceable terms are replaced with the not-reported marker. When the
// number of corrections or the fabrication rate crosses the configured
// threshold the whole draft is discarded for the safe template.
type HallucinationValidatorService struct {
	logger   *logrus.Logger
	store    *rules.Store
	config   domain.PipelineConfig
	selector *TemplateSelectorService
}

// NewHallucinationValidatorService creates a hallucination validator.
func NewHallucinationValidatorService(store *rules.Store, selector *TemplateSelectorService, config domain.PipelineConfig, logger *logrus.Logger) *HallucinationValidatorService {
	return &HallucinationValidatorService{
		logger:   logger,
		store:    store,
		config:   config,
		selector: selector,
	}
}

// Validate runs the full check sequence. Drafts built from the safe template
// need no validation: they are traceable by construction and ship as
// BASIC_SAFE.
func (s *HallucinationValidatorService) Validate(ctx context.Context, draft *domain.ReportDraft, sources domain.SourceSet) (*domain.ValidationOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !draft.Generated {
		return &domain.ValidationOutcome{
			SafetyLevel:    domain.BASIC_SAFE,
			FinalReport:    RenderReport(draft),
			FallbackReason: draft.FallbackReason,
		}, nil
	}

	sourceText := s.sourceText(sources)
	foldedSource := textnorm.Fold(sourceText)

	sections := make(map[string]string, len(draft.Sections))
	for name, text := range draft.Sections {
		sections[name] = text
	}

	var corrections []domain.Correction
	sensitiveFound := 0
	sensitiveFlagged := 0

	// Sensitive clinical terms, class by class in stable order so repeated
	// validation of the same draft yields the same correction list.
	compiled := s.store.Active()
	classes := make([]string, 0, len(compiled.Sensitive))
	for class := range compiled.Sensitive {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	for _, class := range classes {
		canonical := compiled.Source.Sensitive[class]
		for i, folded := range compiled.Sensitive[class] {
			term := folded
			if i < len(canonical) {
				term = canonical[i]
			}
			for _, section := range domain.SectionOrder {
				foldedSection := textnorm.Fold(sections[section])
				if !textnorm.ContainsWord(foldedSection, folded) {
					continue
				}
				sensitiveFound++
				if textnorm.ContainsWord(foldedSource, folded) || textnorm.ContainsStemmed(sourceText, term) {
					continue
				}
				sensitiveFlagged++
				sections[section] = replaceTerm(sections[section], term, folded)
				corrections = append(corrections, domain.Correction{
					Term:     term,
					Category: class,
					Action:   domain.ActionReplaced,
					Section:  section,
				})
			}
		}
	}

	// Timeframes the source never stated.
	for _, section := range domain.SectionOrder {
		text := sections[section]
		var sectionCorrections []domain.Correction
		text = temporalPattern.ReplaceAllStringFunc(text, func(match string) string {
			period := temporalPattern.FindStringSubmatch(match)[1]
			if textnorm.ContainsWord(foldedSource, textnorm.Fold(period)) {
				return match
			}
			sectionCorrections = append(sectionCorrections, domain.Correction{
				Term:     period,
				Category: "temporal",
				Action:   domain.ActionReplaced,
				Section:  section,
			})
			return "[Tempo não especificado]"
		})
		sections[section] = text
		corrections = append(corrections, sectionCorrections...)
	}

	// An age the patient never gave.
	if !sources.Record.Has(domain.FieldIdade) {
		for _, section := range domain.SectionOrder {
			text := sections[section]
			var sectionCorrections []domain.Correction
			text = agePattern.ReplaceAllStringFunc(text, func(match string) string {
				if textnorm.ContainsWord(foldedSource, textnorm.Fold(match)) {
					return match
				}
				sectionCorrections = append(sectionCorrections, domain.Correction{
					Term:     match,
					Category: "dados_pessoais",
					Action:   domain.ActionReplaced,
					Section:  section,
				})
				return domain.NotInformed
			})
			sections[section] = text
			corrections = append(corrections, sectionCorrections...)
		}
	}

	fabricationRate := 0.0
	if sensitiveFound > 0 {
		fabricationRate = float64(sensitiveFlagged) / float64(sensitiveFound)
	}

	// The fabrication rate needs enough sensitive terms in the draft to be
	// meaningful; a single flagged term out of one is a correction, not a
	// rejection.
	if len(corrections) > s.config.MaxCorrections ||
		(sensitiveFound > s.config.MaxCorrections && fabricationRate > s.config.MaxFabricationRate) {
		return s.fallback(draft, sources, corrections, fmt.Sprintf(
			"draft discarded: %d corrections, fabrication rate %.2f", len(corrections), fabricationRate))
	}

	outcome := &domain.ValidationOutcome{
		SafetyLevel: domain.SAFE,
		Corrections: corrections,
	}
	if len(corrections) > 0 {
		outcome.SafetyLevel = domain.CORRECTED_SAFE
	}

	corrected := &domain.ReportDraft{
		Sections:  sections,
		Category:  draft.Category,
		Generated: draft.Generated,
		Model:     draft.Model,
	}
	outcome.FinalReport = RenderReport(corrected)

	s.logger.WithFields(logrus.Fields{
		"safety_level":     outcome.SafetyLevel.String(),
		"corrections":      len(corrections),
		"sensitive_found":  sensitiveFound,
		"fabrication_rate": fabricationRate,
	}).Info("Draft validated")

	return outcome, nil
}

func (s *HallucinationValidatorService) fallback(draft *domain.ReportDraft, sources domain.SourceSet, corrections []domain.Correction, reason string) (*domain.ValidationOutcome, error) {
	tmpl, err := s.selector.Select(draft.Category)
	if err != nil {
		return nil, err
	}

	safe := BuildSafeDraft(tmpl, sources.Record)

	s.logger.WithFields(logrus.Fields{
		"category":    draft.Category.String(),
		"corrections": len(corrections),
	}).Warn("Validation rejected generated draft, reverting to safe template")

	return &domain.ValidationOutcome{
		SafetyLevel:    domain.BASIC_SAFE,
		Corrections:    corrections,
		FinalReport:    RenderReport(safe),
		FallbackReason: reason,
	}, nil
}

// sourceText is the union of texts a report statement may come from.
func (s *HallucinationValidatorService) sourceText(sources domain.SourceSet) string {
	parts := []string{sources.Transcript, sources.Notes}
	parts = append(parts, sources.Record.Values()...)
	return strings.Join(parts, "\n")
}

// replaceTerm substitutes every occurrence of the term, in canonical or
// accent-stripped spelling, with the not-reported marker.
func replaceTerm(text, canonical, folded string) string {
	for _, variant := range []string{canonical, folded} {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(variant) + `\b`)
		if err != nil {
			continue
		}
		text = re.ReplaceAllString(text, NotReported)
	}
	return text
}
