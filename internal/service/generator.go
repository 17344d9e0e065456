package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/medreport-server/internal/domain"
)

// TextCompleter is the slice of the external AI client the generator needs.
type TextCompleter interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ReportGeneratorService builds report drafts. With MEDIUM or HIGH
// completeness it asks the text generation service for the clinical history
// prose under the documentation-only contract; identification, conclusion
// and the other fixed sections are always rendered deterministically from
// the record. With LOW completeness, or when generation fails, it falls
// back to the fully deterministic safe draft rather than surfacing an error.
type ReportGeneratorService struct {
	logger    *logrus.Logger
	completer TextCompleter
	config    domain.PipelineConfig
	model     string
}

// NewReportGeneratorService creates a report generator. model is recorded on
// generated drafts for auditability.
func NewReportGeneratorService(completer TextCompleter, config domain.PipelineConfig, model string, logger *logrus.Logger) *ReportGeneratorService {
	return &ReportGeneratorService{
		logger:    logger,
		completer: completer,
		config:    config,
		model:     model,
	}
}

// Generate produces a draft for the selected template and extraction result.
func (s *ReportGeneratorService) Generate(ctx context.Context, tmpl *domain.CategoryTemplate, extraction *domain.ExtractionResult, transcript string) (*domain.ReportDraft, error) {
	if !extraction.Completeness.AllowsGeneration() {
		s.logger.WithFields(logrus.Fields{
			"category":     tmpl.Category.String(),
			"completeness": extraction.Completeness.String(),
		}).Info("Low completeness, using safe template")
		return BuildSafeDraft(tmpl, extraction.Record), nil
	}

	callCtx := ctx
	if s.config.ExternalCallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.config.ExternalCallTimeout)
		defer cancel()
	}

	history, err := s.completer.Complete(callCtx, tmpl.PromptTemplate, s.buildFactsPrompt(extraction, transcript))
	if err != nil {
		// Never fail a consultation because the model is down. The safe
		// draft carries less prose but every report still ships, and the
		// outage is recorded so the response is distinguishable from the
		// low-completeness path.
		s.logger.WithError(err).WithField("category", tmpl.Category.String()).
			Warn("Text generation failed, falling back to safe template")
		draft := BuildSafeDraft(tmpl, extraction.Record)
		draft.FallbackReason = "text generation service unavailable"
		return draft, nil
	}

	draft := BuildSafeDraft(tmpl, extraction.Record)
	draft.Sections[domain.SectionHistory] = strings.TrimSpace(history)
	draft.Generated = true
	draft.Model = s.model

	return draft, nil
}

// buildFactsPrompt lists the extracted facts with their source phrases and
// names what is missing. The model sees only this summary and the
// transcript, nothing to embellish from.
func (s *ReportGeneratorService) buildFactsPrompt(extraction *domain.ExtractionResult, transcript string) string {
	var b strings.Builder

	b.WriteString("FATOS EXPLÍCITOS EXTRAÍDOS:\n")
	if len(extraction.Record) == 0 {
		b.WriteString("- nenhum\n")
	}
	for _, field := range fieldPromptOrder {
		v, ok := extraction.Record[field]
		if !ok {
			continue
		}
		b.WriteString(fmt.Sprintf("- %s: %s (frase original: \"%s\")\n", field, v.Value, v.SourceSpan))
	}

	if len(extraction.MissingFields) > 0 {
		b.WriteString("\nINFORMAÇÕES NÃO FORNECIDAS: ")
		b.WriteString(strings.Join(extraction.MissingFields, ", "))
		b.WriteString("\n")
	}

	if transcript != "" {
		b.WriteString("\nTRANSCRIÇÃO DA CONSULTA:\n")
		b.WriteString(transcript)
		b.WriteString("\n")
	}

	b.WriteString("\nGere APENAS o texto da seção HISTÓRIA CLÍNICA, baseado exclusivamente nos fatos acima.")
	return b.String()
}

var fieldPromptOrder = []string{
	domain.FieldNome,
	domain.FieldIdade,
	domain.FieldProfissao,
	domain.FieldQueixaPrincipal,
	domain.FieldInicioSintomas,
	domain.FieldLimitacoesFuncionais,
	domain.FieldDependenciaAVD,
	domain.FieldNecessidadeCuidador,
	domain.FieldTratamentos,
	domain.FieldCitacoes,
}
