package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/medreport-server/internal/domain"
)

// AIClient is the slice of the resilient external client the pipeline needs
// for input resolution.
type AIClient interface {
	Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error)
	ExtractText(ctx context.Context, document []byte, filename string) (string, error)
}

// ConsultationPipeline orchestrates one consultation end to end: resolve
// audio and documents into text, classify the benefit context, extract
// fields, select the template, generate the draft and validate it. Every
// stage it passed through is recorded in the quality metadata.
type ConsultationPipeline struct {
	logger     *logrus.Logger
	ai         AIClient
	classifier domain.ContextClassifier
	extractor  domain.FieldExtractor
	selector   domain.TemplateSelector
	generator  domain.ReportGenerator
	validator  domain.HallucinationValidator
	config     domain.PipelineConfig
}

// NewConsultationPipeline wires the pipeline stages together.
func NewConsultationPipeline(
	ai AIClient,
	classifier domain.ContextClassifier,
	extractor domain.FieldExtractor,
	selector domain.TemplateSelector,
	generator domain.ReportGenerator,
	validator domain.HallucinationValidator,
	config domain.PipelineConfig,
	logger *logrus.Logger,
) *ConsultationPipeline {
	return &ConsultationPipeline{
		logger:     logger,
		ai:         ai,
		classifier: classifier,
		extractor:  extractor,
		selector:   selector,
		generator:  generator,
		validator:  validator,
		config:     config,
	}
}

// Process runs the full pipeline. Empty input is not an error: it flows
// through to the safe template with zero confidence, so the caller always
// receives a well-formed, conservative report.
func (p *ConsultationPipeline) Process(ctx context.Context, req *domain.ConsultationRequest) (*domain.ConsultationResult, error) {
	start := time.Now()
	requestID := uuid.New().String()
	path := make([]string, 0, 6)

	logger := p.logger.WithField("request_id", requestID)

	transcript, documentsText, err := p.resolveInputs(ctx, req)
	if err != nil {
		return nil, err
	}
	if transcript != "" {
		path = append(path, "transcription")
	}
	if documentsText != "" {
		path = append(path, "ocr")
	}

	fullText := joinNonEmpty(req.PatientNotes, transcript, documentsText)

	classification, err := p.classifier.Classify(fullText)
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}
	path = append(path, "classification")

	extraction, err := p.extractor.Extract(ctx, fullText, classification.Category)
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}
	path = append(path, "extraction")

	tmpl, err := p.selector.Select(classification.Category)
	if err != nil {
		return nil, fmt.Errorf("template selection failed: %w", err)
	}

	draft, err := p.generator.Generate(ctx, tmpl, extraction, fullText)
	if err != nil {
		return nil, fmt.Errorf("report generation failed: %w", err)
	}
	switch {
	case draft.Generated:
		path = append(path, "controlled_generation")
	case draft.FallbackReason != "":
		path = append(path, "generation_fallback")
	default:
		path = append(path, "safe_template")
	}

	outcome, err := p.validator.Validate(ctx, draft, domain.SourceSet{
		Transcript: transcript,
		Notes:      joinNonEmpty(req.PatientNotes, documentsText),
		Record:     extraction.Record,
	})
	if err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	switch {
	case draft.Generated && outcome.FallbackReason != "":
		path = append(path, "safe_fallback")
	case len(outcome.Corrections) > 0:
		path = append(path, "corrections_applied")
	case draft.Generated:
		path = append(path, "validation_passed")
	}

	result := &domain.ConsultationResult{
		RequestID:      requestID,
		Transcript:     transcript,
		DocumentsText:  documentsText,
		Record:         extraction.Record,
		Classification: *classification,
		Report:         outcome.FinalReport,
		Quality: domain.QualityMetadata{
			SafetyLevel:      outcome.SafetyLevel,
			Completeness:     extraction.Completeness,
			Confidence:       extraction.Confidence,
			PipelinePath:     path,
			Corrections:      outcome.Corrections,
			FallbackReason:   outcome.FallbackReason,
			RulesVersion:     extraction.RulesVersion,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		},
		CreatedAt: time.Now().UTC(),
	}

	logger.WithFields(logrus.Fields{
		"category":      classification.Category.String(),
		"completeness":  extraction.Completeness.String(),
		"safety_level":  outcome.SafetyLevel.String(),
		"pipeline_path": strings.Join(path, " -> "),
		"duration_ms":   result.Quality.ProcessingTimeMs,
	}).Info("Consultation processed")

	return result, nil
}

// resolveInputs runs transcription and OCR concurrently; neither depends on
// the other and both sit on slow external services.
func (p *ConsultationPipeline) resolveInputs(ctx context.Context, req *domain.ConsultationRequest) (string, string, error) {
	var transcript string
	var docTexts []string

	g, groupCtx := errgroup.WithContext(ctx)

	if len(req.Audio) > 0 {
		g.Go(func() error {
			text, err := p.ai.Transcribe(groupCtx, req.Audio, "consulta.ogg", req.LanguageHint)
			if err != nil {
				return fmt.Errorf("transcription failed: %w", err)
			}
			transcript = text
			return nil
		})
	}

	if len(req.Documents) > 0 {
		docTexts = make([]string, len(req.Documents))
		for i, doc := range req.Documents {
			g.Go(func() error {
				text, err := p.ai.ExtractText(groupCtx, doc, fmt.Sprintf("documento-%d.pdf", i+1))
				if err != nil {
					return fmt.Errorf("document %d OCR failed: %w", i+1, err)
				}
				docTexts[i] = text
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return "", "", err
	}

	return transcript, joinNonEmpty(docTexts...), nil
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}
