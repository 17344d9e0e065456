package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medreport-server/internal/domain"
)

type fakeAIClient struct {
	transcript    string
	docText       string
	transcribeErr error
	ocrErr        error

	transcribeCalls atomic.Int32
	ocrCalls        atomic.Int32
	lastLanguage    string
}

func (f *fakeAIClient) Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error) {
	f.transcribeCalls.Add(1)
	f.lastLanguage = language
	if f.transcribeErr != nil {
		return "", f.transcribeErr
	}
	return f.transcript, nil
}

func (f *fakeAIClient) ExtractText(ctx context.Context, document []byte, filename string) (string, error) {
	f.ocrCalls.Add(1)
	if f.ocrErr != nil {
		return "", f.ocrErr
	}
	return f.docText, nil
}

func newPipeline(t *testing.T, ai AIClient, completer TextCompleter) *ConsultationPipeline {
	t.Helper()
	store := testStore(t)
	config := testPipelineConfig()
	logger := testLogger()

	selector := NewTemplateSelectorService(store)
	return NewConsultationPipeline(
		ai,
		NewContextClassifierService(store, config, logger),
		NewFieldExtractorService(store, config, logger),
		selector,
		NewReportGeneratorService(completer, config, "gpt-4o-mini", logger),
		NewHallucinationValidatorService(store, selector, config, logger),
		config,
		logger,
	)
}

func TestProcessNotesOnlyConsultation(t *testing.T) {
	ai := &fakeAIClient{}
	completer := &fakeCompleter{
		response: "Paciente pedreiro relata dor no ombro após carregar cimento, com limitação para levantar o braço.",
	}
	pipeline := newPipeline(t, ai, completer)

	result, err := pipeline.Process(context.Background(), &domain.ConsultationRequest{
		PatientNotes: incapacidadeScenario,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.RequestID)
	assert.Equal(t, domain.INCAPACIDADE, result.Classification.Category)
	assert.Equal(t, domain.COMPLETENESS_HIGH, result.Quality.Completeness)
	assert.Equal(t, domain.SAFE, result.Quality.SafetyLevel)
	assert.Empty(t, result.Quality.Corrections)
	assert.Equal(t,
		[]string{"classification", "extraction", "controlled_generation", "validation_passed"},
		result.Quality.PipelinePath)

	assert.Contains(t, result.Report, "João")
	assert.Contains(t, result.Report, "dor no ombro")
	assert.Equal(t, int32(0), ai.transcribeCalls.Load())
	assert.Equal(t, int32(0), ai.ocrCalls.Load())
	assert.NotEmpty(t, result.Quality.RulesVersion)
	assert.False(t, result.CreatedAt.IsZero())
}

func TestProcessEmptyInputProducesConservativeReport(t *testing.T) {
	ai := &fakeAIClient{}
	completer := &fakeCompleter{response: "não deveria ser chamado"}
	pipeline := newPipeline(t, ai, completer)

	result, err := pipeline.Process(context.Background(), &domain.ConsultationRequest{})
	require.NoError(t, err, "empty input flows to the safe template, it is not an error")

	assert.Equal(t, domain.CLINICA_GERAL, result.Classification.Category)
	assert.Equal(t, 0, result.Classification.ConfidenceTier)
	assert.Equal(t, domain.COMPLETENESS_LOW, result.Quality.Completeness)
	assert.Equal(t, domain.BASIC_SAFE, result.Quality.SafetyLevel)
	assert.Equal(t, []string{"classification", "extraction", "safe_template"}, result.Quality.PipelinePath)
	assert.Empty(t, result.Quality.FallbackReason)
	assert.Equal(t, 0, completer.calls)
	assert.Contains(t, result.Report, domain.NotInformed)
	assert.Contains(t, result.Report, "LAUDO MÉDICO")
}

func TestProcessResolvesAudioAndDocumentsConcurrently(t *testing.T) {
	ai := &fakeAIClient{
		transcript: bpcScenario,
		docText:    "Relatório médico anexo: sequela de AVC, acompanhamento ambulatorial.",
	}
	completer := &fakeCompleter{
		response: "Paciente apresenta dependência da filha para atividades diárias desde o AVC.",
	}
	pipeline := newPipeline(t, ai, completer)

	result, err := pipeline.Process(context.Background(), &domain.ConsultationRequest{
		Audio:        []byte("ogg-bytes"),
		Documents:    [][]byte{[]byte("doc-1"), []byte("doc-2")},
		LanguageHint: "pt",
	})
	require.NoError(t, err)

	assert.Equal(t, int32(1), ai.transcribeCalls.Load())
	assert.Equal(t, "pt", ai.lastLanguage)
	assert.Equal(t, int32(2), ai.ocrCalls.Load())
	assert.Equal(t, bpcScenario, result.Transcript)
	assert.Contains(t, result.DocumentsText, "Relatório médico anexo")

	assert.Equal(t, domain.BPC, result.Classification.Category)
	assert.Equal(t, "transcription", result.Quality.PipelinePath[0])
	assert.Equal(t, "ocr", result.Quality.PipelinePath[1])
	assert.Contains(t, result.Report, "Maria")
}

func TestProcessTranscriptionFailureIsFatal(t *testing.T) {
	ai := &fakeAIClient{transcribeErr: errors.New("service unavailable")}
	pipeline := newPipeline(t, ai, &fakeCompleter{response: "x"})

	_, err := pipeline.Process(context.Background(), &domain.ConsultationRequest{
		Audio: []byte("ogg-bytes"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transcription failed")
}

func TestProcessCorrectsFabricatedProse(t *testing.T) {
	ai := &fakeAIClient{}
	completer := &fakeCompleter{
		response: "Paciente em uso de losartana, relata dor no ombro.",
	}
	pipeline := newPipeline(t, ai, completer)

	result, err := pipeline.Process(context.Background(), &domain.ConsultationRequest{
		PatientNotes: incapacidadeScenario,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.CORRECTED_SAFE, result.Quality.SafetyLevel)
	require.NotEmpty(t, result.Quality.Corrections)
	assert.Equal(t, "losartana", result.Quality.Corrections[0].Term)
	assert.Contains(t, result.Quality.PipelinePath, "corrections_applied")
	assert.NotContains(t, result.Report, "losartana")
	assert.Contains(t, result.Report, NotReported)
}

func TestProcessModelOutageStillShipsReport(t *testing.T) {
	ai := &fakeAIClient{}
	completer := &fakeCompleter{err: errors.New("model down")}
	pipeline := newPipeline(t, ai, completer)

	result, err := pipeline.Process(context.Background(), &domain.ConsultationRequest{
		PatientNotes: bpcScenario,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.BASIC_SAFE, result.Quality.SafetyLevel)
	assert.Contains(t, result.Quality.PipelinePath, "generation_fallback")
	assert.NotContains(t, result.Quality.PipelinePath, "safe_template",
		"a model outage must not look like the low-completeness path")
	assert.Equal(t, "text generation service unavailable", result.Quality.FallbackReason)
	assert.Contains(t, result.Report, "Maria")
	assert.Contains(t, result.Report, "52 anos")
}
