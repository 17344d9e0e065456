package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medreport-server/internal/domain"
)

type fakeCompleter struct {
	response string
	err      error
	calls    int

	lastSystem string
	lastUser   string
}

func (f *fakeCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	f.lastSystem = systemPrompt
	f.lastUser = userPrompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func mediumExtraction() *domain.ExtractionResult {
	return &domain.ExtractionResult{
		Record: domain.PatientRecord{
			domain.FieldNome:            {Value: "João Santos", SourceSpan: "João Santos, 38 anos", RuleID: "nome-idade-inline", Confidence: 0.9},
			domain.FieldIdade:           {Value: "38", SourceSpan: "38 anos", RuleID: "idade-num-anos", Confidence: 0.8},
			domain.FieldQueixaPrincipal: {Value: "dor no ombro", SourceSpan: "dor no ombro direito", RuleID: "queixa-dor-local", Confidence: 0.9},
		},
		Completeness:  domain.COMPLETENESS_MEDIUM,
		Confidence:    0.5,
		MissingFields: []string{domain.FieldProfissao, domain.FieldInicioSintomas},
	}
}

func newGenerator(t *testing.T, completer TextCompleter) *ReportGeneratorService {
	t.Helper()
	return NewReportGeneratorService(completer, testPipelineConfig(), "gpt-4o-mini", testLogger())
}

func selectTemplate(t *testing.T, category domain.BenefitCategory) *domain.CategoryTemplate {
	t.Helper()
	tmpl, err := NewTemplateSelectorService(testStore(t)).Select(category)
	require.NoError(t, err)
	return tmpl
}

func TestGenerateUsesModelProseForHistory(t *testing.T) {
	completer := &fakeCompleter{response: "  Paciente relata dor no ombro direito há semanas.\n"}
	gen := newGenerator(t, completer)
	tmpl := selectTemplate(t, domain.INCAPACIDADE)

	draft, err := gen.Generate(context.Background(), tmpl, mediumExtraction(), "transcrição da consulta")
	require.NoError(t, err)

	assert.True(t, draft.Generated)
	assert.Equal(t, "gpt-4o-mini", draft.Model)
	assert.Equal(t, domain.INCAPACIDADE, draft.Category)
	assert.Equal(t, "Paciente relata dor no ombro direito há semanas.", draft.Sections[domain.SectionHistory])

	// Only the history section comes from the model. Everything else is
	// rendered from the record.
	assert.Contains(t, draft.Sections[domain.SectionIdentification], "João Santos")
	assert.Contains(t, draft.Sections[domain.SectionIdentification], "38 anos")
	assert.Equal(t, "dor no ombro", draft.Sections[domain.SectionChiefComplaint])
	assert.Equal(t, tmpl.ConclusionTemplate, draft.Sections[domain.SectionConclusion])
	assert.Equal(t, 1, completer.calls)
}

func TestGeneratePromptCarriesFactsAndGaps(t *testing.T) {
	completer := &fakeCompleter{response: "História clínica."}
	gen := newGenerator(t, completer)
	tmpl := selectTemplate(t, domain.INCAPACIDADE)

	_, err := gen.Generate(context.Background(), tmpl, mediumExtraction(), "Doutor, machuquei o ombro.")
	require.NoError(t, err)

	assert.Equal(t, tmpl.PromptTemplate, completer.lastSystem)
	assert.Contains(t, completer.lastUser, "FATOS EXPLÍCITOS EXTRAÍDOS")
	assert.Contains(t, completer.lastUser, "João Santos")
	assert.Contains(t, completer.lastUser, `frase original: "dor no ombro direito"`)
	assert.Contains(t, completer.lastUser, "INFORMAÇÕES NÃO FORNECIDAS")
	assert.Contains(t, completer.lastUser, domain.FieldProfissao)
	assert.Contains(t, completer.lastUser, "Doutor, machuquei o ombro.")
	assert.Contains(t, completer.lastUser, "HISTÓRIA CLÍNICA")
}

func TestGenerateLowCompletenessSkipsModel(t *testing.T) {
	completer := &fakeCompleter{response: "não deveria ser chamado"}
	gen := newGenerator(t, completer)
	tmpl := selectTemplate(t, domain.CLINICA_GERAL)

	extraction := &domain.ExtractionResult{
		Record:       domain.PatientRecord{},
		Completeness: domain.COMPLETENESS_LOW,
	}

	draft, err := gen.Generate(context.Background(), tmpl, extraction, "dor de cabeça leve")
	require.NoError(t, err)

	assert.False(t, draft.Generated)
	assert.Empty(t, draft.FallbackReason, "low completeness is the expected path, not a fallback")
	assert.Equal(t, "safe-template", draft.Model)
	assert.Equal(t, 0, completer.calls)
	assert.Contains(t, draft.Sections[domain.SectionIdentification], domain.NotInformed)
}

func TestGenerateFallsBackWhenModelFails(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("upstream timeout")}
	gen := newGenerator(t, completer)
	tmpl := selectTemplate(t, domain.INCAPACIDADE)

	draft, err := gen.Generate(context.Background(), tmpl, mediumExtraction(), "")
	require.NoError(t, err, "a model outage must not fail the consultation")

	assert.False(t, draft.Generated)
	assert.Equal(t, "text generation service unavailable", draft.FallbackReason)
	assert.Equal(t, "safe-template", draft.Model)
	assert.Equal(t, 1, completer.calls)
	assert.Contains(t, draft.Sections[domain.SectionIdentification], "João Santos")
}

func TestGenerateOutageReasonSurvivesValidation(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("upstream timeout")}
	gen := newGenerator(t, completer)
	validator := newValidator(t)
	tmpl := selectTemplate(t, domain.INCAPACIDADE)

	extraction := mediumExtraction()
	extraction.Completeness = domain.COMPLETENESS_HIGH

	draft, err := gen.Generate(context.Background(), tmpl, extraction, "")
	require.NoError(t, err)

	outcome, err := validator.Validate(context.Background(), draft, domain.SourceSet{Record: extraction.Record})
	require.NoError(t, err)

	assert.Equal(t, domain.BASIC_SAFE, outcome.SafetyLevel)
	assert.Equal(t, "text generation service unavailable", outcome.FallbackReason)
}

func TestGenerateHighCompletenessCallsModel(t *testing.T) {
	completer := &fakeCompleter{response: "História completa."}
	gen := newGenerator(t, completer)
	tmpl := selectTemplate(t, domain.BPC)

	extraction := mediumExtraction()
	extraction.Completeness = domain.COMPLETENESS_HIGH

	draft, err := gen.Generate(context.Background(), tmpl, extraction, "")
	require.NoError(t, err)

	assert.True(t, draft.Generated)
	assert.Equal(t, 1, completer.calls)
}
