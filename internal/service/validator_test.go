package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medreport-server/internal/domain"
)

func newValidator(t *testing.T) *HallucinationValidatorService {
	t.Helper()
	store := testStore(t)
	selector := NewTemplateSelectorService(store)
	return NewHallucinationValidatorService(store, selector, testPipelineConfig(), testLogger())
}

func generatedDraft(history string) *domain.ReportDraft {
	return &domain.ReportDraft{
		Sections: map[string]string{
			domain.SectionIdentification: "Paciente em avaliação para benefício previdenciário.",
			domain.SectionChiefComplaint: "Dor no ombro direito.",
			domain.SectionHistory:        history,
		},
		Category:  domain.INCAPACIDADE,
		Generated: true,
		Model:     "gpt-4o-mini",
	}
}

func TestValidateReplacesUnsupportedMedication(t *testing.T) {
	validator := newValidator(t)

	draft := generatedDraft("Paciente relata dor no ombro. Faz uso de losartana para controle pressórico.")
	sources := domain.SourceSet{
		Transcript: "Doutor, estou com dor no ombro desde o acidente no trabalho.",
		Record:     domain.PatientRecord{},
	}

	outcome, err := validator.Validate(context.Background(), draft, sources)
	require.NoError(t, err)

	assert.Equal(t, domain.CORRECTED_SAFE, outcome.SafetyLevel)
	require.Len(t, outcome.Corrections, 1)
	assert.Equal(t, "losartana", outcome.Corrections[0].Term)
	assert.Equal(t, "medicamentos", outcome.Corrections[0].Category)
	assert.Equal(t, domain.ActionReplaced, outcome.Corrections[0].Action)
	assert.Equal(t, domain.SectionHistory, outcome.Corrections[0].Section)

	assert.NotContains(t, outcome.FinalReport, "losartana")
	assert.Contains(t, outcome.FinalReport, NotReported)
	// The untouched parts of the section survive the correction.
	assert.Contains(t, outcome.FinalReport, "dor no ombro")
}

func TestValidatePassesSupportedTerms(t *testing.T) {
	validator := newValidator(t)

	draft := generatedDraft("Paciente hipertenso, em uso de losartana, relata dor no ombro.")
	sources := domain.SourceSet{
		Transcript: "Tomo losartana todo dia e mesmo assim a dor no ombro não passa.",
		Record:     domain.PatientRecord{},
	}

	outcome, err := validator.Validate(context.Background(), draft, sources)
	require.NoError(t, err)

	assert.Equal(t, domain.SAFE, outcome.SafetyLevel)
	assert.Empty(t, outcome.Corrections)
	assert.Contains(t, outcome.FinalReport, "losartana")
	assert.Empty(t, outcome.FallbackReason)
}

func TestValidateMatchesSourceAccentInsensitively(t *testing.T) {
	validator := newValidator(t)

	// Draft spells the disease with accents, the transcript without. The
	// term is still traceable and must not be flagged.
	draft := generatedDraft("Paciente com hipertensão de longa data.")
	sources := domain.SourceSet{
		Transcript: "Tenho hipertensao ha muitos anos, disse o paciente.",
		Record:     domain.PatientRecord{},
	}

	outcome, err := validator.Validate(context.Background(), draft, sources)
	require.NoError(t, err)

	assert.Equal(t, domain.SAFE, outcome.SafetyLevel)
	assert.Contains(t, outcome.FinalReport, "hipertensão")
}

func TestValidateDiscardsHeavilyFabricatedDraft(t *testing.T) {
	validator := newValidator(t)

	draft := generatedDraft("Em uso de captopril, losartana, metformina e omeprazol. " +
		"Realizou colonoscopia e endoscopia recentemente.")
	sources := domain.SourceSet{
		Transcript: "Estou com dor no ombro há 2 meses.",
		Record: domain.PatientRecord{
			domain.FieldQueixaPrincipal: {Value: "dor no ombro"},
		},
	}

	outcome, err := validator.Validate(context.Background(), draft, sources)
	require.NoError(t, err)

	assert.Equal(t, domain.BASIC_SAFE, outcome.SafetyLevel)
	assert.Greater(t, len(outcome.Corrections), testPipelineConfig().MaxCorrections)
	assert.NotEmpty(t, outcome.FallbackReason)

	// The fallback report is rebuilt from the safe template, not from the
	// corrected draft.
	assert.NotContains(t, outcome.FinalReport, "captopril")
	assert.NotContains(t, outcome.FinalReport, "colonoscopia")
	assert.Contains(t, outcome.FinalReport, "LAUDO MÉDICO")
	assert.Contains(t, outcome.FinalReport, "dor no ombro")
}

func TestValidateSkipsSafeTemplateDrafts(t *testing.T) {
	validator := newValidator(t)

	draft := &domain.ReportDraft{
		Sections: map[string]string{
			domain.SectionHistory: "Paciente relata: \"dor nas costas\".",
		},
		Category:  domain.CLINICA_GERAL,
		Generated: false,
		Model:     "safe-template",
	}

	outcome, err := validator.Validate(context.Background(), draft, domain.SourceSet{Record: domain.PatientRecord{}})
	require.NoError(t, err)

	assert.Equal(t, domain.BASIC_SAFE, outcome.SafetyLevel)
	assert.Empty(t, outcome.Corrections)
	assert.Contains(t, outcome.FinalReport, "dor nas costas")
}

func TestValidateReplacesUnsupportedTimeframe(t *testing.T) {
	validator := newValidator(t)

	draft := generatedDraft("Sintomas iniciados há 6 meses, com piora progressiva.")
	sources := domain.SourceSet{
		Transcript: "A dor começou depois do acidente, não sei dizer quando.",
		Record:     domain.PatientRecord{},
	}

	outcome, err := validator.Validate(context.Background(), draft, sources)
	require.NoError(t, err)

	assert.Equal(t, domain.CORRECTED_SAFE, outcome.SafetyLevel)
	require.Len(t, outcome.Corrections, 1)
	assert.Equal(t, "6 meses", outcome.Corrections[0].Term)
	assert.Equal(t, "temporal", outcome.Corrections[0].Category)
	assert.Contains(t, outcome.FinalReport, "[Tempo não especificado]")
	assert.NotContains(t, outcome.FinalReport, "6 meses")
}

func TestValidateKeepsTimeframeStatedInSource(t *testing.T) {
	validator := newValidator(t)

	draft := generatedDraft("Sintomas iniciados há 2 meses.")
	sources := domain.SourceSet{
		Transcript: "Machuquei o ombro há 2 meses carregando cimento.",
		Record:     domain.PatientRecord{},
	}

	outcome, err := validator.Validate(context.Background(), draft, sources)
	require.NoError(t, err)

	assert.Equal(t, domain.SAFE, outcome.SafetyLevel)
	assert.Contains(t, outcome.FinalReport, "há 2 meses")
}

func TestValidateReplacesUnstatedAge(t *testing.T) {
	validator := newValidator(t)

	draft := generatedDraft("Paciente de 70 anos com quadro álgico crônico.")
	sources := domain.SourceSet{
		Transcript: "Sinto dor nas costas todo dia.",
		Record:     domain.PatientRecord{},
	}

	outcome, err := validator.Validate(context.Background(), draft, sources)
	require.NoError(t, err)

	assert.Equal(t, domain.CORRECTED_SAFE, outcome.SafetyLevel)
	require.Len(t, outcome.Corrections, 1)
	assert.Equal(t, "dados_pessoais", outcome.Corrections[0].Category)
	assert.Contains(t, outcome.FinalReport, domain.NotInformed)
	assert.NotContains(t, outcome.FinalReport, "70 anos")
}

func TestValidateKeepsAgeWhenRecordHasIt(t *testing.T) {
	validator := newValidator(t)

	draft := generatedDraft("Paciente de 52 anos em acompanhamento.")
	sources := domain.SourceSet{
		Transcript: "Maria, 52 anos, sequela de AVC.",
		Record: domain.PatientRecord{
			domain.FieldIdade: {Value: "52", SourceSpan: "52 anos", RuleID: "idade-num-anos"},
		},
	}

	outcome, err := validator.Validate(context.Background(), draft, sources)
	require.NoError(t, err)

	assert.Equal(t, domain.SAFE, outcome.SafetyLevel)
	assert.Contains(t, outcome.FinalReport, "52 anos")
}

func TestValidateTracesTermsToExtractedFields(t *testing.T) {
	validator := newValidator(t)

	// The term never appears in the transcript but was captured into the
	// patient record by the extractor, which counts as source support.
	draft := generatedDraft("Em tratamento com metformina.")
	sources := domain.SourceSet{
		Transcript: "Consulta de acompanhamento.",
		Record: domain.PatientRecord{
			domain.FieldTratamentos: {Value: "metformina", RuleID: "tratamento-uso"},
		},
	}

	outcome, err := validator.Validate(context.Background(), draft, sources)
	require.NoError(t, err)

	assert.Equal(t, domain.SAFE, outcome.SafetyLevel)
	assert.Contains(t, outcome.FinalReport, "metformina")
}

func TestValidateIsDeterministic(t *testing.T) {
	validator := newValidator(t)

	draft := func() *domain.ReportDraft {
		return generatedDraft("Uso de losartana e omeprazol sem prescrição relatada.")
	}
	sources := domain.SourceSet{
		Transcript: "Dor de estômago constante.",
		Record:     domain.PatientRecord{},
	}

	first, err := validator.Validate(context.Background(), draft(), sources)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		next, err := validator.Validate(context.Background(), draft(), sources)
		require.NoError(t, err)
		assert.Equal(t, first.Corrections, next.Corrections)
		assert.Equal(t, first.FinalReport, next.FinalReport)
		assert.Equal(t, first.SafetyLevel, next.SafetyLevel)
	}
}

func TestValidateLeavesInputDraftUntouched(t *testing.T) {
	validator := newValidator(t)

	draft := generatedDraft("Faz uso de losartana.")
	original := draft.Sections[domain.SectionHistory]
	sources := domain.SourceSet{Transcript: "Sem queixas.", Record: domain.PatientRecord{}}

	_, err := validator.Validate(context.Background(), draft, sources)
	require.NoError(t, err)

	assert.Equal(t, original, draft.Sections[domain.SectionHistory])
}

func TestValidateCancelledContext(t *testing.T) {
	validator := newValidator(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := validator.Validate(ctx, generatedDraft("qualquer texto"), domain.SourceSet{Record: domain.PatientRecord{}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidateCorrectionOrderFollowsSensitiveClasses(t *testing.T) {
	validator := newValidator(t)

	// One fabricated disease and one fabricated medication: classes are
	// visited in sorted order, so "doencas" precedes "medicamentos".
	draft := generatedDraft("Diagnóstico de fibromialgia, em uso de dipirona.")
	sources := domain.SourceSet{
		Transcript: "Dores difusas pelo corpo.",
		Record:     domain.PatientRecord{},
	}

	outcome, err := validator.Validate(context.Background(), draft, sources)
	require.NoError(t, err)

	require.Len(t, outcome.Corrections, 2)
	assert.Equal(t, "doencas", outcome.Corrections[0].Category)
	assert.Equal(t, "fibromialgia", outcome.Corrections[0].Term)
	assert.Equal(t, "medicamentos", outcome.Corrections[1].Category)
	assert.Equal(t, "dipirona", outcome.Corrections[1].Term)

	if !strings.Contains(outcome.FinalReport, NotReported) {
		t.Fatalf("expected replacements in final report, got:\n%s", outcome.FinalReport)
	}
}
