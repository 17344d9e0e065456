package service

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medreport-server/internal/domain"
	"github.com/medreport-server/internal/rules"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func testPipelineConfig() domain.PipelineConfig {
	return domain.PipelineConfig{
		MinGroupsForCategory: 1,
		MediumCompleteness:   0.5,
		HighCompleteness:     0.8,
		MaxCorrections:       3,
		MaxFabricationRate:   0.30,
	}
}

func testStore(t *testing.T) *rules.Store {
	t.Helper()
	store, err := rules.NewStore(rules.Default(), 4, testLogger())
	require.NoError(t, err)
	return store
}

func newClassifier(t *testing.T) *ContextClassifierService {
	t.Helper()
	return NewContextClassifierService(testStore(t), testPipelineConfig(), testLogger())
}

func TestClassifyBenefitCategories(t *testing.T) {
	classifier := newClassifier(t)

	tests := []struct {
		name     string
		text     string
		expected domain.BenefitCategory
	}{
		{
			name:     "bpc with adl dependence",
			text:     "Maria, 52 anos, AVC há 3 anos, depende da filha para se vestir e tomar banho, solicita BPC",
			expected: domain.BPC,
		},
		{
			name:     "work incapacity with inss",
			text:     "João, 38 anos, pedreiro, dor no ombro há 2 meses após carregar cimento, não consegue levantar o braço, quer afastamento do INSS",
			expected: domain.INCAPACIDADE,
		},
		{
			name:     "no category keywords defaults to general clinical",
			text:     "dor de cabeça leve",
			expected: domain.CLINICA_GERAL,
		},
		{
			name:     "legal expertise",
			text:     "Paciente encaminhado para perícia médica, avaliar nexo causal com acidente de trabalho e sequela no punho",
			expected: domain.PERICIA,
		},
		{
			name:     "tax exemption for serious illness",
			text:     "Paciente com câncer de mama em quimioterapia solicita isenção de imposto de renda",
			expected: domain.ISENCAO_IR,
		},
		{
			name:     "accident assistance",
			text:     "Sofri um acidente de moto e fiquei com sequela permanente, quero auxílio-acidente",
			expected: domain.AUXILIO_ACIDENTE,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := classifier.Classify(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result.Category)
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	classifier := newClassifier(t)
	text := "Maria, 52 anos, AVC há 3 anos, depende da filha para se vestir, solicita BPC"

	first, err := classifier.Classify(text)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := classifier.Classify(text)
		require.NoError(t, err)
		assert.Equal(t, first.Category, again.Category)
		assert.Equal(t, first.ConfidenceTier, again.ConfidenceTier)
		assert.Equal(t, first.MatchedKeywords, again.MatchedKeywords)
	}
}

func TestClassifyAccentInsensitive(t *testing.T) {
	classifier := newClassifier(t)

	withAccents, err := classifier.Classify("Paciente com deficiência grave, precisa de cuidador, assistência social")
	require.NoError(t, err)
	withoutAccents, err := classifier.Classify("Paciente com deficiencia grave, precisa de cuidador, assistencia social")
	require.NoError(t, err)

	assert.Equal(t, domain.BPC, withAccents.Category)
	assert.Equal(t, withAccents.Category, withoutAccents.Category)
	assert.Equal(t, withAccents.ConfidenceTier, withoutAccents.ConfidenceTier)
}

func TestClassifyTieBreakFollowsPriority(t *testing.T) {
	classifier := newClassifier(t)

	// "pericia medica" and "inss" give PERICIA and INCAPACIDADE one group
	// each; PERICIA has the higher documented priority.
	result, err := classifier.Classify("Encaminhado pelo INSS para perícia médica")
	require.NoError(t, err)
	assert.Equal(t, domain.PERICIA, result.Category)
	assert.Equal(t, 1, result.ConfidenceTier)
}

func TestClassifyGroupCountsOnce(t *testing.T) {
	classifier := newClassifier(t)

	// Three synonyms of the same BPC group must not outrank two distinct
	// groups of another category.
	result, err := classifier.Classify("bpc loas prestação continuada, mas o foco é afastamento do trabalho pelo inss")
	require.NoError(t, err)

	var bpcScore, incapScore domain.CategoryScore
	for _, sc := range result.AllScores {
		switch sc.Category {
		case domain.BPC:
			bpcScore = sc
		case domain.INCAPACIDADE:
			incapScore = sc
		}
	}
	assert.Equal(t, 1, bpcScore.GroupsMatched)
	assert.Len(t, bpcScore.MatchedKeywords, 3)
	assert.Equal(t, 3, incapScore.GroupsMatched)
	assert.Equal(t, domain.INCAPACIDADE, result.Category)
}

func TestClassifyEmptyInput(t *testing.T) {
	classifier := newClassifier(t)

	result, err := classifier.Classify("")
	require.NoError(t, err)
	assert.Equal(t, domain.CLINICA_GERAL, result.Category)
	assert.Equal(t, 0, result.ConfidenceTier)
	assert.Empty(t, result.MatchedKeywords)
}

func TestClassifyRecordsRulesVersion(t *testing.T) {
	classifier := newClassifier(t)

	result, err := classifier.Classify("solicita BPC")
	require.NoError(t, err)
	assert.Equal(t, rules.BuiltinVersion, result.RulesVersion)
}
