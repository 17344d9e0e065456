package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medreport-server/internal/domain"
)

func TestSelectReturnsTemplateForEveryCategory(t *testing.T) {
	selector := NewTemplateSelectorService(testStore(t))

	for _, cat := range domain.CategoryPriority {
		tmpl, err := selector.Select(cat)
		require.NoError(t, err, "category %s", cat)
		assert.Equal(t, cat, tmpl.Category)
		assert.NotEmpty(t, tmpl.PromptTemplate)
		assert.NotEmpty(t, tmpl.ConclusionTemplate)
		assert.NotEmpty(t, tmpl.RequiredFields)
	}
}

func TestSelectRejectsInvalidCategory(t *testing.T) {
	selector := NewTemplateSelectorService(testStore(t))

	_, err := selector.Select(domain.BenefitCategory("PENSAO"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidCategory)
}

func TestRequiredFieldsMatchCategoryFocus(t *testing.T) {
	selector := NewTemplateSelectorService(testStore(t))

	bpc, err := selector.RequiredFields(domain.BPC)
	require.NoError(t, err)
	assert.Contains(t, bpc, domain.FieldDependenciaAVD)
	assert.Contains(t, bpc, domain.FieldNecessidadeCuidador)
	assert.NotContains(t, bpc, domain.FieldProfissao)

	incap, err := selector.RequiredFields(domain.INCAPACIDADE)
	require.NoError(t, err)
	assert.Contains(t, incap, domain.FieldProfissao)
	assert.Contains(t, incap, domain.FieldLimitacoesFuncionais)
}

func TestSelectReturnsIndependentCopies(t *testing.T) {
	selector := NewTemplateSelectorService(testStore(t))

	first, err := selector.Select(domain.BPC)
	require.NoError(t, err)
	first.RequiredFields[0] = "mutated"

	second, err := selector.Select(domain.BPC)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", second.RequiredFields[0])
}
