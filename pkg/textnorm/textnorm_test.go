package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase passthrough", "dor lombar", "dor lombar"},
		{"uppercase", "BPC", "bpc"},
		{"accents stripped", "Deficiência", "deficiencia"},
		{"cedilla", "limitação", "limitacao"},
		{"mixed", "Ressonância Magnética", "ressonancia magnetica"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Fold(tt.input))
		})
	}
}

func TestStem(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"medicamentos", "medicamento"},
		{"exames", "exame"},
		{"limitacoes", "limitacao"},
		{"dor", "dor"},
		{"anos", "ano"},
		{"pes", "pe"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Stem(tt.input))
		})
	}
}

func TestContainsWord(t *testing.T) {
	text := Fold("Paciente com dor lombar cronica e hipertensao arterial")

	assert.True(t, ContainsWord(text, "dor lombar"))
	assert.True(t, ContainsWord(text, "hipertensao"))
	assert.False(t, ContainsWord(text, "dor cervical"))

	// Substrings inside larger words must not match.
	assert.False(t, ContainsWord(Fold("desidratado"), "dor"))
	assert.False(t, ContainsWord(text, ""))
}

func TestContainsWordBoundaries(t *testing.T) {
	assert.True(t, ContainsWord("dor, intensa", "dor"))
	assert.True(t, ContainsWord("(bpc)", "bpc"))
	assert.False(t, ContainsWord("lombalgia", "alg"))
}

func TestContainsStemmed(t *testing.T) {
	src := "Paciente faz uso de medicamentos e realizou exames de imagem"

	assert.True(t, ContainsStemmed(src, "medicamento"))
	assert.True(t, ContainsStemmed(src, "exame de imagem"))
	assert.False(t, ContainsStemmed(src, "losartana"))
}
