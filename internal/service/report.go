package service

import (
	"fmt"
	"strings"

	"github.com/medreport-server/internal/domain"
)

// Portuguese section headers used when rendering a draft to final text.
var sectionTitles = map[string]string{
	domain.SectionIdentification: "IDENTIFICAÇÃO",
	domain.SectionChiefComplaint: "QUEIXA PRINCIPAL",
	domain.SectionHistory:        "HISTÓRIA CLÍNICA",
	domain.SectionFindings:       "EXAMES E DOCUMENTOS",
	domain.SectionConduct:        "TRATAMENTO",
	domain.SectionPrognosis:      "PROGNÓSTICO",
	domain.SectionDiagnosisCode:  "CID-10",
	domain.SectionConclusion:     "CONCLUSÃO",
}

// NotReported is the in-report marker for content absent from the source.
const NotReported = "[Não relatado na consulta]"

// RenderReport serializes a draft into the final report text, sections in
// canonical order. Empty sections are rendered with the not-reported marker
// rather than omitted, so every report has the same shape.
func RenderReport(draft *domain.ReportDraft) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("# LAUDO MÉDICO - %s\n", draft.Category.Description()))

	for _, section := range domain.SectionOrder {
		text := strings.TrimSpace(draft.Sections[section])
		if text == "" {
			text = NotReported
		}
		b.WriteString(fmt.Sprintf("\n## %s\n%s\n", sectionTitles[section], text))
	}

	b.WriteString("\n**MODALIDADE:** Telemedicina\n")
	b.WriteString("**OBSERVAÇÃO:** Documento baseado exclusivamente no relato do paciente e na documentação apresentada.\n")
	return b.String()
}

// BuildSafeDraft builds a report draft entirely from extracted fields and
// fixed phrasing. No model output is involved, so every statement is
// traceable to the record by construction. This is the LOW-completeness
// path and the fallback when validation rejects a generated draft.
func BuildSafeDraft(tmpl *domain.CategoryTemplate, record domain.PatientRecord) *domain.ReportDraft {
	sections := map[string]string{
		domain.SectionIdentification: identificationSection(record),
		domain.SectionChiefComplaint: record.Get(domain.FieldQueixaPrincipal),
		domain.SectionHistory:        safeHistory(record),
		domain.SectionFindings:       "[Não apresentados na consulta]",
		domain.SectionConduct:        record.Get(domain.FieldTratamentos),
		domain.SectionPrognosis:      "A ser avaliado conforme evolução clínica.",
		domain.SectionDiagnosisCode:  "[A ser atribuído pelo médico responsável]",
		domain.SectionConclusion:     tmpl.ConclusionTemplate,
	}

	return &domain.ReportDraft{
		Sections:  sections,
		Category:  tmpl.Category,
		Generated: false,
		Model:     "safe-template",
	}
}

func identificationSection(record domain.PatientRecord) string {
	lines := []string{
		"Nome: " + record.Get(domain.FieldNome),
		"Idade: " + ageLine(record),
		"Profissão: " + record.Get(domain.FieldProfissao),
	}
	return strings.Join(lines, "\n")
}

func ageLine(record domain.PatientRecord) string {
	if !record.Has(domain.FieldIdade) {
		return domain.NotInformed
	}
	return record.Get(domain.FieldIdade) + " anos"
}

// safeHistory stitches the timeline and limitation fields into fixed
// phrasing, quoting the captured source spans verbatim.
func safeHistory(record domain.PatientRecord) string {
	var parts []string
	if v, ok := record[domain.FieldInicioSintomas]; ok {
		parts = append(parts, fmt.Sprintf("Início dos sintomas conforme relato: \"%s\".", v.SourceSpan))
	}
	if v, ok := record[domain.FieldLimitacoesFuncionais]; ok {
		parts = append(parts, fmt.Sprintf("Limitação funcional relatada: \"%s\".", v.Value))
	}
	if v, ok := record[domain.FieldDependenciaAVD]; ok {
		parts = append(parts, fmt.Sprintf("Dependência para atividades diárias relatada: \"%s\".", v.Value))
	}
	if v, ok := record[domain.FieldNecessidadeCuidador]; ok {
		parts = append(parts, fmt.Sprintf("Necessidade de cuidador conforme relato: \"%s\".", v.Value))
	}
	if len(parts) == 0 {
		return "Baseado no relato da consulta de telemedicina. Detalhes adicionais não foram fornecidos."
	}
	return strings.Join(parts, " ")
}
