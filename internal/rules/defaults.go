package rules

import "github.com/medreport-server/internal/domain"

// BuiltinVersion identifies the compiled-in rule tables. YAML overrides
// carry their own version string so audit trails can tell them apart.
const BuiltinVersion = "builtin-2026.08"

// Default returns the built-in rule set. Keyword tables and pattern lists
// come from production tuning against telemedicine transcripts; they are the
// baseline any YAML override starts from.
func Default() *RuleSet {
	return &RuleSet{
		Version:    BuiltinVersion,
		Categories: defaultCategories(),
		Fields:     defaultFieldRules(),
		FieldOrder: []string{
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
		},
		Sensitive: defaultSensitiveTerms(),
	}
}

func defaultCategories() map[domain.BenefitCategory]CategoryRules {
	return map[domain.BenefitCategory]CategoryRules{
		domain.BPC: {
			Groups: []KeywordGroup{
				{Name: "beneficio", Terms: []string{
					"bpc", "beneficio de prestacao continuada", "prestacao continuada", "loas",
				}},
				{Name: "assistencia_social", Terms: []string{
					"assistencia social", "renda per capita", "vulnerabilidade social",
				}},
				{Name: "vida_independente", Terms: []string{
					"vida independente", "autonomia", "atividades basicas",
					"higiene pessoal", "depende", "dependente",
				}},
				{Name: "cuidador", Terms: []string{"cuidador", "cuidadora"}},
				{Name: "deficiencia", Terms: []string{"deficiencia", "incapacidade permanente"}},
			},
			RequiredFields: []string{
				domain.FieldNome,
				domain.FieldIdade,
				domain.FieldQueixaPrincipal,
				domain.FieldDependenciaAVD,
				domain.FieldNecessidadeCuidador,
			},
			Template: bpcTemplate,
		},
		domain.INCAPACIDADE: {
			Groups: []KeywordGroup{
				{Name: "beneficio", Terms: []string{
					"auxilio doenca", "aposentadoria por invalidez",
					"beneficio por incapacidade", "inss",
				}},
				{Name: "trabalho", Terms: []string{
					"trabalho", "profissao", "funcao", "atividade laboral",
				}},
				{Name: "incapacidade", Terms: []string{
					"incapacidade temporaria", "incapacidade laboral",
					"incapaz para o trabalho", "afastamento",
				}},
				{Name: "esforco", Terms: []string{"carregar peso", "esforco fisico", "movimento repetitivo"}},
			},
			RequiredFields: []string{
				domain.FieldNome,
				domain.FieldIdade,
				domain.FieldProfissao,
				domain.FieldQueixaPrincipal,
				domain.FieldLimitacoesFuncionais,
				domain.FieldInicioSintomas,
			},
			Template: incapacidadeTemplate,
		},
		domain.PERICIA: {
			Groups: []KeywordGroup{
				{Name: "pericia", Terms: []string{
					"pericia medica", "avaliacao pericial", "junta medica",
					"exame pericial", "laudo pericial",
				}},
				{Name: "nexo", Terms: []string{"nexo causal", "dano corporal", "acidente de trabalho"}},
				{Name: "sequela", Terms: []string{"sequela", "invalidez", "grau de comprometimento"}},
				{Name: "capacidade", Terms: []string{"capacidade laboral"}},
			},
			RequiredFields: []string{
				domain.FieldNome,
				domain.FieldIdade,
				domain.FieldQueixaPrincipal,
				domain.FieldInicioSintomas,
				domain.FieldLimitacoesFuncionais,
			},
			Template: periciaTemplate,
		},
		domain.ISENCAO_IR: {
			Groups: []KeywordGroup{
				{Name: "isencao", Terms: []string{
					"isencao", "imposto de renda", "isencao de ir",
				}},
				{Name: "doenca_grave", Terms: []string{
					"cancer", "neoplasia", "neoplasia maligna", "tumor", "doenca grave",
				}},
				{Name: "condicoes_lei", Terms: []string{
					"cardiopatia grave", "nefropatia grave", "hepatopatia grave",
					"esclerose multipla", "cegueira", "hanseniase",
				}},
			},
			RequiredFields: []string{
				domain.FieldNome,
				domain.FieldIdade,
				domain.FieldQueixaPrincipal,
				domain.FieldTratamentos,
			},
			Template: isencaoIRTemplate,
		},
		domain.AUXILIO_ACIDENTE: {
			Groups: []KeywordGroup{
				{Name: "beneficio", Terms: []string{"auxilio acidente", "auxilio-acidente"}},
				{Name: "acidente", Terms: []string{"acidente"}},
				{Name: "reducao", Terms: []string{
					"reducao da capacidade", "capacidade reduzida", "sequela permanente",
				}},
			},
			RequiredFields: []string{
				domain.FieldNome,
				domain.FieldIdade,
				domain.FieldProfissao,
				domain.FieldQueixaPrincipal,
				domain.FieldLimitacoesFuncionais,
			},
			Template: auxilioAcidenteTemplate,
		},
		domain.CLINICA_GERAL: {
			Groups: []KeywordGroup{
				{Name: "consulta", Terms: []string{
					"consulta medica", "acompanhamento", "exame de rotina", "check up",
				}},
				{Name: "sintomas", Terms: []string{"dor", "sintomas"}},
				{Name: "tratamento", Terms: []string{"tratamento", "medicacao"}},
			},
			RequiredFields: []string{
				domain.FieldNome,
				domain.FieldIdade,
				domain.FieldQueixaPrincipal,
			},
			Template: clinicaGeralTemplate,
		},
	}
}

// defaultFieldRules is the per-field prioritized pattern list. Patterns run
// against the raw (unfolded) text so captured values keep their accents;
// each alternative therefore spells out both accented and plain forms.
func defaultFieldRules() map[string][]PatternRule {
	return map[string][]PatternRule{
		domain.FieldNome: {
			{ID: "nome-apresentacao", Group: 1,
				Expr: `(?i)(?:meu nome é|meu nome e|me chamo|eu sou)\s+([\p{Lu}][\p{Ll}]+(?:\s+[\p{Lu}][\p{Ll}]+)*)`},
			{ID: "nome-rotulo", Group: 1,
				Expr: `(?i)(?:nome|paciente)\s*:\s*([\p{Lu}][\p{Ll}]+(?:\s+[\p{Lu}][\p{Ll}]+)*)`},
			{ID: "nome-idade-inline", Group: 1,
				Expr: `(?:^|\n)\s*([\p{Lu}][\p{Ll}]+(?:\s+[\p{Lu}][\p{Ll}]+)*)\s*,\s*\d{1,3}\s*anos`},
		},
		domain.FieldIdade: {
			{ID: "idade-tenho", Group: 1,
				Expr: `(?i)(?:tenho|com)\s+(\d{1,3})\s*anos`},
			{ID: "idade-num-anos", Group: 1,
				Expr: `(?i)\b(\d{1,3})\s*anos\b`},
		},
		domain.FieldProfissao: {
			{ID: "profissao-lexico", Group: 1,
				Expr: `(?i)\b(pedreiro|pedreira|auxiliar de serviços gerais|auxiliar de servicos gerais|operador de máquinas|operador de maquinas|secretári[ao]|secretari[ao]|enfermeir[ao]|professor[a]?|vendedor[a]?|técnic[ao]|tecnic[ao]|analista|motorista|costureir[ao]|agricultor[a]?|doméstic[ao]|domestic[ao]|cozinheir[ao]|soldador[a]?|pintor[a]?|eletricista|faxineir[ao]|porteir[ao]|metalúrgic[ao]|metalurgic[ao])\b`},
			{ID: "profissao-declarada", Group: 1,
				Expr: `(?i)(?:trabalho como|trabalha como|trabalhava como|profissão\s*:?|profissao\s*:?|atuo como)\s+([\p{Ll}]+(?:\s+de\s+[\p{Ll}]+)?)`},
		},
		domain.FieldQueixaPrincipal: {
			{ID: "queixa-dor-local", Group: 1,
				Expr: `(?i)\b(dor(?:es)?\s+(?:no|na|nos|nas)\s+[\p{Ll}]+)`},
			{ID: "queixa-condicao", Group: 1,
				Expr: `(?i)\b(avc|acidente vascular cerebral|derrame|infarto|fratura|hérnia de disco|hernia de disco|tendinite|lombalgia|enxaqueca|cefaleia|dor de cabeça|dor de cabeca|câncer|cancer|tumor|neoplasia)\b`},
			{ID: "queixa-relato", Group: 1,
				Expr: `(?i)(?:sinto|apresento|queixa de|com queixa de)\s+([\p{Ll}]+(?:\s+[\p{Ll}]+){0,4})`},
		},
		domain.FieldInicioSintomas: {
			{ID: "inicio-ha-periodo", Group: 1,
				Expr: `(?i)(?:há|ha|faz|fazem|desde)\s+(\d+\s*(?:anos?|meses?|semanas?|dias?))`},
			{ID: "inicio-comecou", Group: 1,
				Expr: `(?i)(?:começou|comecou|iniciou|surgiu)(?:\s+(?:há|ha))?\s+(\d+\s*(?:anos?|meses?))`},
			{ID: "inicio-atras", Group: 1,
				Expr: `(?i)(\d+\s*(?:anos?|meses?|semanas?|dias?))\s+atrás`},
		},
		domain.FieldLimitacoesFuncionais: {
			{ID: "limitacao-nao-consegue", Group: 1,
				Expr: `(?i)(n[ãa]o\s+consegu\w+\s+[\p{Ll}]+(?:\s+[\p{Ll}]+){0,5})`},
			{ID: "limitacao-dificuldade", Group: 1,
				Expr: `(?i)(dificuldade\s+(?:para|de)\s+[\p{Ll}]+(?:\s+[\p{Ll}]+){0,4})`},
			{ID: "limitacao-impossivel", Group: 1,
				Expr: `(?i)(imposs[íi]vel\s+[\p{Ll}]+(?:\s+[\p{Ll}]+){0,4})`},
		},
		domain.FieldDependenciaAVD: {
			{ID: "avd-depende-para", Group: 1,
				Expr: `(?i)(depende\s+d[aeo]\s+[\p{Ll}]+\s+para\s+[\p{Ll}]+(?:\s+[\p{Ll}]+){0,6})`},
			{ID: "avd-ajuda-para", Group: 1,
				Expr: `(?i)(precis[ao]\s+de\s+ajuda\s+para\s+[\p{Ll}]+(?:\s+[\p{Ll}]+){0,5})`},
			{ID: "avd-atividades", Group: 1,
				Expr: `(?i)(n[ãa]o\s+consegu\w+\s+(?:se\s+)?(?:vestir|tomar banho|comer|se alimentar|se locomover|andar)(?:\s+sozinh[ao])?)`},
		},
		domain.FieldNecessidadeCuidador: {
			{ID: "cuidador-explicito", Group: 1,
				Expr: `(?i)(precis[ao]\s+de\s+cuidador[a]?|necessita\s+de\s+cuidador[a]?|tem\s+cuidador[a]?)`},
			{ID: "cuidador-familiar", Group: 1,
				Expr: `(?i)depende\s+d[aeo]\s+(filh[ao]|espos[ao]|m[ãa]e|pai|irm[ãa][o]?|familiar|vizinh[ao])\b`},
		},
		domain.FieldTratamentos: {
			{ID: "tratamento-uso", Group: 1,
				Expr: `(?i)(?:tomo|faço uso de|faco uso de|uso\s+de|em uso de)\s+([\p{L}]+(?:\s+[\p{L}]+){0,3})`},
			{ID: "tratamento-lexico", Group: 1,
				Expr: `(?i)\b(fisioterapia|quimioterapia|radioterapia|cirurgia|hemodiálise|hemodialise|analgésico|analgesico|anti-inflamatório|anti-inflamatorio|antibiótico|antibiotico)\b`},
			{ID: "tratamento-fez", Group: 1,
				Expr: `(?i)(?:fiz|faço|faco|fazia)\s+(fisioterapia|cirurgia|tratamento\s+[\p{Ll}]+|quimioterapia|radioterapia)`},
		},
		domain.FieldCitacoes: {
			{ID: "citacao-aspas", Group: 1,
				Expr: `"([^"]{5,160})"`},
		},
	}
}

// defaultSensitiveTerms lists the clinical terms a generated report may only
// contain when they are traceable to the source text. A term appearing in a
// draft without source support is flagged as fabricated.
func defaultSensitiveTerms() map[string][]string {
	return map[string][]string{
		"doencas": {
			"hipertensão", "diabetes", "cardiopatia", "nefropatia", "hepatopatia",
			"artrite", "artrose", "fibromialgia", "lúpus", "esclerose",
			"parkinson", "alzheimer", "epilepsia", "enxaqueca", "sinusite",
			"pneumonia", "bronquite", "asma", "rinite", "gastrite",
			"úlcera", "refluxo", "hérnia", "catarata", "glaucoma",
		},
		"medicamentos": {
			"captopril", "losartana", "metformina", "insulina", "sinvastatina",
			"omeprazol", "diclofenaco", "ibuprofeno", "paracetamol", "dipirona",
			"amoxicilina", "azitromicina", "prednisona", "dexametasona",
		},
		"exames": {
			"ressonância magnética", "tomografia computadorizada", "ultrassonografia",
			"eletrocardiograma", "eletroencefalograma", "raio-x", "radiografia",
			"colonoscopia", "endoscopia", "ecocardiograma", "holter",
		},
		"procedimentos": {
			"angioplastia", "cateterismo", "artroscopia", "biópsia",
			"cirurgia bariátrica", "transplante", "hemodiálise",
		},
	}
}
