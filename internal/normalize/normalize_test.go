package normalize

import (
	"reflect"
	"testing"
)

// TestNormalizeLabel tests label cleanup rules.
func TestNormalizeLabel(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "lowercase and trim", input: "  Cd Maquina  ", want: "cd_maquina"},
		{name: "inner whitespace collapsed", input: "Nome   Funcionário", want: "nome_funcionário"},
		{name: "bom stripped", input: "\ufeffCd Unid", want: "cd_unid"},
		{name: "nbsp treated as space", input: "Data Início", want: "data_início"},
		{name: "already canonical", input: "cd_setormanut", want: "cd_setormanut"},
		{name: "empty", input: "", want: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeLabel(tc.input); got != tc.want {
				t.Errorf("NormalizeLabel(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

// TestResolve tests synonym lookup and ordered fallback rules.
func TestResolve(t *testing.T) {
	table := SynonymTable{
		"cd_maquina":    {"Cd Maquina", "Código Máquina", "codigo maquina"},
		"descr_maquina": {"Descrição Máquina"},
	}
	fallbacks := []FallbackRule{
		{Prefix: "desc", NotContains: "maquina", Target: "descricao"},
		{Prefix: "encarregado", Target: "encarregado_responsavel"},
	}
	n := New(table, fallbacks)

	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "exact variant", input: "Código Máquina", want: "cd_maquina"},
		{name: "case and spacing variant", input: "CODIGO MAQUINA", want: "cd_maquina"},
		{name: "canonical maps to itself", input: "cd_maquina", want: "cd_maquina"},
		{name: "synonym beats fallback", input: "Descrição Máquina", want: "descr_maquina"},
		{name: "prefix fallback", input: "Descricao do Item", want: "descricao"},
		{name: "not-contains guard falls through unmapped", input: "descricao maquina xyz", want: "descricao_maquina_xyz"},
		{name: "second fallback", input: "Encarregado Setor", want: "encarregado_responsavel"},
		{name: "unknown passes through normalized", input: "Coluna Estranha", want: "coluna_estranha"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := n.Resolve(tc.input); got != tc.want {
				t.Errorf("Resolve(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

// TestRow tests whole-row normalization with order preservation and
// duplicate-key overwrite.
func TestRow(t *testing.T) {
	n := New(SynonymTable{
		"cd_maquina": {"Cd Maquina"},
		"descricao":  {"Descricao", "Descrição"},
	}, nil)

	headers := []string{"Cd Maquina", "Descricao", "Descrição", "Extra"}
	row := map[string]interface{}{
		"Cd Maquina": "10",
		"Descricao":  "first",
		"Descrição":  "second",
		"Extra":      nil,
	}

	gotHeaders, gotRow := n.Row(headers, row)

	wantHeaders := []string{"cd_maquina", "descricao", "extra"}
	if !reflect.DeepEqual(gotHeaders, wantHeaders) {
		t.Errorf("headers = %v, want %v", gotHeaders, wantHeaders)
	}
	wantRow := map[string]interface{}{
		"cd_maquina": "10",
		"descricao":  "second",
		"extra":      nil,
	}
	if !reflect.DeepEqual(gotRow, wantRow) {
		t.Errorf("row = %v, want %v", gotRow, wantRow)
	}
}

// TestFindKeyword tests partial-match column discovery.
func TestFindKeyword(t *testing.T) {
	headers := []string{"Nº Semana", "Data Início", "Data Fim"}

	testCases := []struct {
		name     string
		keywords []string
		wantKey  string
		wantOK   bool
	}{
		{name: "finds week column", keywords: []string{"semana"}, wantKey: "Nº Semana", wantOK: true},
		{name: "accent variant listed explicitly", keywords: []string{"inicio", "início"}, wantKey: "Data Início", wantOK: true},
		{name: "no match", keywords: []string{"responsavel"}, wantOK: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			key, ok := FindKeyword(headers, tc.keywords)
			if ok != tc.wantOK || key != tc.wantKey {
				t.Errorf("FindKeyword(%v) = (%q, %v), want (%q, %v)", tc.keywords, key, ok, tc.wantKey, tc.wantOK)
			}
		})
	}
}
