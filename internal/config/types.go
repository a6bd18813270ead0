// Package config defines the YAML configuration for the import pipeline.
// Everything heuristic lives here as data: per-entity CSV reader profiles,
// column synonym tables, fallback rules, filters and the matcher weight
// table. A built-in default covers every known entity, so the config file is
// optional and only needs the sections an operator wants to override.
package config

import (
	"maintsync/internal/io"
	"maintsync/internal/matcher"
	"maintsync/internal/normalize"
)

// Entity names accepted by the importer.
const (
	EntityMachines        = "machines"
	EntityWorkOrders      = "workorders"
	EntityStock           = "stock"
	EntityActivityCenters = "activitycenters"
	EntityTechnicians     = "technicians"
	EntityPlans           = "plans"
	EntityRoutines        = "routines"
	EntityWeeks           = "weeks"
	EntityRequisitions    = "requisitions"
)

// EntityNames lists every importable entity.
func EntityNames() []string {
	return []string{
		EntityMachines, EntityWorkOrders, EntityStock, EntityActivityCenters,
		EntityTechnicians, EntityPlans, EntityRoutines, EntityWeeks,
		EntityRequisitions,
	}
}

// DefaultLogLevel is used when the config and the -loglevel flag are silent.
const DefaultLogLevel = "info"

// DefaultErrorFile receives rejected rows when no override is configured.
const DefaultErrorFile = "import_errors.csv"

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// EntityConfig is the per-entity import tuning.
type EntityConfig struct {
	// CSVAttempts are tried in order until one parses. Spreadsheet files
	// ignore them.
	CSVAttempts []io.CSVAttempt `yaml:"csv_attempts"`
	// Synonyms maps canonical field keys to known normalized label variants.
	Synonyms normalize.SynonymTable `yaml:"synonyms"`
	// Fallbacks run in order when no synonym matches.
	Fallbacks []normalize.FallbackRule `yaml:"fallbacks"`
	// Filter is an optional govaluate expression; rows evaluating false are
	// skipped without error.
	Filter string `yaml:"filter"`
}

// MatcherConfig tunes the plan-routine reconciliation.
type MatcherConfig struct {
	Weights   []matcher.FieldWeight `yaml:"weights"`
	Threshold float64               `yaml:"threshold"`
	Perfect   float64               `yaml:"perfect"`
}

// Config is the root configuration document.
type Config struct {
	Logging   LoggingConfig           `yaml:"logging"`
	ErrorFile string                  `yaml:"error_file"`
	Entities  map[string]EntityConfig `yaml:"entities"`
	Matcher   MatcherConfig           `yaml:"matcher"`
}

func utf8Comma() []io.CSVAttempt {
	return []io.CSVAttempt{
		{Encoding: "utf8", Delimiter: ","},
		{Encoding: "latin1", Delimiter: ","},
	}
}

// Exports of the preventive tables ship with either delimiter in either
// encoding depending on which workstation produced them.
func exportAttempts() []io.CSVAttempt {
	return []io.CSVAttempt{
		{Encoding: "latin1", Delimiter: ";"},
		{Encoding: "utf8", Delimiter: ";"},
		{Encoding: "latin1", Delimiter: ","},
		{Encoding: "utf8", Delimiter: ","},
	}
}

// DefaultConfig returns the built-in configuration covering every entity.
func DefaultConfig() *Config {
	return &Config{
		Logging:   LoggingConfig{Level: DefaultLogLevel},
		ErrorFile: DefaultErrorFile,
		Entities: map[string]EntityConfig{
			EntityMachines: {
				CSVAttempts: utf8Comma(),
			},
			EntityWorkOrders: {
				CSVAttempts: []io.CSVAttempt{
					{Encoding: "latin1", Delimiter: ";"},
					{Encoding: "cp1252", Delimiter: ";"},
					{Encoding: "utf8", Delimiter: ";"},
					{Encoding: "utf8", Delimiter: ","},
				},
				Synonyms: normalize.SynonymTable{
					// The source system spells the order-type columns both ways.
					"cd_tpordservtv":    {"cd_tpordsertv"},
					"descr_tpordservtv": {"descr_tpordsertv"},
					"nm_func_exec":      {"nome_func_exec"},
					"nm_func_solic_os":  {"nome_func_solic_os"},
				},
			},
			EntityStock: {
				CSVAttempts: utf8Comma(),
				Synonyms: normalize.SynonymTable{
					"codigo_item":    {"cd_item"},
					"descricao_item": {"descr_item"},
					"quantidade":     {"qtde"},
					"valor":          {"vlr"},
				},
			},
			EntityActivityCenters: {
				CSVAttempts: utf8Comma(),
				Synonyms: normalize.SynonymTable{
					// Mangled-encoding spellings observed in the field.
					"descricao":               {"descrio", "descrição"},
					"indice":                  {"ndice", "índice"},
					"encarregado_responsavel": {"encarregado_responsvel", "encarregado_responsável"},
				},
				Fallbacks: []normalize.FallbackRule{
					{Contains: "descri", Target: "descricao"},
					{Contains: "ndice", Target: "indice"},
					{Contains: "encarregado", Target: "encarregado_responsavel"},
				},
			},
			EntityTechnicians: {
				CSVAttempts: utf8Comma(),
				Synonyms: normalize.SynonymTable{
					"matricula":  {"cadastro"},
					"local_trab": {"local_trabalho"},
				},
			},
			EntityPlans: {
				CSVAttempts: exportAttempts(),
				Synonyms: normalize.SynonymTable{
					"cd_funcionario":   {"funcionario", "funcionário"},
					"nome_funcionario": {"nome_funcionário"},
					"dt_execucao":      {"data_execucao", "data_execução"},
				},
				Fallbacks: []normalize.FallbackRule{
					{Contains: "funcion", NotContains: "nome", Target: "cd_funcionario"},
					{Prefix: "nome_funcion", Target: "nome_funcionario"},
				},
			},
			EntityRoutines: {
				CSVAttempts: exportAttempts(),
			},
			EntityWeeks: {
				// Spreadsheet only; the schedule is maintained in Excel.
			},
			EntityRequisitions: {
				CSVAttempts: exportAttempts(),
			},
		},
		Matcher: MatcherConfig{
			Weights:   matcher.DefaultWeights(),
			Threshold: 70,
			Perfect:   95,
		},
	}
}
