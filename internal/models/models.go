package models

import "fmt"

// ImportType is the CRM entity a CSV file is imported into
type ImportType string

const (
	ImportClientes   ImportType = "clientes"
	ImportPolizas    ImportType = "polizas"
	ImportRecibos    ImportType = "recibos"
	ImportSiniestros ImportType = "siniestros"
)

// ImportTypes lists every supported entity in display order
var ImportTypes = []ImportType{ImportClientes, ImportPolizas, ImportRecibos, ImportSiniestros}

// ParseImportType validates a user supplied type name
func ParseImportType(s string) (ImportType, error) {
	for _, t := range ImportTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unsupported import type: %q", s)
}

// ImportMode controls whether rows are appended or the table is replaced
type ImportMode string

const (
	ModeAdd     ImportMode = "add"
	ModeReplace ImportMode = "replace"
)

// DuplicatePolicy tells the server what to do with rows that already exist
type DuplicatePolicy string

const (
	DuplicatesSkip   DuplicatePolicy = "skip"
	DuplicatesUpdate DuplicatePolicy = "update"
	DuplicatesError  DuplicatePolicy = "error"
)

// ImportConfig is sent as a JSON string in the "config" form field
type ImportConfig struct {
	Type                 ImportType      `json:"type" yaml:"type"`
	Mode                 ImportMode      `json:"mode" yaml:"mode"`
	ValidateBeforeImport bool            `json:"validateBeforeImport" yaml:"validateBeforeImport"`
	HandleDuplicates     DuplicatePolicy `json:"handleDuplicates" yaml:"handleDuplicates"`
}

// DefaultImportConfig is the configuration a new wizard starts with
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		Type:                 ImportClientes,
		Mode:                 ModeAdd,
		ValidateBeforeImport: true,
		HandleDuplicates:     DuplicatesSkip,
	}
}

// Validate checks the enumerated fields
func (c ImportConfig) Validate() error {
	if c.Type != "" {
		if _, err := ParseImportType(string(c.Type)); err != nil {
			return err
		}
	}
	switch c.Mode {
	case ModeAdd, ModeReplace:
	default:
		return fmt.Errorf("unsupported import mode: %q", c.Mode)
	}
	switch c.HandleDuplicates {
	case DuplicatesSkip, DuplicatesUpdate, DuplicatesError:
	default:
		return fmt.Errorf("unsupported duplicate policy: %q", c.HandleDuplicates)
	}
	return nil
}

// CSVPreview is the header row plus a sample of rows parsed by the server
type CSVPreview struct {
	Headers   []string `json:"headers"`
	Rows      [][]any  `json:"rows"`
	TotalRows int      `json:"totalRows"`
	FileSize  int64    `json:"fileSize"`
	FileName  string   `json:"fileName"`
}
