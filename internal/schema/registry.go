package schema

import (
	"fmt"
	"os"

	"github.com/soriano-mediadores/csvimport/internal/models"
	"gopkg.in/yaml.v3"
)

// Entry describes the CSV shape expected for one import type
type Entry struct {
	Type            models.ImportType `json:"type" yaml:"type"`
	Title           string            `json:"title" yaml:"title"`
	Description     string            `json:"description" yaml:"description"`
	FileNamePattern string            `json:"fileNamePattern" yaml:"fileNamePattern"`
	RequiredColumns []string          `json:"requiredColumns" yaml:"requiredColumns"`
}

// Registry maps import types to their expected CSV shape
type Registry struct {
	entries map[models.ImportType]Entry
}

var defaultEntries = []Entry{
	{
		Type:            models.ImportClientes,
		FileNamePattern: "DatosExportados_*.csv",
		RequiredColumns: []string{"NIF", "Nombre completo", "IdAccount", "Email contacto", "Provincia"},
	},
	{
		Type:            models.ImportPolizas,
		FileNamePattern: "POLIZAS.csv",
		RequiredColumns: []string{"Número de la póliza", "Ramo", "Nombre del cliente", "IdAccount", "Situación de la póliza"},
	},
	{
		Type:            models.ImportRecibos,
		FileNamePattern: "RECIBOS.csv",
		RequiredColumns: []string{"Nº recibo", "Nº póliza", "Cliente", "Prima total", "Situación del recibo"},
	},
	{
		Type:            models.ImportSiniestros,
		FileNamePattern: "SINIESTROS.csv",
		RequiredColumns: []string{"Número de siniestro", "Número de póliza", "Cliente", "Situación del siniestro", "IdAccount"},
	},
}

// Default returns the built-in four-entry registry
func Default() *Registry {
	r := &Registry{entries: make(map[models.ImportType]Entry, len(defaultEntries))}
	for _, e := range defaultEntries {
		desc := models.TypeDescriptions[e.Type]
		e.Title = desc.Title
		e.Description = desc.Description
		e.RequiredColumns = append([]string(nil), e.RequiredColumns...)
		r.entries[e.Type] = e
	}
	return r
}

// Lookup returns the entry for t
func (r *Registry) Lookup(t models.ImportType) (Entry, bool) {
	e, ok := r.entries[t]
	return e, ok
}

// ExpectedFileName is a display hint only; it is never enforced
func (r *Registry) ExpectedFileName(t models.ImportType) string {
	return r.entries[t].FileNamePattern
}

// RequiredColumns returns the ordered list of mandatory columns for t
func (r *Registry) RequiredColumns(t models.ImportType) []string {
	return append([]string(nil), r.entries[t].RequiredColumns...)
}

// Entries returns every entry in models.ImportTypes order
func (r *Registry) Entries() []Entry {
	out := make([]Entry, 0, len(r.entries))
	for _, t := range models.ImportTypes {
		if e, ok := r.entries[t]; ok {
			out = append(out, e)
		}
	}
	return out
}

type overrideFile struct {
	Types map[models.ImportType]struct {
		FileNamePattern string   `yaml:"fileNamePattern"`
		RequiredColumns []string `yaml:"requiredColumns"`
	} `yaml:"types"`
}

// LoadFile reads a YAML override table on top of the default registry.
//
//	types:
//	  recibos:
//	    fileNamePattern: RECIBOS_*.csv
//	    requiredColumns: [Nº recibo, Cliente]
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}

	var of overrideFile
	if err := yaml.Unmarshal(data, &of); err != nil {
		return nil, fmt.Errorf("failed to parse schema file: %w", err)
	}

	r := Default()
	for t, o := range of.Types {
		e, ok := r.entries[t]
		if !ok {
			return nil, fmt.Errorf("schema file %s: unsupported import type %q", path, t)
		}
		if o.FileNamePattern != "" {
			e.FileNamePattern = o.FileNamePattern
		}
		if len(o.RequiredColumns) > 0 {
			e.RequiredColumns = o.RequiredColumns
		}
		r.entries[t] = e
	}
	return r, nil
}
