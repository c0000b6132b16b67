package models

// Response envelopes returned by /api/admin/import/*

type PreviewResponse struct {
	Success bool        `json:"success"`
	Data    *CSVPreview `json:"data"`
	Message string      `json:"message,omitempty"`
}

type ImportResponse struct {
	Success bool            `json:"success"`
	Data    *ImportProgress `json:"data"`
	Message string          `json:"message,omitempty"`
}

type ImportStatusResponse = ImportResponse

type CancelResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type ImportHistoryResponse struct {
	Success bool            `json:"success"`
	Data    []ImportHistory `json:"data"`
	Total   int             `json:"total"`
	Message string          `json:"message,omitempty"`
}

type RevertResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	RowsReverted *int   `json:"rowsReverted,omitempty"`
}

// TypeDescription is the display metadata of an import type
type TypeDescription struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Icon        string `json:"icon" yaml:"icon"`
}

var TypeDescriptions = map[ImportType]TypeDescription{
	ImportClientes: {
		Title:       "Clientes",
		Description: "Importar información de clientes: NIF, nombre, contacto, dirección",
		Icon:        "people",
	},
	ImportPolizas: {
		Title:       "Pólizas",
		Description: "Importar pólizas de seguros: número de póliza, asegurado, coberturas",
		Icon:        "description",
	},
	ImportRecibos: {
		Title:       "Recibos",
		Description: "Importar recibos de pago: fecha, importe, estado de pago",
		Icon:        "receipt",
	},
	ImportSiniestros: {
		Title:       "Siniestros",
		Description: "Importar siniestros: fecha, descripción, estado, indemnización",
		Icon:        "warning",
	},
}
