package dto

import "github.com/shopspring/decimal"

// ProductLineRequest línea de material de un producto a crear.
type ProductLineRequest struct {
	MaterialID string          `json:"material_id"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// CreateProductRequest alta de producto: nombre más líneas de material.
type CreateProductRequest struct {
	Name      string               `json:"name"`
	Materials []ProductLineRequest `json:"materials"`
}

// ValidationIssue fallo de una línea, tal como se devuelve al cliente.
type ValidationIssue struct {
	MaterialID string `json:"material_id"`
	Message    string `json:"message"`
}

// ValidationErrorResponse respuesta 422 con la lista completa de fallos.
type ValidationErrorResponse struct {
	Code   string            `json:"code"`
	Issues []ValidationIssue `json:"issues"`
}
