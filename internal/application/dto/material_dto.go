package dto

import "github.com/shopspring/decimal"

// CreateMaterialRequest alta de material en el almacén.
type CreateMaterialRequest struct {
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
	Category string          `json:"category"`
}

// UpdateMaterialRequest actualización de cantidad y unidad.
type UpdateMaterialRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
}

// AdjustQuantityRequest incremento o decremento de stock.
type AdjustQuantityRequest struct {
	Amount decimal.Decimal `json:"amount"`
}
