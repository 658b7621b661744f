package entity

import "github.com/shopspring/decimal"

// Material representa una materia prima en el almacén, con cantidad, unidad y categoría.
// El ID lo asigna el almacén remoto al crearse; Quantity nunca es negativa tras una
// operación confirmada.
type Material struct {
	ID       string          `json:"id"`
	UserID   string          `json:"userId"`
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
	Category string          `json:"category"`
}
