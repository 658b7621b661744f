package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaterialLine es una línea de la lista de materiales de un producto: copia
// desnormalizada del material en el momento de componerlo, no una referencia viva.
type MaterialLine struct {
	MaterialID string          `json:"materialId"`
	Name       string          `json:"name"`
	Quantity   decimal.Decimal `json:"quantity"`
	Unit       string          `json:"unit"`
}

// Product representa un artículo fabricado: nombre, lista de materiales y contador
// de repeticiones. RepeatCount >= 0; un producto que llega a 0 por cancelación se
// elimina, no se conserva.
type Product struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	Name        string         `json:"name"`
	Materials   []MaterialLine `json:"materials"`
	RepeatCount int            `json:"repeatCount"`
	CreatedAt   time.Time      `json:"createdAt"`
}
