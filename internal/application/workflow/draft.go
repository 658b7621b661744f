package workflow

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/taller-api/internal/domain"
	"github.com/tu-usuario/taller-api/internal/domain/entity"
)

// Draft es un producto en composición, aún sin persistir: acumula líneas
// candidatas y los avisos de stock por línea que la UI muestra en vivo.
type Draft struct {
	Name           string
	Materials      []entity.MaterialLine
	MaterialErrors map[string]string
}

// NewDraft crea un borrador vacío.
func NewDraft(name string) *Draft {
	return &Draft{
		Name:           name,
		MaterialErrors: make(map[string]string),
	}
}

// AddMaterialToDraft añade una línea con cantidad 1 copiando nombre y unidad
// del material actual (copia desnormalizada, no referencia viva). Rechaza
// líneas duplicadas.
func (w *Workflow) AddMaterialToDraft(d *Draft, materialID string) error {
	m := w.ledger.GetByID(materialID)
	if m == nil {
		w.notifyUser(fmt.Sprintf("material con ID %s no encontrado en el almacén", materialID), "error")
		return domain.ErrNotFound
	}
	for _, line := range d.Materials {
		if line.MaterialID == materialID {
			w.notifyUser(fmt.Sprintf("el material %q ya está añadido", m.Name), "error")
			return domain.ErrDuplicate
		}
	}
	d.Materials = append(d.Materials, entity.MaterialLine{
		MaterialID: m.ID,
		Name:       m.Name,
		Quantity:   decimal.NewFromInt(1),
		Unit:       m.Unit,
	})
	return nil
}

// ChangeDraftQuantity cambia la cantidad de una línea y actualiza el aviso de
// stock de esa línea (sin tocar el ledger: solo informa a la UI). Las
// cantidades deben ser mayores que cero: un débito negativo sumaría stock.
func (w *Workflow) ChangeDraftQuantity(d *Draft, materialID string, quantity decimal.Decimal) error {
	if quantity.Sign() <= 0 {
		w.notifyUser("la cantidad debe ser mayor que cero", "error")
		return fmt.Errorf("%w: cantidad no positiva", domain.ErrInvalidInput)
	}
	for i := range d.Materials {
		if d.Materials[i].MaterialID != materialID {
			continue
		}
		d.Materials[i].Quantity = quantity
		if d.MaterialErrors == nil {
			d.MaterialErrors = make(map[string]string)
		}
		m := w.ledger.GetByID(materialID)
		if m != nil && m.Quantity.LessThan(quantity) {
			issue := LineIssue{
				Kind:       IssueInsufficient,
				MaterialID: materialID,
				Name:       m.Name,
				Unit:       m.Unit,
				Requested:  quantity,
				Available:  m.Quantity,
			}
			d.MaterialErrors[materialID] = issue.Message()
		} else {
			delete(d.MaterialErrors, materialID)
		}
		return nil
	}
	return domain.ErrNotFound
}
