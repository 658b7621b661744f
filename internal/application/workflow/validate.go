package workflow

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/taller-api/internal/domain/entity"
)

// IssueKind clasifica el fallo de una línea de materiales.
type IssueKind int

const (
	// IssueNotFound la línea referencia un material que ya no existe en el ledger.
	IssueNotFound IssueKind = iota
	// IssueInsufficient el stock actual no cubre la cantidad de la línea.
	IssueInsufficient
	// IssueInvalidQuantity la cantidad de la línea no es mayor que cero.
	IssueInvalidQuantity
)

// LineIssue es el fallo de validación de una línea concreta. La validación
// recorre todas las líneas y devuelve la lista completa, no solo el primero.
type LineIssue struct {
	Kind       IssueKind
	MaterialID string
	Name       string
	Unit       string
	Requested  decimal.Decimal
	Available  decimal.Decimal
}

// Message devuelve el texto legible del fallo. Para stock insuficiente incluye
// el faltante y la unidad.
func (i LineIssue) Message() string {
	if i.Kind == IssueNotFound {
		return fmt.Sprintf("material %q no encontrado en el almacén", i.Name)
	}
	if i.Kind == IssueInvalidQuantity {
		return fmt.Sprintf("cantidad inválida de %q: debe ser mayor que cero", i.Name)
	}
	shortfall := i.Requested.Sub(i.Available)
	return fmt.Sprintf("stock insuficiente de %q: faltan %s %s (disponible: %s %s)",
		i.Name, shortfall.String(), i.Unit, i.Available.String(), i.Unit)
}

// ValidationError agrupa los fallos de validación de un producto. Una lista no
// vacía significa "no proceder"; ninguna línea se aplica.
type ValidationError struct {
	Issues []LineIssue
}

// Error implementa error con todos los mensajes concatenados.
func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		msgs = append(msgs, issue.Message())
	}
	return strings.Join(msgs, "; ")
}

// Validate comprueba cada línea contra el ledger: cantidad positiva, material
// existente y stock suficiente. Las líneas se evalúan de forma independiente
// (el orden no afecta al resultado) y se devuelve la lista completa de fallos,
// posiblemente vacía.
func (w *Workflow) Validate(lines []entity.MaterialLine) []LineIssue {
	var issues []LineIssue
	for _, line := range lines {
		if line.Quantity.Sign() <= 0 {
			issues = append(issues, LineIssue{
				Kind:       IssueInvalidQuantity,
				MaterialID: line.MaterialID,
				Name:       line.Name,
				Unit:       line.Unit,
				Requested:  line.Quantity,
			})
			continue
		}
		m := w.ledger.GetByID(line.MaterialID)
		if m == nil {
			issues = append(issues, LineIssue{
				Kind:       IssueNotFound,
				MaterialID: line.MaterialID,
				Name:       line.Name,
				Unit:       line.Unit,
				Requested:  line.Quantity,
			})
			continue
		}
		if m.Quantity.LessThan(line.Quantity) {
			issues = append(issues, LineIssue{
				Kind:       IssueInsufficient,
				MaterialID: line.MaterialID,
				Name:       m.Name,
				Unit:       m.Unit,
				Requested:  line.Quantity,
				Available:  m.Quantity,
			})
		}
	}
	return issues
}
