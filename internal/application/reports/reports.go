package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/tu-usuario/taller-api/internal/domain/entity"
)

// InventoryReport es el contenido del informe de inventario de un usuario:
// materiales agrupados por categoría más el resumen de productos activos.
type InventoryReport struct {
	GeneratedAt time.Time
	UserName    string
	Categories  []CategorySection
	Products    []entity.Product
}

// CategorySection agrupa los materiales de una categoría.
type CategorySection struct {
	Category  string
	Materials []entity.Material
}

// PDFGenerator es el puerto de render: recibe el informe ya compuesto y
// devuelve los bytes del documento.
type PDFGenerator interface {
	GenerateInventoryPDF(ctx context.Context, report *InventoryReport) ([]byte, error)
}

// MaterialReader es la vista de solo lectura del ledger que necesita el informe.
type MaterialReader interface {
	List() []entity.Material
}

// ProductReader es la vista de solo lectura del flujo de productos.
type ProductReader interface {
	List() []entity.Product
}

// CategoryReader expone el vocabulario de categorías en su orden vigente.
type CategoryReader interface {
	Categories() []string
}

// ReportUseCase compone el informe de inventario desde los espejos locales y
// lo renderiza con el generador inyectado.
type ReportUseCase struct {
	gen PDFGenerator
}

// NewReportUseCase construye el caso de uso con el puerto de render.
func NewReportUseCase(gen PDFGenerator) *ReportUseCase {
	return &ReportUseCase{gen: gen}
}

// BuildInventoryPDF compone y renderiza el informe del usuario. Los materiales
// se agrupan siguiendo el orden del vocabulario de categorías; los que usan una
// categoría ya eliminada del vocabulario van a una sección final.
func (uc *ReportUseCase) BuildInventoryPDF(ctx context.Context, userName string, materials MaterialReader, products ProductReader, categories CategoryReader) ([]byte, error) {
	report := &InventoryReport{
		GeneratedAt: time.Now(),
		UserName:    userName,
		Products:    products.List(),
	}

	all := materials.List()
	seen := make(map[string]bool)
	for _, cat := range categories.Categories() {
		seen[cat] = true
		section := CategorySection{Category: cat}
		for _, m := range all {
			if m.Category == cat {
				section.Materials = append(section.Materials, m)
			}
		}
		if len(section.Materials) > 0 {
			report.Categories = append(report.Categories, section)
		}
	}
	var orphans CategorySection
	for _, m := range all {
		if !seen[m.Category] {
			orphans.Materials = append(orphans.Materials, m)
		}
	}
	if len(orphans.Materials) > 0 {
		orphans.Category = "Sin categoría vigente"
		report.Categories = append(report.Categories, orphans)
	}

	out, err := uc.gen.GenerateInventoryPDF(ctx, report)
	if err != nil {
		return nil, fmt.Errorf("generar informe de inventario: %w", err)
	}
	return out, nil
}
