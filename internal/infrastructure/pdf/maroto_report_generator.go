// Package pdf implementa el render del informe de inventario del taller.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Informe de inventario │ Usuario + Fecha             │
//	│  ─────────────────────────────────────────────────────────  │
//	│  Por cada categoría:                                         │
//	│    TÍTULO de la categoría                                    │
//	│    TABLA: Material | Cantidad | Unidad                       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  PRODUCTOS ACTIVOS: Nombre | Repeticiones | Materiales       │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/tu-usuario/taller-api/internal/application/reports"
	"github.com/tu-usuario/taller-api/internal/domain/entity"
)

var (
	colorPrimary = &props.Color{Red: 90, Green: 45, Blue: 120}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// MarotoReportGenerator implementa reports.PDFGenerator usando Maroto v2.
type MarotoReportGenerator struct{}

// NewMarotoReportGenerator construye el generador.
func NewMarotoReportGenerator() *MarotoReportGenerator { return &MarotoReportGenerator{} }

// GenerateInventoryPDF genera el PDF del informe y devuelve sus bytes.
func (g *MarotoReportGenerator) GenerateInventoryPDF(_ context.Context, report *reports.InventoryReport) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Informe de inventario", true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(report))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))

	for _, section := range report.Categories {
		m.AddRows(categoryTitleRow(section.Category))
		m.AddRows(materialHeaderRow())
		for _, r := range materialRows(section.Materials) {
			m.AddRows(r)
		}
		m.AddRows(line.NewRow(2))
	}

	if len(report.Products) > 0 {
		m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
		m.AddRows(categoryTitleRow("Productos activos"))
		m.AddRows(productHeaderRow())
		for _, r := range productRows(report.Products) {
			m.AddRows(r)
		}
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// headerRow: título del informe (izq) y usuario + fecha (der).
func headerRow(report *reports.InventoryReport) core.Row {
	fecha := report.GeneratedAt.Format("02/01/2006 15:04")
	return row.New(14).Add(
		col.New(7).Add(
			text.New("INFORME DE INVENTARIO", props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
		),
		col.New(5).Add(
			text.New(report.UserName, props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right, Top: 1,
			}),
			text.New("Generado: "+fecha, props.Text{
				Size: 8, Align: align.Right, Top: 8, Color: colorGray,
			}),
		),
	)
}

func categoryTitleRow(title string) core.Row {
	return row.New(8).Add(col.New(12).Add(
		text.New(title, props.Text{
			Style: fontstyle.Bold, Size: 10, Color: colorPrimary, Top: 2,
		}),
	))
}

func materialHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Top: 1,
		}))
	}
	return row.New(6).Add(
		h("Material", 7, align.Left),
		h("Cantidad", 3, align.Right),
		h("Unidad", 2, align.Center),
	)
}

func materialRows(materials []entity.Material) []core.Row {
	result := make([]core.Row, 0, len(materials))
	for _, m := range materials {
		result = append(result, row.New(6).Add(
			col.New(7).Add(text.New(m.Name, props.Text{Size: 8, Top: 1})),
			col.New(3).Add(text.New(m.Quantity.String(), props.Text{
				Size: 8, Align: align.Right, Top: 1,
			})),
			col.New(2).Add(text.New(m.Unit, props.Text{
				Size: 8, Align: align.Center, Top: 1, Color: colorGray,
			})),
		))
	}
	return result
}

func productHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Top: 1,
		}))
	}
	return row.New(6).Add(
		h("Producto", 5, align.Left),
		h("Repeticiones", 2, align.Center),
		h("Materiales", 5, align.Left),
	)
}

func productRows(products []entity.Product) []core.Row {
	result := make([]core.Row, 0, len(products))
	for _, p := range products {
		result = append(result, row.New(6).Add(
			col.New(5).Add(text.New(p.Name, props.Text{Size: 8, Top: 1})),
			col.New(2).Add(text.New(fmt.Sprintf("%d", p.RepeatCount), props.Text{
				Size: 8, Align: align.Center, Top: 1,
			})),
			col.New(5).Add(text.New(describeLines(p.Materials), props.Text{
				Size: 7, Top: 1, Color: colorGray,
			})),
		))
	}
	return result
}

func describeLines(lines []entity.MaterialLine) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s x%s %s", l.Name, l.Quantity.String(), l.Unit)
	}
	return out
}
