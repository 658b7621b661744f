package reports_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/taller-api/internal/application/reports"
	"github.com/tu-usuario/taller-api/internal/domain/entity"
)

// capturingGenerator captura el informe compuesto en lugar de renderizarlo.
type capturingGenerator struct {
	got *reports.InventoryReport
}

func (g *capturingGenerator) GenerateInventoryPDF(_ context.Context, report *reports.InventoryReport) ([]byte, error) {
	g.got = report
	return []byte("%PDF"), nil
}

type staticMaterials []entity.Material

func (s staticMaterials) List() []entity.Material { return s }

type staticProducts []entity.Product

func (s staticProducts) List() []entity.Product { return s }

type staticCategories []string

func (s staticCategories) Categories() []string { return s }

func qty(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestBuildInventoryPDF_AgrupaPorCategoriaEnOrdenDelVocabulario(t *testing.T) {
	gen := &capturingGenerator{}
	uc := reports.NewReportUseCase(gen)

	materials := staticMaterials{
		{ID: "m1", Name: "Aguja", Quantity: qty("10"), Unit: "ud", Category: "Herramientas"},
		{ID: "m2", Name: "Tela roja", Quantity: qty("4"), Unit: "m", Category: "Telas"},
		{ID: "m3", Name: "Tela azul", Quantity: qty("2"), Unit: "m", Category: "Telas"},
	}

	out, err := uc.BuildInventoryPDF(context.Background(), "Ana", materials,
		staticProducts{}, staticCategories{"Telas", "Mercería", "Herramientas"})

	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), out)
	require.NotNil(t, gen.got)
	assert.Equal(t, "Ana", gen.got.UserName)

	// Mercería no tiene materiales: no genera sección.
	require.Len(t, gen.got.Categories, 2)
	assert.Equal(t, "Telas", gen.got.Categories[0].Category)
	assert.Len(t, gen.got.Categories[0].Materials, 2)
	assert.Equal(t, "Herramientas", gen.got.Categories[1].Category)
}

func TestBuildInventoryPDF_CategoriaEliminada_SeccionFinal(t *testing.T) {
	gen := &capturingGenerator{}
	uc := reports.NewReportUseCase(gen)

	materials := staticMaterials{
		{ID: "m1", Name: "Lazo", Quantity: qty("1"), Unit: "ud", Category: "Decoración"},
	}

	_, err := uc.BuildInventoryPDF(context.Background(), "Ana", materials,
		staticProducts{}, staticCategories{"Telas"})

	require.NoError(t, err)
	require.Len(t, gen.got.Categories, 1)
	assert.Equal(t, "Sin categoría vigente", gen.got.Categories[0].Category,
		"un material con categoría fuera del vocabulario va a la sección final")
}

func TestBuildInventoryPDF_IncluyeProductos(t *testing.T) {
	gen := &capturingGenerator{}
	uc := reports.NewReportUseCase(gen)

	products := staticProducts{
		{ID: "p1", Name: "Cojín", RepeatCount: 2},
	}

	_, err := uc.BuildInventoryPDF(context.Background(), "Ana",
		staticMaterials{}, products, staticCategories{})

	require.NoError(t, err)
	require.Len(t, gen.got.Products, 1)
	assert.Equal(t, "Cojín", gen.got.Products[0].Name)
}
