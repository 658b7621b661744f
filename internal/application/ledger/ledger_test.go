package ledger_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/taller-api/internal/application/ledger"
	"github.com/tu-usuario/taller-api/internal/domain"
	"github.com/tu-usuario/taller-api/internal/domain/entity"
	"github.com/tu-usuario/taller-api/internal/domain/repository"
	"github.com/tu-usuario/taller-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes
// ──────────────────────────────────────────────────────────────────────────────

type updateCall struct {
	col    repository.Collection
	id     string
	fields map[string]any
}

// fakeStore almacén remoto en memoria con errores inyectables y un canal de
// snapshots controlado por el test.
type fakeStore struct {
	mu        sync.Mutex
	seq       int
	updates   []updateCall
	deletes   []string
	createErr error
	updateErr error
	snapshots chan repository.Snapshot
}

func newFakeStore() *fakeStore {
	return &fakeStore{snapshots: make(chan repository.Snapshot, 8)}
}

func (s *fakeStore) Create(_ context.Context, _ string, _ repository.Collection, data any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return "", s.createErr
	}
	s.seq++
	return fmt.Sprintf("doc-%d", s.seq), nil
}

func (s *fakeStore) Update(_ context.Context, _ string, col repository.Collection, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updates = append(s.updates, updateCall{col: col, id: id, fields: fields})
	return nil
}

func (s *fakeStore) Set(_ context.Context, _ string, _ repository.Collection, _ string, _ any) error {
	return nil
}

func (s *fakeStore) Delete(_ context.Context, _ string, _ repository.Collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, id)
	return nil
}

func (s *fakeStore) Get(_ context.Context, _ string, _ repository.Collection, _ string) (*repository.Document, error) {
	return nil, domain.ErrNotFound
}

func (s *fakeStore) Subscribe(_ context.Context, _ string, _ repository.Collection) (<-chan repository.Snapshot, error) {
	return s.snapshots, nil
}

func (s *fakeStore) updateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.updates)
}

// fakeMirror espejo local en memoria.
type fakeMirror struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{data: make(map[string][]byte)}
}

func (m *fakeMirror) Load(key string, v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return domain.ErrNotFound
	}
	return json.Unmarshal(raw, v)
}

func (m *fakeMirror) Save(key string, v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

// allowAllVocab acepta cualquier unidad y categoría.
type allowAllVocab struct{}

func (allowAllVocab) HasUnit(string) bool     { return true }
func (allowAllVocab) HasCategory(string) bool { return true }

// strictVocab solo acepta los valores dados.
type strictVocab struct {
	units      map[string]bool
	categories map[string]bool
}

func (v strictVocab) HasUnit(u string) bool     { return v.units[u] }
func (v strictVocab) HasCategory(c string) bool { return v.categories[c] }

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

const testUser = "user-1"

func seedMirror(t *testing.T, mirror *fakeMirror, materials []entity.Material) {
	t.Helper()
	require.NoError(t, mirror.Save(testUser+"/materials", materials))
}

func qty(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func docFor(t *testing.T, id string, m entity.Material) repository.Document {
	t.Helper()
	raw, err := json.Marshal(m)
	require.NoError(t, err)
	return repository.Document{ID: id, Data: raw}
}

// ──────────────────────────────────────────────────────────────────────────────
// Decrease: el stock nunca baja de cero
// ──────────────────────────────────────────────────────────────────────────────

func TestDecrease_StockInsuficiente_NoOpSilencioso(t *testing.T) {
	store := newFakeStore()
	mirror := newFakeMirror()
	seedMirror(t, mirror, []entity.Material{
		{ID: "m1", Name: "Tela roja", Quantity: qty("3"), Unit: "m", Category: "Telas"},
	})
	l := ledger.New(store, mirror, allowAllVocab{}, logger.Nop(), testUser)

	err := l.Decrease(context.Background(), "m1", qty("5"))

	require.NoError(t, err, "el decremento insuficiente no es un error")
	assert.Equal(t, 0, store.updateCount(), "no debe escribirse nada en el remoto")
	m := l.GetByID("m1")
	require.NotNil(t, m)
	assert.True(t, m.Quantity.Equal(qty("3")), "la cantidad no debe cambiar")
}

func TestDecrease_StockSuficiente_DescuentaYRefleja(t *testing.T) {
	store := newFakeStore()
	mirror := newFakeMirror()
	seedMirror(t, mirror, []entity.Material{
		{ID: "m1", Name: "Tela roja", Quantity: qty("5"), Unit: "m", Category: "Telas"},
	})
	l := ledger.New(store, mirror, allowAllVocab{}, logger.Nop(), testUser)

	require.NoError(t, l.Decrease(context.Background(), "m1", qty("2")))

	assert.Equal(t, 1, store.updateCount())
	m := l.GetByID("m1")
	require.NotNil(t, m)
	assert.True(t, m.Quantity.Equal(qty("3")))
}

func TestDecrease_ImporteNegativo_Rechazado(t *testing.T) {
	store := newFakeStore()
	mirror := newFakeMirror()
	seedMirror(t, mirror, []entity.Material{
		{ID: "m1", Name: "Tela roja", Quantity: qty("5"), Unit: "m"},
	})
	l := ledger.New(store, mirror, allowAllVocab{}, logger.Nop(), testUser)

	err := l.Decrease(context.Background(), "m1", qty("-1"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDecrease_MaterialInexistente_ErrNotFound(t *testing.T) {
	l := ledger.New(newFakeStore(), newFakeMirror(), allowAllVocab{}, logger.Nop(), testUser)

	err := l.Decrease(context.Background(), "no-existe", qty("1"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// UpdateQuantityRemote: en fallo remoto el espejo queda intacto
// ──────────────────────────────────────────────────────────────────────────────

func TestUpdateQuantityRemote_FalloRemoto_EspejoIntacto(t *testing.T) {
	store := newFakeStore()
	store.updateErr = errors.New("conexión perdida")
	mirror := newFakeMirror()
	seedMirror(t, mirror, []entity.Material{
		{ID: "m1", Name: "Hilo", Quantity: qty("10"), Unit: "ud"},
	})
	l := ledger.New(store, mirror, allowAllVocab{}, logger.Nop(), testUser)

	err := l.UpdateQuantityRemote(context.Background(), "m1", qty("7"))

	require.Error(t, err)
	m := l.GetByID("m1")
	require.NotNil(t, m)
	assert.True(t, m.Quantity.Equal(qty("10")),
		"tras fallo remoto la cantidad local debe seguir siendo la anterior")
}

func TestUpdateQuantityRemote_Exito_ReflejaEnEspejo(t *testing.T) {
	store := newFakeStore()
	mirror := newFakeMirror()
	seedMirror(t, mirror, []entity.Material{
		{ID: "m1", Name: "Hilo", Quantity: qty("10"), Unit: "ud"},
	})
	l := ledger.New(store, mirror, allowAllVocab{}, logger.Nop(), testUser)

	require.NoError(t, l.UpdateQuantityRemote(context.Background(), "m1", qty("7")))

	m := l.GetByID("m1")
	require.NotNil(t, m)
	assert.True(t, m.Quantity.Equal(qty("7")))

	// Y el espejo persistido también refleja el cambio.
	var persisted []entity.Material
	require.NoError(t, mirror.Load(testUser+"/materials", &persisted))
	require.Len(t, persisted, 1)
	assert.True(t, persisted[0].Quantity.Equal(qty("7")))
}

// ──────────────────────────────────────────────────────────────────────────────
// Add: validación y ausencia de mutación local optimista
// ──────────────────────────────────────────────────────────────────────────────

func TestAdd_NoEsOptimista(t *testing.T) {
	store := newFakeStore()
	l := ledger.New(store, newFakeMirror(), allowAllVocab{}, logger.Nop(), testUser)

	id, err := l.Add(context.Background(), entity.Material{
		Name: "Botones", Quantity: qty("20"), Unit: "ud", Category: "Mercería",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, id)
	// La adición no es visible hasta que llegue el evento del flujo de cambios.
	assert.Empty(t, l.List(), "Add no debe mutar el espejo local")
}

func TestAdd_VocabularioEstricto(t *testing.T) {
	vocab := strictVocab{
		units:      map[string]bool{"m": true},
		categories: map[string]bool{"Telas": true},
	}
	l := ledger.New(newFakeStore(), newFakeMirror(), vocab, logger.Nop(), testUser)

	_, err := l.Add(context.Background(), entity.Material{
		Name: "Cinta", Quantity: qty("1"), Unit: "rollo", Category: "Telas",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "unidad fuera del vocabulario")

	_, err = l.Add(context.Background(), entity.Material{
		Name: "Cinta", Quantity: qty("1"), Unit: "m", Category: "Decoración",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "categoría fuera del vocabulario")

	_, err = l.Add(context.Background(), entity.Material{
		Name: "Cinta", Quantity: qty("1"), Unit: "m", Category: "Telas",
	})
	assert.NoError(t, err)
}

func TestAdd_CantidadNegativa_Rechazada(t *testing.T) {
	l := ledger.New(newFakeStore(), newFakeMirror(), allowAllVocab{}, logger.Nop(), testUser)

	_, err := l.Add(context.Background(), entity.Material{
		Name: "Tela", Quantity: qty("-1"), Unit: "m", Category: "Telas",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Snapshots: reemplazo completo, idempotencia y descarte de malformados
// ──────────────────────────────────────────────────────────────────────────────

func TestSubscribe_SnapshotReemplazaCompleto(t *testing.T) {
	store := newFakeStore()
	mirror := newFakeMirror()
	seedMirror(t, mirror, []entity.Material{
		{ID: "viejo", Name: "Restos", Quantity: qty("1"), Unit: "ud"},
	})
	l := ledger.New(store, mirror, allowAllVocab{}, logger.Nop(), testUser)
	l.Subscribe(context.Background())

	store.snapshots <- repository.Snapshot{Docs: []repository.Document{
		docFor(t, "m1", entity.Material{Name: "Tela azul", Quantity: qty("4"), Unit: "m", Category: "Telas"}),
		docFor(t, "m2", entity.Material{Name: "Aguja", Quantity: qty("12"), Unit: "ud", Category: "Herramientas"}),
	}}

	require.Eventually(t, func() bool {
		return len(l.List()) == 2
	}, time.Second, 5*time.Millisecond, "el snapshot debe reemplazar el conjunto entero")
	assert.Nil(t, l.GetByID("viejo"), "lo que no viene en el snapshot desaparece")
}

func TestSubscribe_SnapshotIdempotente(t *testing.T) {
	store := newFakeStore()
	l := ledger.New(store, newFakeMirror(), allowAllVocab{}, logger.Nop(), testUser)
	l.Subscribe(context.Background())

	snap := repository.Snapshot{Docs: []repository.Document{
		docFor(t, "m1", entity.Material{Name: "Tela azul", Quantity: qty("4"), Unit: "m"}),
	}}
	store.snapshots <- snap
	store.snapshots <- snap

	require.Eventually(t, func() bool {
		return len(l.List()) == 1
	}, time.Second, 5*time.Millisecond)
	m := l.GetByID("m1")
	require.NotNil(t, m)
	assert.True(t, m.Quantity.Equal(qty("4")),
		"aplicar el mismo snapshot dos veces deja el mismo estado")
}

func TestSubscribe_DescartaDocumentosMalformados(t *testing.T) {
	store := newFakeStore()
	l := ledger.New(store, newFakeMirror(), allowAllVocab{}, logger.Nop(), testUser)
	l.Subscribe(context.Background())

	store.snapshots <- repository.Snapshot{Docs: []repository.Document{
		{ID: "roto", Data: json.RawMessage(`{esto no es json`)},
		{ID: "sin-nombre", Data: json.RawMessage(`{"name":""}`)},
		docFor(t, "bueno", entity.Material{Name: "Cinta", Quantity: qty("2"), Unit: "m"}),
	}}

	require.Eventually(t, func() bool {
		return len(l.List()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.NotNil(t, l.GetByID("bueno"))
	assert.Nil(t, l.GetByID("roto"))
	assert.Nil(t, l.GetByID("sin-nombre"))
}

func TestSubscribe_SinUsuario_EstadoDeError(t *testing.T) {
	l := ledger.New(newFakeStore(), newFakeMirror(), allowAllVocab{}, logger.Nop(), "")
	l.Subscribe(context.Background())

	assert.ErrorIs(t, l.LastError(), domain.ErrUnauthorized)
}

// ──────────────────────────────────────────────────────────────────────────────
// Delete
// ──────────────────────────────────────────────────────────────────────────────

func TestDelete_QuitaDelRemotoYDelEspejo(t *testing.T) {
	store := newFakeStore()
	mirror := newFakeMirror()
	seedMirror(t, mirror, []entity.Material{
		{ID: "m1", Name: "Tela", Quantity: qty("1"), Unit: "m"},
		{ID: "m2", Name: "Hilo", Quantity: qty("2"), Unit: "ud"},
	})
	l := ledger.New(store, mirror, allowAllVocab{}, logger.Nop(), testUser)

	require.NoError(t, l.Delete(context.Background(), "m1"))

	assert.Equal(t, []string{"m1"}, store.deletes)
	assert.Nil(t, l.GetByID("m1"))
	assert.NotNil(t, l.GetByID("m2"))
}
