package activity_test

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

	"github.com/tu-usuario/taller-api/internal/application/activity"
	"github.com/tu-usuario/taller-api/internal/domain"
	"github.com/tu-usuario/taller-api/internal/domain/entity"
	"github.com/tu-usuario/taller-api/internal/domain/repository"
	"github.com/tu-usuario/taller-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes
// ──────────────────────────────────────────────────────────────────────────────

type fakeStore struct {
	mu        sync.Mutex
	seq       int
	created   []entity.Activity
	createErr error
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
	if a, ok := data.(entity.Activity); ok {
		s.created = append(s.created, a)
	}
	s.seq++
	return fmt.Sprintf("act-%d", s.seq), nil
}

func (s *fakeStore) Update(_ context.Context, _ string, _ repository.Collection, _ string, _ map[string]any) error {
	return nil
}

func (s *fakeStore) Set(_ context.Context, _ string, _ repository.Collection, _ string, _ any) error {
	return nil
}

func (s *fakeStore) Delete(_ context.Context, _ string, _ repository.Collection, _ string) error {
	return nil
}

func (s *fakeStore) Get(_ context.Context, _ string, _ repository.Collection, _ string) (*repository.Document, error) {
	return nil, domain.ErrNotFound
}

func (s *fakeStore) Subscribe(_ context.Context, _ string, _ repository.Collection) (<-chan repository.Snapshot, error) {
	return s.snapshots, nil
}

func (s *fakeStore) createdCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}

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

const testUser = "user-1"

// ──────────────────────────────────────────────────────────────────────────────
// Record
// ──────────────────────────────────────────────────────────────────────────────

func TestRecord_PersisteYAparedeEnLista(t *testing.T) {
	store := newFakeStore()
	r := activity.New(store, newFakeMirror(), logger.Nop(), testUser)

	r.Record(context.Background(), `Producto creado: "Cojín"`, "Materiales gastados: Tela: 2 m")

	assert.Equal(t, 1, store.createdCount())
	list := r.List()
	require.Len(t, list, 1)
	assert.Equal(t, `Producto creado: "Cojín"`, list[0].Type)
	assert.Equal(t, "Materiales gastados: Tela: 2 m", list[0].Details)
}

func TestRecord_SinUsuario_NoOp(t *testing.T) {
	store := newFakeStore()
	r := activity.New(store, newFakeMirror(), logger.Nop(), "")

	r.Record(context.Background(), "algo", "")

	assert.Equal(t, 0, store.createdCount())
	assert.Empty(t, r.List())
}

func TestRecord_FalloRemoto_SeTragaElError(t *testing.T) {
	store := newFakeStore()
	store.createErr = errors.New("sin conexión")
	r := activity.New(store, newFakeMirror(), logger.Nop(), testUser)

	// Record es un sumidero: no hay error que propagar ni pánico que esperar.
	r.Record(context.Background(), "algo", "detalle")

	assert.Empty(t, r.List(), "la entrada fallida no se añade al local")
}

// ──────────────────────────────────────────────────────────────────────────────
// List: orden de más reciente a más antigua
// ──────────────────────────────────────────────────────────────────────────────

func TestList_OrdenaPorFechaDescendente(t *testing.T) {
	mirror := newFakeMirror()
	old := time.Now().Add(-time.Hour)
	recent := time.Now()
	require.NoError(t, mirror.Save(testUser+"/activities", []entity.Activity{
		{ID: "a1", Type: "primera", Timestamp: old},
		{ID: "a2", Type: "segunda", Timestamp: recent},
	}))
	r := activity.New(newFakeStore(), mirror, logger.Nop(), testUser)

	list := r.List()

	require.Len(t, list, 2)
	assert.Equal(t, "segunda", list[0].Type, "la más reciente va primero")
	assert.Equal(t, "primera", list[1].Type)
}

// ──────────────────────────────────────────────────────────────────────────────
// Subscribe
// ──────────────────────────────────────────────────────────────────────────────

func TestSubscribe_SnapshotReemplazaLista(t *testing.T) {
	store := newFakeStore()
	r := activity.New(store, newFakeMirror(), logger.Nop(), testUser)
	r.Subscribe(context.Background())

	raw, err := json.Marshal(entity.Activity{Type: "remota", Timestamp: time.Now()})
	require.NoError(t, err)
	store.snapshots <- repository.Snapshot{Docs: []repository.Document{{ID: "a9", Data: raw}}}

	require.Eventually(t, func() bool {
		list := r.List()
		return len(list) == 1 && list[0].ID == "a9"
	}, time.Second, 5*time.Millisecond)
}

// ──────────────────────────────────────────────────────────────────────────────
// Describe
// ──────────────────────────────────────────────────────────────────────────────

func TestDescribe_FormateaLineas(t *testing.T) {
	lines := []entity.MaterialLine{
		{Name: "Tela", Quantity: decimal.RequireFromString("2.5"), Unit: "m"},
		{Name: "Botones", Quantity: decimal.RequireFromString("4"), Unit: "ud"},
	}

	assert.Equal(t, "Tela: 2.5 m, Botones: 4 ud", activity.Describe(lines))
	assert.Equal(t, "", activity.Describe(nil))
}
