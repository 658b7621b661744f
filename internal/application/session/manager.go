package session

import (
	"context"
	"sync"

	"github.com/tu-usuario/taller-api/internal/application/activity"
	"github.com/tu-usuario/taller-api/internal/application/ledger"
	"github.com/tu-usuario/taller-api/internal/application/settings"
	"github.com/tu-usuario/taller-api/internal/application/workflow"
	"github.com/tu-usuario/taller-api/internal/domain/repository"
	"github.com/tu-usuario/taller-api/pkg/logger"
)

// Session agrupa los componentes con estado de un usuario: su registro de
// ajustes, su ledger de materiales, su registro de actividad y su flujo de
// productos, todos compartiendo almacén remoto y espejo local.
type Session struct {
	Settings   *settings.Registry
	Ledger     *ledger.Ledger
	Activities *activity.Recorder
	Workflow   *workflow.Workflow
}

// Manager crea y retiene una Session por usuario autenticado. La primera
// petición de un usuario arranca sus suscripciones con el contexto del
// manager, que vive lo que el proceso.
type Manager struct {
	store  repository.DocumentStore
	mirror repository.MirrorStore
	log    *logger.Logger
	ctx    context.Context

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager construye el manager. ctx gobierna la vida de todas las
// suscripciones que se arranquen.
func NewManager(ctx context.Context, store repository.DocumentStore, mirror repository.MirrorStore, log *logger.Logger) *Manager {
	return &Manager{
		store:    store,
		mirror:   mirror,
		log:      log,
		ctx:      ctx,
		sessions: make(map[string]*Session),
	}
}

// Get devuelve la sesión del usuario, creándola y suscribiéndola si es la
// primera vez que se le ve.
func (m *Manager) Get(userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		return s
	}
	s := m.build(userID)
	m.sessions[userID] = s
	return s
}

// SubscriptionHealth resume el estado de las suscripciones de las sesiones
// activas, para la sonda de salud del proceso.
type SubscriptionHealth struct {
	Sessions int      `json:"sessions"`
	Errors   []string `json:"errors,omitempty"`
}

// Health recoge el último error registrado por los componentes suscritos de
// cada sesión activa. Los fallos de suscripción no se lanzan en el momento,
// se registran: esta es su superficie observable.
func (m *Manager) Health() SubscriptionHealth {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := SubscriptionHealth{Sessions: len(m.sessions)}
	for _, s := range m.sessions {
		for _, err := range []error{s.Settings.LastError(), s.Ledger.LastError(), s.Workflow.LastError()} {
			if err != nil {
				h.Errors = append(h.Errors, err.Error())
			}
		}
	}
	return h
}

func (m *Manager) build(userID string) *Session {
	reg := settings.New(m.store, m.mirror, m.log, userID)
	reg.Load(m.ctx)

	led := ledger.New(m.store, m.mirror, reg, m.log, userID)
	led.Subscribe(m.ctx)

	rec := activity.New(m.store, m.mirror, m.log, userID)
	rec.Subscribe(m.ctx)

	wf := workflow.New(m.store, m.mirror, led, rec, m.log, userID)
	wf.Subscribe(m.ctx)

	return &Session{
		Settings:   reg,
		Ledger:     led,
		Activities: rec,
		Workflow:   wf,
	}
}
