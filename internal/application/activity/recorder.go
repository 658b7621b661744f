package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tu-usuario/taller-api/internal/domain"
	"github.com/tu-usuario/taller-api/internal/domain/entity"
	"github.com/tu-usuario/taller-api/internal/domain/repository"
	"github.com/tu-usuario/taller-api/pkg/logger"
)

// Recorder es el registro de actividad de un usuario. Es un sumidero: Record
// nunca devuelve error ni bloquea la mutación que lo origina; los fallos se
// registran en el log y se descartan.
type Recorder struct {
	store  repository.DocumentStore
	mirror repository.MirrorStore
	log    *logger.Logger
	userID string

	mu         sync.RWMutex
	activities []entity.Activity
}

// New construye el recorder y precarga el espejo persistido.
func New(store repository.DocumentStore, mirror repository.MirrorStore, log *logger.Logger, userID string) *Recorder {
	r := &Recorder{
		store:  store,
		mirror: mirror,
		log:    log,
		userID: userID,
	}
	var cached []entity.Activity
	if err := mirror.Load(r.mirrorKey(), &cached); err == nil {
		r.activities = cached
	} else if !errors.Is(err, domain.ErrNotFound) {
		log.Warn().Err(err).Msg("precarga del espejo de actividades")
	}
	return r
}

func (r *Recorder) mirrorKey() string {
	return r.userID + "/activities"
}

// Record añade una entrada legible al registro: titular más detalle opcional.
func (r *Recorder) Record(ctx context.Context, activityType, details string) {
	if r.userID == "" {
		return
	}
	a := entity.Activity{
		UserID:    r.userID,
		Type:      activityType,
		Details:   details,
		Timestamp: time.Now(),
	}
	id, err := r.store.Create(ctx, r.userID, repository.CollectionActivities, a)
	if err != nil {
		r.log.Warn().Err(err).Str("type", activityType).Msg("registrar actividad")
		return
	}
	a.ID = id

	r.mu.Lock()
	r.activities = append(r.activities, a)
	r.persistLocked()
	r.mu.Unlock()
}

// Subscribe sincroniza el registro con la colección remota de actividades.
func (r *Recorder) Subscribe(ctx context.Context) {
	if r.userID == "" {
		return
	}
	ch, err := r.store.Subscribe(ctx, r.userID, repository.CollectionActivities)
	if err != nil {
		r.log.Error().Err(err).Msg("suscripción a actividades")
		return
	}
	go func() {
		for snap := range ch {
			if snap.Err != nil {
				r.log.Error().Err(snap.Err).Msg("evento de actividades")
				continue
			}
			r.applySnapshot(snap.Docs)
		}
	}()
}

func (r *Recorder) applySnapshot(docs []repository.Document) {
	activities := make([]entity.Activity, 0, len(docs))
	for _, doc := range docs {
		var a entity.Activity
		if err := json.Unmarshal(doc.Data, &a); err != nil {
			r.log.Warn().Str("doc_id", doc.ID).Err(err).Msg("actividad malformada descartada")
			continue
		}
		a.ID = doc.ID
		activities = append(activities, a)
	}

	r.mu.Lock()
	r.activities = activities
	r.persistLocked()
	r.mu.Unlock()
}

// persistLocked guarda el espejo de actividades. Llamar con mu tomado.
func (r *Recorder) persistLocked() {
	if err := r.mirror.Save(r.mirrorKey(), r.activities); err != nil {
		r.log.Warn().Err(err).Msg("persistir espejo de actividades")
	}
}

// List devuelve las actividades ordenadas de más reciente a más antigua.
func (r *Recorder) List() []entity.Activity {
	r.mu.RLock()
	out := make([]entity.Activity, len(r.activities))
	copy(out, r.activities)
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Describe formatea una lista de líneas de material como "nombre: cantidad unidad, ...".
func Describe(lines []entity.MaterialLine) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, fmt.Sprintf("%s: %s %s", line.Name, line.Quantity.String(), line.Unit))
	}
	return strings.Join(parts, ", ")
}
