package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/tu-usuario/taller-api/internal/domain"
	"github.com/tu-usuario/taller-api/internal/domain/entity"
	"github.com/tu-usuario/taller-api/internal/domain/repository"
	"github.com/tu-usuario/taller-api/pkg/logger"
)

// settingsDocID es el ID fijo del único documento de cada vocabulario.
const settingsDocID = "values"

// Vocabularios por defecto, sembrados una sola vez por usuario.
var (
	DefaultUnits      = []string{"ud", "paq", "m", "rollo", "compl", "hoja", "bote"}
	DefaultCategories = []string{"Telas", "Mercería", "Herramientas", "Decoración", "Otros"}
)

// Registry mantiene los vocabularios de unidades y categorías de un usuario:
// respaldados en remoto, sincronizados cada uno por su propia suscripción y
// persistidos por separado en el espejo local. Implementa ledger.Vocabulary.
type Registry struct {
	store  repository.DocumentStore
	mirror repository.MirrorStore
	log    *logger.Logger
	userID string

	mu         sync.RWMutex
	units      []string
	categories []string
	lastErr    error
}

// New construye el registro y precarga los vocabularios persistidos.
func New(store repository.DocumentStore, mirror repository.MirrorStore, log *logger.Logger, userID string) *Registry {
	r := &Registry{
		store:  store,
		mirror: mirror,
		log:    log,
		userID: userID,
	}
	r.preload(r.unitsKey(), &r.units)
	r.preload(r.categoriesKey(), &r.categories)
	return r
}

func (r *Registry) preload(key string, dst *[]string) {
	var cached []string
	if err := r.mirror.Load(key, &cached); err == nil {
		*dst = cached
	} else if !errors.Is(err, domain.ErrNotFound) {
		r.log.Warn().Err(err).Str("key", key).Msg("precarga de vocabulario")
	}
}

func (r *Registry) unitsKey() string      { return r.userID + "/unitOptions" }
func (r *Registry) categoriesKey() string { return r.userID + "/categoryOptions" }

// Load siembra los valores por defecto si hace falta y arranca las dos
// suscripciones. Sin usuario autenticado limpia los vocabularios y registra el
// estado de error sin lanzarlo.
func (r *Registry) Load(ctx context.Context) {
	if r.userID == "" {
		r.mu.Lock()
		r.units = nil
		r.categories = nil
		r.lastErr = domain.ErrUnauthorized
		r.mu.Unlock()
		return
	}
	r.seed(ctx, repository.CollectionUnits, DefaultUnits)
	r.seed(ctx, repository.CollectionCategories, DefaultCategories)
	r.subscribe(ctx, repository.CollectionUnits, DefaultUnits)
	r.subscribe(ctx, repository.CollectionCategories, DefaultCategories)
}

// seed escribe los valores por defecto SOLO si el documento remoto no existe
// todavía. Un documento existente nunca se vuelve a sembrar: un valor por
// defecto que el usuario eliminó no debe reaparecer.
func (r *Registry) seed(ctx context.Context, col repository.Collection, defaults []string) {
	_, err := r.store.Get(ctx, r.userID, col, settingsDocID)
	if err == nil {
		return
	}
	if !errors.Is(err, domain.ErrNotFound) {
		r.setErr(fmt.Errorf("leer ajustes %s: %w", col, err))
		return
	}
	doc := entity.SettingValues{Values: slices.Clone(defaults)}
	if err := r.store.Set(ctx, r.userID, col, settingsDocID, doc); err != nil {
		r.setErr(fmt.Errorf("sembrar ajustes %s: %w", col, err))
		return
	}
	r.replace(col, doc.Values)
}

func (r *Registry) subscribe(ctx context.Context, col repository.Collection, defaults []string) {
	ch, err := r.store.Subscribe(ctx, r.userID, col)
	if err != nil {
		r.setErr(fmt.Errorf("suscripción a ajustes %s: %w", col, err))
		r.log.Error().Err(err).Str("collection", string(col)).Msg("suscripción a ajustes")
		return
	}
	go func() {
		for snap := range ch {
			if snap.Err != nil {
				r.setErr(snap.Err)
				r.log.Error().Err(snap.Err).Str("collection", string(col)).Msg("evento de ajustes")
				continue
			}
			r.applySnapshot(ctx, col, snap.Docs, defaults)
		}
	}()
}

func (r *Registry) applySnapshot(ctx context.Context, col repository.Collection, docs []repository.Document, defaults []string) {
	var found *repository.Document
	for i := range docs {
		if docs[i].ID == settingsDocID {
			found = &docs[i]
			break
		}
	}
	if found == nil {
		// Documento desaparecido: volver a sembrar (seed no toca documentos existentes).
		r.seed(ctx, col, defaults)
		return
	}
	var values entity.SettingValues
	if err := json.Unmarshal(found.Data, &values); err != nil {
		r.log.Warn().Str("collection", string(col)).Err(err).Msg("documento de ajustes malformado")
		return
	}
	r.replace(col, values.Values)
}

func (r *Registry) replace(col repository.Collection, values []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch col {
	case repository.CollectionUnits:
		r.units = values
		r.persistLocked(r.unitsKey(), r.units)
	case repository.CollectionCategories:
		r.categories = values
		r.persistLocked(r.categoriesKey(), r.categories)
	}
}

// persistLocked guarda un vocabulario en el espejo. Llamar con mu tomado.
func (r *Registry) persistLocked(key string, values []string) {
	if err := r.mirror.Save(key, values); err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("persistir vocabulario")
	}
}

// AddUnit añade una unidad al vocabulario (lectura-modificación-escritura del
// listado completo; entre dos clientes concurrentes gana la última escritura).
func (r *Registry) AddUnit(ctx context.Context, unit string) error {
	return r.addSetting(ctx, repository.CollectionUnits, unit)
}

// RemoveUnit elimina una unidad. No invalida materiales que ya la usan.
func (r *Registry) RemoveUnit(ctx context.Context, unit string) error {
	return r.removeSetting(ctx, repository.CollectionUnits, unit)
}

// AddCategory añade una categoría al vocabulario.
func (r *Registry) AddCategory(ctx context.Context, category string) error {
	return r.addSetting(ctx, repository.CollectionCategories, category)
}

// RemoveCategory elimina una categoría. No invalida materiales que ya la usan.
func (r *Registry) RemoveCategory(ctx context.Context, category string) error {
	return r.removeSetting(ctx, repository.CollectionCategories, category)
}

func (r *Registry) addSetting(ctx context.Context, col repository.Collection, value string) error {
	if value == "" {
		return fmt.Errorf("%w: valor vacío", domain.ErrInvalidInput)
	}
	current := r.valuesFor(col)
	if slices.Contains(current, value) {
		return nil
	}
	updated := append(slices.Clone(current), value)
	return r.writeValues(ctx, col, updated)
}

func (r *Registry) removeSetting(ctx context.Context, col repository.Collection, value string) error {
	current := r.valuesFor(col)
	updated := slices.DeleteFunc(slices.Clone(current), func(s string) bool { return s == value })
	if len(updated) == len(current) {
		return nil
	}
	return r.writeValues(ctx, col, updated)
}

// writeValues escribe el listado completo en remoto y lo refleja en local.
func (r *Registry) writeValues(ctx context.Context, col repository.Collection, values []string) error {
	doc := entity.SettingValues{Values: values}
	if err := r.store.Set(ctx, r.userID, col, settingsDocID, doc); err != nil {
		return fmt.Errorf("escribir ajustes %s: %w", col, err)
	}
	r.replace(col, values)
	return nil
}

func (r *Registry) valuesFor(col repository.Collection) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	switch col {
	case repository.CollectionUnits:
		return r.units
	case repository.CollectionCategories:
		return r.categories
	}
	return nil
}

// Units devuelve una copia del vocabulario de unidades (orden de inserción).
func (r *Registry) Units() []string {
	return slices.Clone(r.valuesFor(repository.CollectionUnits))
}

// Categories devuelve una copia del vocabulario de categorías.
func (r *Registry) Categories() []string {
	return slices.Clone(r.valuesFor(repository.CollectionCategories))
}

// HasUnit implementa ledger.Vocabulary.
func (r *Registry) HasUnit(unit string) bool {
	return slices.Contains(r.valuesFor(repository.CollectionUnits), unit)
}

// HasCategory implementa ledger.Vocabulary.
func (r *Registry) HasCategory(category string) bool {
	return slices.Contains(r.valuesFor(repository.CollectionCategories), category)
}

// LastError devuelve el último error registrado (nil si no hay).
func (r *Registry) LastError() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}

func (r *Registry) setErr(err error) {
	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()
}
