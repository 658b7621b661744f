package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/taller-api/internal/domain"
	"github.com/tu-usuario/taller-api/internal/domain/entity"
	"github.com/tu-usuario/taller-api/internal/domain/repository"
	"github.com/tu-usuario/taller-api/pkg/logger"
)

// Vocabulary valida unidades y categorías contra los vocabularios vigentes.
// Lo implementa el registro de ajustes.
type Vocabulary interface {
	HasUnit(unit string) bool
	HasCategory(category string) bool
}

// Ledger es el libro de materiales de un usuario: dueño de la colección remota
// de materiales y de su espejo local. El almacén remoto es la autoridad; el
// espejo es solo una caché de lectura. Toda mutación o bien ya fue al remoto y
// se refleja en el espejo como cortesía, o bien llegará al espejo con el
// siguiente evento del flujo de cambios. Nunca hay mutación local optimista con
// rollback posterior.
type Ledger struct {
	store  repository.DocumentStore
	mirror repository.MirrorStore
	vocab  Vocabulary
	log    *logger.Logger
	userID string

	mu        sync.RWMutex
	materials []entity.Material
	lastErr   error
}

// New construye el ledger de un usuario y precarga el espejo persistido
// (mejor esfuerzo) para poder responder antes del primer evento en vivo.
func New(store repository.DocumentStore, mirror repository.MirrorStore, vocab Vocabulary, log *logger.Logger, userID string) *Ledger {
	l := &Ledger{
		store:  store,
		mirror: mirror,
		vocab:  vocab,
		log:    log,
		userID: userID,
	}
	var cached []entity.Material
	if err := mirror.Load(l.mirrorKey(), &cached); err == nil {
		l.materials = cached
	} else if !errors.Is(err, domain.ErrNotFound) {
		log.Warn().Err(err).Msg("precarga del espejo de materiales")
	}
	return l
}

func (l *Ledger) mirrorKey() string {
	return l.userID + "/materials"
}

// Subscribe establece la suscripción en vivo a la colección de materiales del
// usuario. En cada evento reemplaza el espejo completo y lo persiste. Falla en
// silencio hacia un estado de error (registrado, no lanzado) si el usuario no
// está autenticado o la suscripción falla.
func (l *Ledger) Subscribe(ctx context.Context) {
	if l.userID == "" {
		l.setErr(domain.ErrUnauthorized)
		return
	}
	ch, err := l.store.Subscribe(ctx, l.userID, repository.CollectionMaterials)
	if err != nil {
		l.setErr(fmt.Errorf("suscripción a materiales: %w", err))
		l.log.Error().Err(err).Msg("suscripción a materiales")
		return
	}
	go func() {
		for snap := range ch {
			if snap.Err != nil {
				l.setErr(snap.Err)
				l.log.Error().Err(snap.Err).Msg("evento de materiales")
				continue
			}
			l.applySnapshot(snap.Docs)
		}
	}()
}

// applySnapshot reemplaza el espejo completo con el conjunto del evento y lo
// persiste. Documentos malformados (sin nombre o JSON inválido) se descartan
// con aviso en lugar de propagar campos vacíos.
func (l *Ledger) applySnapshot(docs []repository.Document) {
	materials := make([]entity.Material, 0, len(docs))
	for _, doc := range docs {
		var m entity.Material
		if err := json.Unmarshal(doc.Data, &m); err != nil {
			l.log.Warn().Str("doc_id", doc.ID).Err(err).Msg("material malformado descartado")
			continue
		}
		if m.Name == "" {
			l.log.Warn().Str("doc_id", doc.ID).Msg("material sin nombre descartado")
			continue
		}
		m.ID = doc.ID
		materials = append(materials, m)
	}

	l.mu.Lock()
	l.materials = materials
	l.persistLocked()
	l.mu.Unlock()
}

// persistLocked guarda el espejo en almacenamiento local. Llamar con mu tomado.
func (l *Ledger) persistLocked() {
	if err := l.mirror.Save(l.mirrorKey(), l.materials); err != nil {
		l.log.Warn().Err(err).Msg("persistir espejo de materiales")
	}
}

// GetByID busca el material solo en el espejo local; nunca dispara una lectura
// remota. Devuelve nil si no existe.
func (l *Ledger) GetByID(id string) *entity.Material {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := range l.materials {
		if l.materials[i].ID == id {
			m := l.materials[i]
			return &m
		}
	}
	return nil
}

// List devuelve una copia del espejo de materiales.
func (l *Ledger) List() []entity.Material {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]entity.Material, len(l.materials))
	copy(out, l.materials)
	return out
}

// ByCategory devuelve los materiales de una categoría.
func (l *Ledger) ByCategory(category string) []entity.Material {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []entity.Material
	for _, m := range l.materials {
		if m.Category == category {
			out = append(out, m)
		}
	}
	return out
}

// Add valida y envía la creación al almacén remoto. El espejo local se
// actualiza solo vía el evento posterior del flujo de cambios, no de forma
// optimista: el caller no debe asumir que la adición es visible al retornar.
func (l *Ledger) Add(ctx context.Context, m entity.Material) (string, error) {
	if m.Name == "" {
		return "", fmt.Errorf("%w: nombre requerido", domain.ErrInvalidInput)
	}
	if m.Quantity.IsNegative() {
		return "", fmt.Errorf("%w: la cantidad no puede ser negativa", domain.ErrInvalidInput)
	}
	if !l.vocab.HasUnit(m.Unit) {
		return "", fmt.Errorf("%w: unidad %q fuera del vocabulario", domain.ErrInvalidInput, m.Unit)
	}
	if !l.vocab.HasCategory(m.Category) {
		return "", fmt.Errorf("%w: categoría %q fuera del vocabulario", domain.ErrInvalidInput, m.Category)
	}
	m.UserID = l.userID
	id, err := l.store.Create(ctx, l.userID, repository.CollectionMaterials, m)
	if err != nil {
		return "", fmt.Errorf("crear material: %w", err)
	}
	return id, nil
}

// SetQuantity escribe la cantidad en el espejo y lo persiste, sin tocar el
// almacén remoto. Es la primitiva usada después de que una escritura remota ya
// tuvo éxito, para no esperar la vuelta del flujo de cambios. No-op si el
// material no está en el espejo.
func (l *Ledger) SetQuantity(id string, quantity decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.materials {
		if l.materials[i].ID == id {
			l.materials[i].Quantity = quantity
			l.persistLocked()
			return
		}
	}
}

// UpdateQuantityRemote actualiza la cantidad en el almacén remoto y la refleja
// de inmediato en el espejo. En fallo remoto el espejo queda intacto.
func (l *Ledger) UpdateQuantityRemote(ctx context.Context, id string, quantity decimal.Decimal) error {
	err := l.store.Update(ctx, l.userID, repository.CollectionMaterials, id, map[string]any{
		"quantity": quantity,
	})
	if err != nil {
		return fmt.Errorf("actualizar cantidad de %s: %w", id, err)
	}
	l.SetQuantity(id, quantity)
	return nil
}

// Update actualiza cantidad y unidad en el remoto y las refleja en el espejo.
func (l *Ledger) Update(ctx context.Context, id string, quantity decimal.Decimal, unit string) error {
	err := l.store.Update(ctx, l.userID, repository.CollectionMaterials, id, map[string]any{
		"quantity": quantity,
		"unit":     unit,
	})
	if err != nil {
		return fmt.Errorf("actualizar material %s: %w", id, err)
	}
	l.mu.Lock()
	for i := range l.materials {
		if l.materials[i].ID == id {
			l.materials[i].Quantity = quantity
			l.materials[i].Unit = unit
			l.persistLocked()
			break
		}
	}
	l.mu.Unlock()
	return nil
}

// Increase suma amount a la cantidad actual (remoto y luego espejo).
func (l *Ledger) Increase(ctx context.Context, id string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: importe negativo", domain.ErrInvalidInput)
	}
	m := l.GetByID(id)
	if m == nil {
		return domain.ErrNotFound
	}
	return l.UpdateQuantityRemote(ctx, id, m.Quantity.Add(amount))
}

// Decrease resta amount a la cantidad actual. Se niega a bajar de cero: si la
// cantidad es menor que amount, la llamada es un no-op silencioso, sin error.
// Es un guardarraíl deliberado, no una vía de excepción.
func (l *Ledger) Decrease(ctx context.Context, id string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: importe negativo", domain.ErrInvalidInput)
	}
	m := l.GetByID(id)
	if m == nil {
		return domain.ErrNotFound
	}
	if m.Quantity.LessThan(amount) {
		return nil
	}
	return l.UpdateQuantityRemote(ctx, id, m.Quantity.Sub(amount))
}

// Delete elimina el material del almacén remoto y del espejo. Un producto
// activo puede quedar con líneas colgantes; la validación del flujo de
// productos las reporta como "material no encontrado".
func (l *Ledger) Delete(ctx context.Context, id string) error {
	if err := l.store.Delete(ctx, l.userID, repository.CollectionMaterials, id); err != nil {
		return fmt.Errorf("eliminar material %s: %w", id, err)
	}
	l.mu.Lock()
	for i := range l.materials {
		if l.materials[i].ID == id {
			l.materials = append(l.materials[:i], l.materials[i+1:]...)
			l.persistLocked()
			break
		}
	}
	l.mu.Unlock()
	return nil
}

// LastError devuelve el último error registrado por la suscripción (nil si no hay).
func (l *Ledger) LastError() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastErr
}

func (l *Ledger) setErr(err error) {
	l.mu.Lock()
	l.lastErr = err
	l.mu.Unlock()
}
