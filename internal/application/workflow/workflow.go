package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/taller-api/internal/application/activity"
	"github.com/tu-usuario/taller-api/internal/domain"
	"github.com/tu-usuario/taller-api/internal/domain/entity"
	"github.com/tu-usuario/taller-api/internal/domain/repository"
	"github.com/tu-usuario/taller-api/pkg/logger"
)

// MaterialLedger es la vista del ledger que necesita el flujo de productos:
// lectura del espejo para validar y las primitivas de actualización. El flujo
// nunca muta el espejo de materiales directamente.
type MaterialLedger interface {
	GetByID(id string) *entity.Material
	UpdateQuantityRemote(ctx context.Context, id string, quantity decimal.Decimal) error
}

// ActivityRecorder recibe las entradas legibles del registro de actividad.
// Es un efecto secundario: su fallo nunca bloquea la mutación de stock.
type ActivityRecorder interface {
	Record(ctx context.Context, activityType, details string)
}

// NotifyFunc recibe (mensaje, severidad) para cada resultado relevante al
// usuario. Severidades: "success" | "error". La inyecta la capa de UI y puede
// faltar: las llamadas son no-ops defensivos.
type NotifyFunc func(message, severity string)

// Workflow orquesta el ciclo de vida de los productos de un usuario:
// validación contra el ledger de materiales, persistencia en el almacén remoto
// y acciones compensatorias en cancelación. Dueño de la colección remota de
// productos y de su espejo local.
//
// Los débitos y créditos de materiales dentro de una misma operación se
// aplican en secuencia con pasos de deshacer registrados: un fallo a mitad
// revierte lo ya aplicado, de modo que no sobrevive una aplicación parcial.
type Workflow struct {
	store    repository.DocumentStore
	mirror   repository.MirrorStore
	ledger   MaterialLedger
	recorder ActivityRecorder
	log      *logger.Logger
	userID   string

	mu       sync.RWMutex
	products []entity.Product
	notify   NotifyFunc
	lastErr  error
}

// New construye el flujo de productos de un usuario y precarga su espejo.
func New(store repository.DocumentStore, mirror repository.MirrorStore, ledger MaterialLedger, recorder ActivityRecorder, log *logger.Logger, userID string) *Workflow {
	w := &Workflow{
		store:    store,
		mirror:   mirror,
		ledger:   ledger,
		recorder: recorder,
		log:      log,
		userID:   userID,
	}
	var cached []entity.Product
	if err := mirror.Load(w.mirrorKey(), &cached); err == nil {
		w.products = cached
	} else if !errors.Is(err, domain.ErrNotFound) {
		log.Warn().Err(err).Msg("precarga del espejo de productos")
	}
	return w
}

func (w *Workflow) mirrorKey() string {
	return w.userID + "/products"
}

// SetNotify instala el hook de notificaciones de la UI.
func (w *Workflow) SetNotify(fn NotifyFunc) {
	w.mu.Lock()
	w.notify = fn
	w.mu.Unlock()
}

func (w *Workflow) notifyUser(message, severity string) {
	w.mu.RLock()
	fn := w.notify
	w.mu.RUnlock()
	if fn != nil {
		fn(message, severity)
	}
}

// Subscribe establece la suscripción en vivo a la colección de productos.
// En cada evento reemplaza el espejo completo y lo persiste.
func (w *Workflow) Subscribe(ctx context.Context) {
	if w.userID == "" {
		w.setErr(domain.ErrUnauthorized)
		return
	}
	ch, err := w.store.Subscribe(ctx, w.userID, repository.CollectionProducts)
	if err != nil {
		w.setErr(fmt.Errorf("suscripción a productos: %w", err))
		w.log.Error().Err(err).Msg("suscripción a productos")
		return
	}
	go func() {
		for snap := range ch {
			if snap.Err != nil {
				w.setErr(snap.Err)
				w.log.Error().Err(snap.Err).Msg("evento de productos")
				continue
			}
			w.applySnapshot(snap.Docs)
		}
	}()
}

func (w *Workflow) applySnapshot(docs []repository.Document) {
	products := make([]entity.Product, 0, len(docs))
	for _, doc := range docs {
		var p entity.Product
		if err := json.Unmarshal(doc.Data, &p); err != nil {
			w.log.Warn().Str("doc_id", doc.ID).Err(err).Msg("producto malformado descartado")
			continue
		}
		if p.Name == "" || p.RepeatCount < 0 {
			w.log.Warn().Str("doc_id", doc.ID).Msg("producto inválido descartado")
			continue
		}
		p.ID = doc.ID
		products = append(products, p)
	}

	w.mu.Lock()
	w.products = products
	w.persistLocked()
	w.mu.Unlock()
}

// persistLocked guarda el espejo de productos. Llamar con mu tomado.
func (w *Workflow) persistLocked() {
	if err := w.mirror.Save(w.mirrorKey(), w.products); err != nil {
		w.log.Warn().Err(err).Msg("persistir espejo de productos")
	}
}

// GetByID busca el producto en el espejo local. Devuelve nil si no existe.
func (w *Workflow) GetByID(id string) *entity.Product {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for i := range w.products {
		if w.products[i].ID == id {
			p := w.products[i]
			return &p
		}
	}
	return nil
}

// List devuelve los productos ordenados por fecha de creación descendente.
func (w *Workflow) List() []entity.Product {
	w.mu.RLock()
	out := make([]entity.Product, len(w.products))
	copy(out, w.products)
	w.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Save persiste el borrador como producto activo con repeatCount = 1 y debita
// el stock de cada línea. La validación recorre todas las líneas antes de
// decidir: si alguna falla, el guardado completo se rechaza y ningún stock se
// toca. Un fallo de débito a mitad de secuencia revierte los débitos ya
// aplicados y elimina el producto recién creado.
func (w *Workflow) Save(ctx context.Context, d *Draft) (*entity.Product, error) {
	if d == nil || len(d.Materials) == 0 {
		w.notifyUser("añade materiales al producto", "error")
		return nil, domain.ErrProductEmpty
	}
	if d.Name == "" {
		w.notifyUser("el producto necesita un nombre", "error")
		return nil, fmt.Errorf("%w: nombre requerido", domain.ErrInvalidInput)
	}
	if issues := w.Validate(d.Materials); len(issues) > 0 {
		w.notifyIssues(issues)
		return nil, &ValidationError{Issues: issues}
	}

	lines := make([]entity.MaterialLine, len(d.Materials))
	copy(lines, d.Materials)
	product := entity.Product{
		UserID:      w.userID,
		Name:        d.Name,
		Materials:   lines,
		RepeatCount: 1,
		CreatedAt:   time.Now(),
	}
	id, err := w.store.Create(ctx, w.userID, repository.CollectionProducts, product)
	if err != nil {
		w.notifyUser("error al crear el producto: "+err.Error(), "error")
		return nil, fmt.Errorf("crear producto: %w", err)
	}
	product.ID = id

	if err := w.debitLines(ctx, lines); err != nil {
		if delErr := w.store.Delete(ctx, w.userID, repository.CollectionProducts, id); delErr != nil {
			w.log.Error().Err(delErr).Str("product_id", id).Msg("deshacer creación de producto")
		}
		w.notifyUser("error al descontar materiales: "+err.Error(), "error")
		return nil, err
	}

	w.mu.Lock()
	w.products = append(w.products, product)
	w.persistLocked()
	w.mu.Unlock()

	w.recorder.Record(ctx, fmt.Sprintf("Producto creado: %q", product.Name),
		"Materiales gastados: "+activity.Describe(lines))
	w.notifyUser(fmt.Sprintf("producto %q creado", product.Name), "success")
	return &product, nil
}

// Repeat vuelve a producir el producto: valida el stock actual, debita cada
// línea en secuencia e incrementa repeatCount. Cualquier fallo revierte los
// débitos aplicados en esta llamada.
func (w *Workflow) Repeat(ctx context.Context, productID string) error {
	p := w.GetByID(productID)
	if p == nil {
		w.notifyUser("producto no encontrado", "error")
		return domain.ErrNotFound
	}
	if issues := w.Validate(p.Materials); len(issues) > 0 {
		w.notifyIssues(issues)
		return &ValidationError{Issues: issues}
	}

	if err := w.debitLines(ctx, p.Materials); err != nil {
		w.notifyUser("error al repetir el producto: "+err.Error(), "error")
		return err
	}

	newCount := p.RepeatCount + 1
	err := w.store.Update(ctx, w.userID, repository.CollectionProducts, productID, map[string]any{
		"repeatCount": newCount,
	})
	if err != nil {
		w.creditLines(ctx, p.Materials)
		w.notifyUser("error al repetir el producto: "+err.Error(), "error")
		return fmt.Errorf("actualizar repeticiones: %w", err)
	}
	w.setRepeatCount(productID, newCount)

	w.recorder.Record(ctx, fmt.Sprintf("Producto repetido: %q", p.Name),
		"Materiales gastados: "+activity.Describe(p.Materials))
	w.notifyUser(fmt.Sprintf("producto %q repetido", p.Name), "success")
	return nil
}

// Cancel deshace una producción: devuelve el stock de cada línea y decrementa
// repeatCount. Con repeatCount en cero el producto se elimina (remoto y
// espejo), no se conserva. Cancelar un producto sin repeticiones se rechaza
// sin tocar ningún material. Las líneas cuyo material ya no existe se omiten.
func (w *Workflow) Cancel(ctx context.Context, productID string) error {
	p := w.GetByID(productID)
	if p == nil {
		w.notifyUser("producto no encontrado", "error")
		return domain.ErrNotFound
	}
	if p.RepeatCount <= 0 {
		w.notifyUser("no se puede cancelar un producto sin repeticiones", "error")
		return domain.ErrRepeatCountZero
	}

	returned, err := w.creditExistingLines(ctx, p.Materials)
	if err != nil {
		w.notifyUser("error al devolver materiales: "+err.Error(), "error")
		return err
	}

	newCount := p.RepeatCount - 1
	if newCount == 0 {
		if err := w.store.Delete(ctx, w.userID, repository.CollectionProducts, productID); err != nil {
			w.debitLinesBestEffort(ctx, returned)
			w.notifyUser("error al eliminar el producto: "+err.Error(), "error")
			return fmt.Errorf("eliminar producto: %w", err)
		}
		w.removeFromMirror(productID)
		w.recorder.Record(ctx, fmt.Sprintf("Cancelación de producto: %q", p.Name),
			"Materiales devueltos: "+activity.Describe(returned))
		w.recorder.Record(ctx, fmt.Sprintf("Producto %q eliminado", p.Name), "")
		w.notifyUser(fmt.Sprintf("producto %q eliminado", p.Name), "success")
		return nil
	}

	err = w.store.Update(ctx, w.userID, repository.CollectionProducts, productID, map[string]any{
		"repeatCount": newCount,
	})
	if err != nil {
		w.debitLinesBestEffort(ctx, returned)
		w.notifyUser("error al cancelar el producto: "+err.Error(), "error")
		return fmt.Errorf("actualizar repeticiones: %w", err)
	}
	w.setRepeatCount(productID, newCount)

	w.recorder.Record(ctx, fmt.Sprintf("Cancelación de producto: %q", p.Name),
		"Materiales devueltos: "+activity.Describe(returned))
	w.notifyUser(fmt.Sprintf("materiales devueltos; repeticiones restantes: %d", newCount), "success")
	return nil
}

// Remove elimina el producto de forma administrativa: borra en remoto y en el
// espejo sin devolver ningún material. Es una eliminación distinta y no
// compensatoria, no una cancelación de ciclo de vida.
func (w *Workflow) Remove(ctx context.Context, productID string) error {
	p := w.GetByID(productID)
	if p == nil {
		return domain.ErrNotFound
	}
	if err := w.store.Delete(ctx, w.userID, repository.CollectionProducts, productID); err != nil {
		w.notifyUser("error al eliminar el producto: "+err.Error(), "error")
		return fmt.Errorf("eliminar producto: %w", err)
	}
	w.removeFromMirror(productID)
	w.notifyUser(fmt.Sprintf("producto %q eliminado", p.Name), "success")
	return nil
}

// LastError devuelve el último error registrado por la suscripción (nil si no hay).
func (w *Workflow) LastError() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastErr
}

// ── Aplicación secuencial con deshacer ───────────────────────────────────────

// debitLines descuenta cada línea en secuencia. Si un débito falla, revierte
// los ya aplicados y devuelve el error: no sobrevive una aplicación parcial.
// El stock se recomprueba línea a línea: la validación previa mira cada línea
// contra el stock del momento, y entre ella y el débito el stock pudo cambiar
// (o varias líneas pueden compartir material). Un débito que dejaría la
// cantidad en negativo se rechaza aquí.
func (w *Workflow) debitLines(ctx context.Context, lines []entity.MaterialLine) error {
	var applied []entity.MaterialLine
	for _, line := range lines {
		m := w.ledger.GetByID(line.MaterialID)
		if m == nil {
			w.creditLines(ctx, applied)
			return fmt.Errorf("%w: material %s", domain.ErrNotFound, line.MaterialID)
		}
		if m.Quantity.LessThan(line.Quantity) {
			w.creditLines(ctx, applied)
			return fmt.Errorf("%w: %q", domain.ErrInsufficientStock, m.Name)
		}
		if err := w.ledger.UpdateQuantityRemote(ctx, line.MaterialID, m.Quantity.Sub(line.Quantity)); err != nil {
			w.creditLines(ctx, applied)
			return err
		}
		applied = append(applied, line)
	}
	return nil
}

// creditExistingLines devuelve el stock de cada línea cuyo material siga
// existiendo (las colgantes se omiten). Si un crédito falla, revierte los ya
// aplicados y devuelve el error. Retorna las líneas efectivamente devueltas.
func (w *Workflow) creditExistingLines(ctx context.Context, lines []entity.MaterialLine) ([]entity.MaterialLine, error) {
	var applied []entity.MaterialLine
	for _, line := range lines {
		m := w.ledger.GetByID(line.MaterialID)
		if m == nil {
			continue
		}
		if err := w.ledger.UpdateQuantityRemote(ctx, line.MaterialID, m.Quantity.Add(line.Quantity)); err != nil {
			w.debitLinesBestEffort(ctx, applied)
			return nil, err
		}
		applied = append(applied, line)
	}
	return applied, nil
}

// creditLines deshace débitos: suma de vuelta cada línea, a mejor esfuerzo.
func (w *Workflow) creditLines(ctx context.Context, lines []entity.MaterialLine) {
	for _, line := range lines {
		m := w.ledger.GetByID(line.MaterialID)
		if m == nil {
			continue
		}
		if err := w.ledger.UpdateQuantityRemote(ctx, line.MaterialID, m.Quantity.Add(line.Quantity)); err != nil {
			w.log.Error().Err(err).Str("material_id", line.MaterialID).Msg("revertir débito")
		}
	}
}

// debitLinesBestEffort deshace créditos: resta de vuelta cada línea, a mejor esfuerzo.
func (w *Workflow) debitLinesBestEffort(ctx context.Context, lines []entity.MaterialLine) {
	for _, line := range lines {
		m := w.ledger.GetByID(line.MaterialID)
		if m == nil {
			continue
		}
		if err := w.ledger.UpdateQuantityRemote(ctx, line.MaterialID, m.Quantity.Sub(line.Quantity)); err != nil {
			w.log.Error().Err(err).Str("material_id", line.MaterialID).Msg("revertir crédito")
		}
	}
}

func (w *Workflow) notifyIssues(issues []LineIssue) {
	for _, issue := range issues {
		w.notifyUser(issue.Message(), "error")
	}
}

func (w *Workflow) setRepeatCount(productID string, count int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.products {
		if w.products[i].ID == productID {
			w.products[i].RepeatCount = count
			w.persistLocked()
			return
		}
	}
}

func (w *Workflow) removeFromMirror(productID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.products {
		if w.products[i].ID == productID {
			w.products = append(w.products[:i], w.products[i+1:]...)
			w.persistLocked()
			return
		}
	}
}

func (w *Workflow) setErr(err error) {
	w.mu.Lock()
	w.lastErr = err
	w.mu.Unlock()
}
