package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tu-usuario/taller-api/internal/domain"
	"github.com/tu-usuario/taller-api/internal/domain/repository"
)

var _ repository.DocumentStore = (*DocumentStoreRepo)(nil)

// Canal de pg_notify para cambios de documentos. El payload es "userID|collection";
// cada suscripción filtra por el suyo.
const notifyChannel = "document_changes"

// DocumentStoreRepo implementa DocumentStore sobre PostgreSQL: documentos jsonb
// en una tabla única y flujo de cambios vía LISTEN/NOTIFY. Cada escritura emite
// pg_notify en la misma transacción, de modo que una notificación entregada
// siempre ve el dato ya confirmado.
type DocumentStoreRepo struct {
	pool *pgxpool.Pool
}

// NewDocumentStore construye el adaptador con el pool.
func NewDocumentStore(pool *pgxpool.Pool) *DocumentStoreRepo {
	return &DocumentStoreRepo{pool: pool}
}

// Create inserta un documento nuevo con ID asignado (uuid) y notifica el cambio.
func (s *DocumentStoreRepo) Create(ctx context.Context, userID string, col repository.Collection, data any) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("serializar documento: %w", err)
	}
	id := uuid.New().String()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO documents (user_id, collection, doc_id, data, updated_at)
		VALUES ($1, $2, $3, $4, now())`
	if _, err := tx.Exec(ctx, query, userID, string(col), id, raw); err != nil {
		return "", fmt.Errorf("crear documento: %w", err)
	}
	if err := notifyChange(ctx, tx, userID, col); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit transaction: %w", err)
	}
	return id, nil
}

// Update fusiona los campos indicados en el documento (jsonb ||) y notifica.
// Devuelve domain.ErrNotFound si el documento no existe.
func (s *DocumentStoreRepo) Update(ctx context.Context, userID string, col repository.Collection, id string, fields map[string]any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("serializar campos: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		UPDATE documents SET data = data || $4::jsonb, updated_at = now()
		WHERE user_id = $1 AND collection = $2 AND doc_id = $3`
	tag, err := tx.Exec(ctx, query, userID, string(col), id, raw)
	if err != nil {
		return fmt.Errorf("actualizar documento: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	if err := notifyChange(ctx, tx, userID, col); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Set escribe el documento completo con ID fijo (upsert) y notifica.
func (s *DocumentStoreRepo) Set(ctx context.Context, userID string, col repository.Collection, id string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("serializar documento: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO documents (user_id, collection, doc_id, data, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id, collection, doc_id)
		DO UPDATE SET data = EXCLUDED.data, updated_at = now()`
	if _, err := tx.Exec(ctx, query, userID, string(col), id, raw); err != nil {
		return fmt.Errorf("escribir documento: %w", err)
	}
	if err := notifyChange(ctx, tx, userID, col); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Delete elimina el documento y notifica. No es error si ya no existe.
func (s *DocumentStoreRepo) Delete(ctx context.Context, userID string, col repository.Collection, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `DELETE FROM documents WHERE user_id = $1 AND collection = $2 AND doc_id = $3`
	if _, err := tx.Exec(ctx, query, userID, string(col), id); err != nil {
		return fmt.Errorf("eliminar documento: %w", err)
	}
	if err := notifyChange(ctx, tx, userID, col); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Get lee un único documento. Devuelve domain.ErrNotFound si no existe.
func (s *DocumentStoreRepo) Get(ctx context.Context, userID string, col repository.Collection, id string) (*repository.Document, error) {
	query := `
		SELECT doc_id, data FROM documents
		WHERE user_id = $1 AND collection = $2 AND doc_id = $3`
	var doc repository.Document
	err := s.pool.QueryRow(ctx, query, userID, string(col), id).Scan(&doc.ID, &doc.Data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("leer documento: %w", err)
	}
	return &doc, nil
}

// Subscribe mantiene una conexión dedicada en LISTEN y emite el conjunto completo
// de la colección: una vez al suscribirse y de nuevo tras cada notificación que
// coincida con usuario+colección. El canal se cierra al cancelar ctx; los errores
// de lectura viajan dentro del Snapshot sin cerrar el canal.
func (s *DocumentStoreRepo) Subscribe(ctx context.Context, userID string, col repository.Collection) (<-chan repository.Snapshot, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("adquirir conexión de escucha: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen: %w", err)
	}

	ch := make(chan repository.Snapshot, 1)
	payload := userID + "|" + string(col)

	go func() {
		defer conn.Release()
		defer close(ch)

		// Snapshot inicial para renderizar sin esperar al primer cambio.
		if !send(ctx, ch, s.readAll(ctx, userID, col)) {
			return
		}
		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				send(ctx, ch, repository.Snapshot{Err: fmt.Errorf("esperar notificación: %w", err)})
				return
			}
			if n.Payload != payload {
				continue
			}
			if !send(ctx, ch, s.readAll(ctx, userID, col)) {
				return
			}
		}
	}()
	return ch, nil
}

func send(ctx context.Context, ch chan<- repository.Snapshot, snap repository.Snapshot) bool {
	select {
	case ch <- snap:
		return true
	case <-ctx.Done():
		return false
	}
}

// readAll lee el conjunto completo de la colección en orden estable por doc_id,
// de modo que dos lecturas del mismo estado produzcan snapshots idénticos.
func (s *DocumentStoreRepo) readAll(ctx context.Context, userID string, col repository.Collection) repository.Snapshot {
	query := `
		SELECT doc_id, data FROM documents
		WHERE user_id = $1 AND collection = $2
		ORDER BY doc_id`
	rows, err := s.pool.Query(ctx, query, userID, string(col))
	if err != nil {
		return repository.Snapshot{Err: fmt.Errorf("leer colección: %w", err)}
	}
	defer rows.Close()

	var docs []repository.Document
	for rows.Next() {
		var doc repository.Document
		if err := rows.Scan(&doc.ID, &doc.Data); err != nil {
			return repository.Snapshot{Err: fmt.Errorf("escanear documento: %w", err)}
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return repository.Snapshot{Err: fmt.Errorf("leer colección: %w", err)}
	}
	return repository.Snapshot{Docs: docs}
}

// notifyChange emite pg_notify dentro de la transacción de la escritura.
func notifyChange(ctx context.Context, tx pgx.Tx, userID string, col repository.Collection) error {
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, userID+"|"+string(col)); err != nil {
		return fmt.Errorf("notificar cambio: %w", err)
	}
	return nil
}
