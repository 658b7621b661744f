package repository

import (
	"context"
	"encoding/json"
)

// Collection identifica una colección de documentos acotada por usuario en el
// almacén remoto.
type Collection string

// Colecciones por usuario del almacén remoto.
const (
	CollectionMaterials  Collection = "materials"
	CollectionProducts   Collection = "products"
	CollectionActivities Collection = "activities"
	CollectionUnits      Collection = "settings/units"
	CollectionCategories Collection = "settings/categories"
)

// Document es un documento remoto: ID asignado por el almacén más su contenido JSON.
// El almacén no impone esquema; la forma la valida quien decodifica.
type Document struct {
	ID   string
	Data json.RawMessage
}

// Snapshot es el contenido completo de una colección en un instante. El canal de
// cambios emite un Snapshot por cada cambio (conjunto completo, no deltas).
// Err transporta fallos de la suscripción sin cerrar el canal.
type Snapshot struct {
	Docs []Document
	Err  error
}

// DocumentStore define el puerto hacia el almacén de documentos remoto con
// suscripción en tiempo real. Toda operación está acotada al usuario propietario.
type DocumentStore interface {
	// Create inserta un documento nuevo y devuelve el ID asignado por el almacén.
	Create(ctx context.Context, userID string, col Collection, data any) (string, error)
	// Update fusiona los campos indicados en el documento. ErrNotFound si no existe.
	Update(ctx context.Context, userID string, col Collection, id string, fields map[string]any) error
	// Set escribe el documento completo con un ID fijo (upsert). Lo usan los
	// vocabularios de ajustes, cuyo documento tiene ID conocido.
	Set(ctx context.Context, userID string, col Collection, id string, data any) error
	// Delete elimina el documento. No es error si ya no existe.
	Delete(ctx context.Context, userID string, col Collection, id string) error
	// Get lee un único documento. ErrNotFound si no existe.
	Get(ctx context.Context, userID string, col Collection, id string) (*Document, error)
	// Subscribe emite el conjunto completo de documentos de la colección: una vez
	// al suscribirse y de nuevo tras cada cambio. El canal se cierra al cancelar ctx.
	Subscribe(ctx context.Context, userID string, col Collection) (<-chan Snapshot, error)
}
