package http

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/taller-api/internal/application/dto"
	"github.com/tu-usuario/taller-api/internal/domain/repository"
	"github.com/tu-usuario/taller-api/pkg/logger"
	"github.com/valyala/fasthttp"
)

// streamCollections colecciones expuestas por el endpoint de streaming.
var streamCollections = map[string]repository.Collection{
	"materials":  repository.CollectionMaterials,
	"products":   repository.CollectionProducts,
	"activities": repository.CollectionActivities,
	"units":      repository.CollectionUnits,
	"categories": repository.CollectionCategories,
}

// StreamHandler emite por Server-Sent Events el conjunto completo de una
// colección en cada cambio: primero el estado actual, luego un evento por
// cada mutación remota.
type StreamHandler struct {
	store repository.DocumentStore
	log   *logger.Logger
}

// NewStreamHandler construye el handler de streaming.
func NewStreamHandler(store repository.DocumentStore, log *logger.Logger) *StreamHandler {
	return &StreamHandler{store: store, log: log}
}

// Stream godoc
// @Summary      Suscribirse a los cambios de una colección (SSE)
// @Tags         stream
// @Produce      text/event-stream
// @Param        collection  path  string  true  "materials | products | activities | units | categories"
// @Success      200
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stream/{collection} [get]
func (h *StreamHandler) Stream(c *fiber.Ctx) error {
	col, ok := streamCollections[c.Params("collection")]
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "UNKNOWN_COLLECTION", Message: "colección desconocida"})
	}
	userID := GetUserID(c)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := h.store.Subscribe(ctx, userID, col)
	if err != nil {
		cancel()
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		for snap := range ch {
			if snap.Err != nil {
				h.log.Warn().Err(snap.Err).Str("collection", string(col)).Msg("evento de streaming")
				fmt.Fprintf(w, "event: error\ndata: %q\n\n", snap.Err.Error())
				if err := w.Flush(); err != nil {
					return
				}
				continue
			}
			payload, err := json.Marshal(snapshotPayload(snap.Docs))
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", payload)
			// Flush falla cuando el cliente cerró: cancelar y salir.
			if err := w.Flush(); err != nil {
				return
			}
		}
	}))
	return nil
}

type streamDoc struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

func snapshotPayload(docs []repository.Document) []streamDoc {
	out := make([]streamDoc, 0, len(docs))
	for _, d := range docs {
		out = append(out, streamDoc{ID: d.ID, Data: d.Data})
	}
	return out
}
