package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/taller-api/internal/application/session"
)

// ActivityHandler expone el registro de actividad del usuario.
type ActivityHandler struct {
	sessions *session.Manager
}

// NewActivityHandler construye el handler de actividad.
func NewActivityHandler(sessions *session.Manager) *ActivityHandler {
	return &ActivityHandler{sessions: sessions}
}

// List godoc
// @Summary      Listar actividad (más reciente primero)
// @Tags         activities
// @Produce      json
// @Success      200  {array}  entity.Activity
// @Router       /api/activities [get]
func (h *ActivityHandler) List(c *fiber.Ctx) error {
	s := h.sessions.Get(GetUserID(c))
	return c.JSON(s.Activities.List())
}
