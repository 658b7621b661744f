package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/taller-api/internal/application/dto"
	"github.com/tu-usuario/taller-api/internal/application/session"
	"github.com/tu-usuario/taller-api/internal/domain"
	"github.com/tu-usuario/taller-api/internal/domain/entity"
)

// MaterialHandler expone el ledger de materiales del usuario autenticado.
type MaterialHandler struct {
	sessions *session.Manager
}

// NewMaterialHandler construye el handler de materiales.
func NewMaterialHandler(sessions *session.Manager) *MaterialHandler {
	return &MaterialHandler{sessions: sessions}
}

// List godoc
// @Summary      Listar materiales del almacén
// @Tags         materials
// @Produce      json
// @Param        category  query  string  false  "filtrar por categoría"
// @Success      200  {array}  entity.Material
// @Router       /api/materials [get]
func (h *MaterialHandler) List(c *fiber.Ctx) error {
	s := h.sessions.Get(GetUserID(c))
	if cat := c.Query("category"); cat != "" {
		return c.JSON(s.Ledger.ByCategory(cat))
	}
	return c.JSON(s.Ledger.List())
}

// GetByID godoc
// @Summary      Obtener un material
// @Tags         materials
// @Produce      json
// @Param        id  path  string  true  "ID del material"
// @Success      200  {object}  entity.Material
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/materials/{id} [get]
func (h *MaterialHandler) GetByID(c *fiber.Ctx) error {
	s := h.sessions.Get(GetUserID(c))
	m := s.Ledger.GetByID(c.Params("id"))
	if m == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "material no encontrado"})
	}
	return c.JSON(m)
}

// Create godoc
// @Summary      Añadir material al almacén
// @Tags         materials
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateMaterialRequest  true  "name, quantity, unit, category"
// @Success      201  {object}  map[string]string
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/materials [post]
func (h *MaterialHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateMaterialRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	s := h.sessions.Get(GetUserID(c))
	id, err := s.Ledger.Add(c.UserContext(), entity.Material{
		Name:     in.Name,
		Quantity: in.Quantity,
		Unit:     in.Unit,
		Category: in.Category,
	})
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

// Update godoc
// @Summary      Actualizar cantidad y unidad de un material
// @Tags         materials
// @Accept       json
// @Param        id    path  string  true  "ID del material"
// @Param        body  body  dto.UpdateMaterialRequest  true  "quantity, unit"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/materials/{id} [put]
func (h *MaterialHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateMaterialRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	s := h.sessions.Get(GetUserID(c))
	if err := s.Ledger.Update(c.UserContext(), c.Params("id"), in.Quantity, in.Unit); err != nil {
		return mapDomainError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Increase godoc
// @Summary      Incrementar stock de un material
// @Tags         materials
// @Accept       json
// @Param        id    path  string  true  "ID del material"
// @Param        body  body  dto.AdjustQuantityRequest  true  "amount"
// @Success      204
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/materials/{id}/increase [post]
func (h *MaterialHandler) Increase(c *fiber.Ctx) error {
	var in dto.AdjustQuantityRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	s := h.sessions.Get(GetUserID(c))
	if err := s.Ledger.Increase(c.UserContext(), c.Params("id"), in.Amount); err != nil {
		return mapDomainError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Decrease godoc
// @Summary      Decrementar stock de un material
// @Description  Si el stock es menor que el importe, la operación no hace nada
// @Description  y responde 204 igualmente: el stock nunca baja de cero.
// @Tags         materials
// @Accept       json
// @Param        id    path  string  true  "ID del material"
// @Param        body  body  dto.AdjustQuantityRequest  true  "amount"
// @Success      204
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/materials/{id}/decrease [post]
func (h *MaterialHandler) Decrease(c *fiber.Ctx) error {
	var in dto.AdjustQuantityRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	s := h.sessions.Get(GetUserID(c))
	if err := s.Ledger.Decrease(c.UserContext(), c.Params("id"), in.Amount); err != nil {
		return mapDomainError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Delete godoc
// @Summary      Eliminar un material del almacén
// @Tags         materials
// @Param        id  path  string  true  "ID del material"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/materials/{id} [delete]
func (h *MaterialHandler) Delete(c *fiber.Ctx) error {
	s := h.sessions.Get(GetUserID(c))
	if err := s.Ledger.Delete(c.UserContext(), c.Params("id")); err != nil {
		return mapDomainError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// mapDomainError traduce errores de dominio a respuestas HTTP.
func mapDomainError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: err.Error()})
	case errors.Is(err, domain.ErrInsufficientStock):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: err.Error()})
	case errors.Is(err, domain.ErrProductEmpty):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "PRODUCT_EMPTY", Message: err.Error()})
	case errors.Is(err, domain.ErrRepeatCountZero):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "REPEAT_COUNT_ZERO", Message: err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
