package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/taller-api/internal/application/dto"
	"github.com/tu-usuario/taller-api/internal/application/session"
)

// SettingsHandler expone los vocabularios de unidades y categorías.
type SettingsHandler struct {
	sessions *session.Manager
}

// NewSettingsHandler construye el handler de ajustes.
func NewSettingsHandler(sessions *session.Manager) *SettingsHandler {
	return &SettingsHandler{sessions: sessions}
}

// ListUnits godoc
// @Summary      Listar unidades
// @Tags         settings
// @Produce      json
// @Success      200  {object}  dto.SettingsResponse
// @Router       /api/settings/units [get]
func (h *SettingsHandler) ListUnits(c *fiber.Ctx) error {
	s := h.sessions.Get(GetUserID(c))
	return c.JSON(dto.SettingsResponse{Values: s.Settings.Units()})
}

// AddUnit godoc
// @Summary      Añadir una unidad al vocabulario
// @Description  Añadir un valor ya presente no hace nada.
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SettingValueRequest  true  "value"
// @Success      200  {object}  dto.SettingsResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/settings/units [post]
func (h *SettingsHandler) AddUnit(c *fiber.Ctx) error {
	var in dto.SettingValueRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	s := h.sessions.Get(GetUserID(c))
	if err := s.Settings.AddUnit(c.UserContext(), in.Value); err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(dto.SettingsResponse{Values: s.Settings.Units()})
}

// RemoveUnit godoc
// @Summary      Eliminar una unidad del vocabulario
// @Description  No invalida los materiales que ya la usan.
// @Tags         settings
// @Produce      json
// @Param        value  path  string  true  "unidad a eliminar"
// @Success      200  {object}  dto.SettingsResponse
// @Router       /api/settings/units/{value} [delete]
func (h *SettingsHandler) RemoveUnit(c *fiber.Ctx) error {
	s := h.sessions.Get(GetUserID(c))
	if err := s.Settings.RemoveUnit(c.UserContext(), c.Params("value")); err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(dto.SettingsResponse{Values: s.Settings.Units()})
}

// ListCategories godoc
// @Summary      Listar categorías
// @Tags         settings
// @Produce      json
// @Success      200  {object}  dto.SettingsResponse
// @Router       /api/settings/categories [get]
func (h *SettingsHandler) ListCategories(c *fiber.Ctx) error {
	s := h.sessions.Get(GetUserID(c))
	return c.JSON(dto.SettingsResponse{Values: s.Settings.Categories()})
}

// AddCategory godoc
// @Summary      Añadir una categoría al vocabulario
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SettingValueRequest  true  "value"
// @Success      200  {object}  dto.SettingsResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/settings/categories [post]
func (h *SettingsHandler) AddCategory(c *fiber.Ctx) error {
	var in dto.SettingValueRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	s := h.sessions.Get(GetUserID(c))
	if err := s.Settings.AddCategory(c.UserContext(), in.Value); err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(dto.SettingsResponse{Values: s.Settings.Categories()})
}

// RemoveCategory godoc
// @Summary      Eliminar una categoría del vocabulario
// @Tags         settings
// @Produce      json
// @Param        value  path  string  true  "categoría a eliminar"
// @Success      200  {object}  dto.SettingsResponse
// @Router       /api/settings/categories/{value} [delete]
func (h *SettingsHandler) RemoveCategory(c *fiber.Ctx) error {
	s := h.sessions.Get(GetUserID(c))
	if err := s.Settings.RemoveCategory(c.UserContext(), c.Params("value")); err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(dto.SettingsResponse{Values: s.Settings.Categories()})
}
