package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/taller-api/internal/application/dto"
	"github.com/tu-usuario/taller-api/internal/application/session"
	"github.com/tu-usuario/taller-api/internal/application/workflow"
)

// ProductHandler expone el flujo de productos del usuario autenticado.
type ProductHandler struct {
	sessions *session.Manager
}

// NewProductHandler construye el handler de productos.
func NewProductHandler(sessions *session.Manager) *ProductHandler {
	return &ProductHandler{sessions: sessions}
}

// List godoc
// @Summary      Listar productos activos
// @Tags         products
// @Produce      json
// @Success      200  {array}  entity.Product
// @Router       /api/products [get]
func (h *ProductHandler) List(c *fiber.Ctx) error {
	s := h.sessions.Get(GetUserID(c))
	return c.JSON(s.Workflow.List())
}

// Create godoc
// @Summary      Crear producto y descontar materiales
// @Description  Valida todas las líneas contra el stock actual antes de tocar
// @Description  nada: un solo fallo rechaza la creación completa y se devuelve
// @Description  la lista entera de problemas.
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateProductRequest  true  "name, materials"
// @Success      201  {object}  entity.Product
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ValidationErrorResponse
// @Router       /api/products [post]
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateProductRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	s := h.sessions.Get(GetUserID(c))

	draft := workflow.NewDraft(in.Name)
	for _, line := range in.Materials {
		if err := s.Workflow.AddMaterialToDraft(draft, line.MaterialID); err != nil {
			return mapDomainError(c, err)
		}
		if err := s.Workflow.ChangeDraftQuantity(draft, line.MaterialID, line.Quantity); err != nil {
			return mapDomainError(c, err)
		}
	}
	product, err := s.Workflow.Save(c.UserContext(), draft)
	if err != nil {
		var verr *workflow.ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(toValidationResponse(verr))
		}
		return mapDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// Repeat godoc
// @Summary      Repetir una producción
// @Tags         products
// @Param        id  path  string  true  "ID del producto"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ValidationErrorResponse
// @Router       /api/products/{id}/repeat [post]
func (h *ProductHandler) Repeat(c *fiber.Ctx) error {
	s := h.sessions.Get(GetUserID(c))
	if err := s.Workflow.Repeat(c.UserContext(), c.Params("id")); err != nil {
		var verr *workflow.ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(toValidationResponse(verr))
		}
		return mapDomainError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Cancel godoc
// @Summary      Cancelar una producción y devolver materiales
// @Description  Con una sola repetición restante el producto se elimina.
// @Tags         products
// @Param        id  path  string  true  "ID del producto"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/products/{id}/cancel [post]
func (h *ProductHandler) Cancel(c *fiber.Ctx) error {
	s := h.sessions.Get(GetUserID(c))
	if err := s.Workflow.Cancel(c.UserContext(), c.Params("id")); err != nil {
		return mapDomainError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Remove godoc
// @Summary      Eliminar un producto sin devolver materiales
// @Tags         products
// @Param        id  path  string  true  "ID del producto"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/{id} [delete]
func (h *ProductHandler) Remove(c *fiber.Ctx) error {
	s := h.sessions.Get(GetUserID(c))
	if err := s.Workflow.Remove(c.UserContext(), c.Params("id")); err != nil {
		return mapDomainError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func toValidationResponse(verr *workflow.ValidationError) dto.ValidationErrorResponse {
	out := dto.ValidationErrorResponse{Code: "STOCK_VALIDATION"}
	for _, issue := range verr.Issues {
		out.Issues = append(out.Issues, dto.ValidationIssue{
			MaterialID: issue.MaterialID,
			Message:    issue.Message(),
		})
	}
	return out
}
