package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/taller-api/internal/application/dto"
	"github.com/tu-usuario/taller-api/internal/application/reports"
	"github.com/tu-usuario/taller-api/internal/application/session"
	"github.com/tu-usuario/taller-api/internal/domain/repository"
)

// ReportHandler genera el informe de inventario en PDF.
type ReportHandler struct {
	sessions *session.Manager
	users    repository.UserRepository
	uc       *reports.ReportUseCase
}

// NewReportHandler construye el handler de informes.
func NewReportHandler(sessions *session.Manager, users repository.UserRepository, uc *reports.ReportUseCase) *ReportHandler {
	return &ReportHandler{sessions: sessions, users: users, uc: uc}
}

// Inventory godoc
// @Summary      Descargar el informe de inventario en PDF
// @Tags         reports
// @Produce      application/pdf
// @Success      200  {file}  binary
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/reports/inventory [get]
func (h *ReportHandler) Inventory(c *fiber.Ctx) error {
	userID := GetUserID(c)
	s := h.sessions.Get(userID)

	userName := userID
	if user, err := h.users.GetByID(userID); err == nil && user != nil {
		userName = user.Name
	}

	out, err := h.uc.BuildInventoryPDF(c.UserContext(), userName, s.Ledger, s.Workflow, s.Settings)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="inventario.pdf"`)
	return c.Send(out)
}
