package proteins

import (
	"errors"

	"protein-updater/core/logger"
	"protein-updater/core/reconcile"
	"protein-updater/core/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for local records and reconciliation.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the proteins routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Get("/proteins", h.HandleFind)
	app.Get("/proteins/:id", h.HandleGet)
	app.Post("/reconcile/:accession", h.HandleReconcile)
}

// HandleGet returns one local record with its links.
func (h *Handler) HandleGet(c *fiber.Ctx) error {
	id, err := utils.ToPositiveInt(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	rec, err := h.service.Get(c.Context(), reconcile.RecordID(id))
	if errors.Is(err, reconcile.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Record lookup failed", zap.Int64("id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(rec)
}

// HandleFind lists the records claiming the accession given as query parameter.
func (h *Handler) HandleFind(c *fiber.Ctx) error {
	accession := c.Query("accession")
	if accession == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "accession query parameter is required"})
	}

	records, err := h.service.FindByAccession(c.Context(), accession)
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Record search failed", zap.String("accession", accession), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if records == nil {
		records = []*reconcile.LocalRecord{}
	}
	return c.JSON(fiber.Map{"accession": accession, "records": records})
}

// HandleReconcile runs a pass for one accession. With dry_run=true nothing is kept.
func (h *Handler) HandleReconcile(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	accession := c.Params("accession")
	dryRun := utils.ToBool(c.Query("dry_run"))

	l.Info("Triggering reconciliation", zap.String("accession", accession), zap.Bool("dry_run", dryRun))
	res, err := h.service.Reconcile(c.Context(), accession, dryRun)
	if err != nil {
		l.Error("Reconciliation failed", zap.String("accession", accession), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(res)
}
