package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"

	"invoicehub/internal/dto"
	"invoicehub/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// InvoiceService is the service surface the invoice handlers call.
type InvoiceService interface {
	Upload(ctx context.Context, filename, contentType string, file io.Reader) (*dto.UploadResponse, error)
	List(ctx context.Context) ([]dto.InvoiceStatusResponse, error)
	Statuses(ctx context.Context) ([]dto.InvoiceStatusUpdate, error)
	View(ctx context.Context, filename string) (io.ReadCloser, string, error)
	ViewURL(ctx context.Context, filename string) (*dto.FileViewURL, error)
	ListProcessed(ctx context.Context) ([]dto.ProcessedInvoiceContent, error)
	GetProcessed(ctx context.Context, filename string) (*dto.ProcessedInvoiceContent, error)
	Delete(ctx context.Context, filename string) (*dto.DeleteResponse, error)
}

type InvoiceHandler struct {
	invoiceService InvoiceService
	logger         *zap.Logger
}

func NewInvoiceHandler(invoiceService InvoiceService, logger *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		logger:         logger,
	}
}

// Upload godoc
// @Summary Upload an invoice
// @Description Upload a single invoice file, saving it to the source bucket and creating a status record
// @Tags invoices
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Invoice file"
// @Security Bearer
// @Success 201 {object} dto.UploadResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/invoices/upload [post]
func (h *InvoiceHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "File is required",
		})
	}
	if file.Filename == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Filename is required",
		})
	}

	src, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to open file",
		})
	}
	defer src.Close()

	resp, err := h.invoiceService.Upload(c.Context(), file.Filename, file.Header.Get("Content-Type"), src)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateInvoice) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": fmt.Sprintf("File '%s' already exists", file.Filename),
			})
		}
		h.logger.Error("Failed to upload invoice", zap.String("filename", file.Filename), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to upload invoice",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

// List godoc
// @Summary List invoices
// @Description List all invoices and their current status, newest first
// @Tags invoices
// @Produce json
// @Security Bearer
// @Success 200 {array} dto.InvoiceStatusResponse
// @Failure 500 {object} map[string]string
// @Router /api/v1/invoices [get]
func (h *InvoiceHandler) List(c *fiber.Ctx) error {
	invoices, err := h.invoiceService.List(c.Context())
	if err != nil {
		h.logger.Error("Failed to list invoices", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list invoices",
		})
	}

	return c.JSON(invoices)
}

// Statuses godoc
// @Summary List invoice statuses
// @Description Lightweight list of invoices with their current status, for polling clients
// @Tags invoices
// @Produce json
// @Security Bearer
// @Success 200 {array} dto.InvoiceStatusUpdate
// @Failure 500 {object} map[string]string
// @Router /api/v1/invoices/statuses [get]
func (h *InvoiceHandler) Statuses(c *fiber.Ctx) error {
	statuses, err := h.invoiceService.Statuses(c.Context())
	if err != nil {
		h.logger.Error("Failed to fetch statuses", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch statuses",
		})
	}

	return c.JSON(statuses)
}

// View godoc
// @Summary View a raw invoice
// @Description Stream the raw invoice file inline from the source bucket
// @Tags invoices
// @Produce octet-stream
// @Param filename path string true "Invoice filename"
// @Security Bearer
// @Success 200 {file} binary
// @Failure 404 {object} map[string]string
// @Router /api/v1/invoices/view/{filename} [get]
func (h *InvoiceHandler) View(c *fiber.Ctx) error {
	filename := c.Params("filename")

	reader, contentType, err := h.invoiceService.View(c.Context(), filename)
	if err != nil {
		if errors.Is(err, service.ErrInvoiceNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": fmt.Sprintf("Invoice file '%s' not found", filename),
			})
		}
		h.logger.Error("Failed to stream invoice", zap.String("filename", filename), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to stream invoice",
		})
	}

	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", filename))
	return c.SendStream(reader)
}

// ViewURL godoc
// @Summary Get a signed view URL
// @Description Issue a short-lived signed URL for downloading the raw invoice directly from the bucket
// @Tags invoices
// @Produce json
// @Param filename path string true "Invoice filename"
// @Security Bearer
// @Success 200 {object} dto.FileViewURL
// @Failure 404 {object} map[string]string
// @Router /api/v1/invoices/view-url/{filename} [get]
func (h *InvoiceHandler) ViewURL(c *fiber.Ctx) error {
	filename := c.Params("filename")

	resp, err := h.invoiceService.ViewURL(c.Context(), filename)
	if err != nil {
		if errors.Is(err, service.ErrInvoiceNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": fmt.Sprintf("Invoice file '%s' not found", filename),
			})
		}
		h.logger.Error("Failed to sign view URL", zap.String("filename", filename), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to sign view URL",
		})
	}

	return c.JSON(resp)
}

// ListProcessed godoc
// @Summary List processed invoices
// @Description List the parsed JSON contents the extraction pipeline wrote into the target bucket
// @Tags invoices
// @Produce json
// @Security Bearer
// @Success 200 {array} dto.ProcessedInvoiceContent
// @Failure 500 {object} map[string]string
// @Router /api/v1/processed-invoices [get]
func (h *InvoiceHandler) ListProcessed(c *fiber.Ctx) error {
	processed, err := h.invoiceService.ListProcessed(c.Context())
	if err != nil {
		h.logger.Error("Failed to list processed invoices", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list processed invoices",
		})
	}

	return c.JSON(processed)
}

// GetProcessed godoc
// @Summary Get a processed invoice
// @Description Get the parsed content of a single processed invoice by its source filename
// @Tags invoices
// @Produce json
// @Param filename path string true "Invoice filename"
// @Security Bearer
// @Success 200 {object} dto.ProcessedInvoiceContent
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/processed-invoices/{filename} [get]
func (h *InvoiceHandler) GetProcessed(c *fiber.Ctx) error {
	filename := c.Params("filename")

	resp, err := h.invoiceService.GetProcessed(c.Context(), filename)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvoiceProcessing):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Invoice is under processing",
			})
		case errors.Is(err, service.ErrInvoiceNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": fmt.Sprintf("Invoice '%s' not found", filename),
			})
		case errors.Is(err, service.ErrCorruptResult):
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": fmt.Sprintf("Failed to parse content of invoice '%s'", filename),
			})
		}
		h.logger.Error("Failed to get processed invoice", zap.String("filename", filename), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get processed invoice",
		})
	}

	return c.JSON(resp)
}

// Delete godoc
// @Summary Delete an invoice
// @Description Delete the source blob, the processed JSON and the metadata record for an invoice
// @Tags invoices
// @Produce json
// @Param filename path string true "Invoice filename"
// @Security Bearer
// @Success 200 {object} dto.DeleteResponse
// @Failure 404 {object} map[string]string
// @Router /api/v1/invoices/{filename} [delete]
func (h *InvoiceHandler) Delete(c *fiber.Ctx) error {
	filename := c.Params("filename")

	resp, err := h.invoiceService.Delete(c.Context(), filename)
	if err != nil {
		if errors.Is(err, service.ErrInvoiceNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": fmt.Sprintf("File '%s' not found in storage or metadata", filename),
			})
		}
		h.logger.Error("Failed to delete invoice", zap.String("filename", filename), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete invoice",
		})
	}

	return c.JSON(resp)
}
