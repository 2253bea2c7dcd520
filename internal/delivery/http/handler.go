package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/receiptwise/backend/internal/domain"
	"github.com/receiptwise/backend/internal/usecase"
)

// maxUploadBytes caps receipt image uploads at 10 MB.
const maxUploadBytes = 10 << 20

// Handler holds dependencies for HTTP handlers
type Handler struct {
	receipts *usecase.ReceiptService
	parser   *usecase.ParseService
}

// NewHandler creates a new HTTP handler
func NewHandler(receipts *usecase.ReceiptService, parser *usecase.ParseService) *Handler {
	return &Handler{receipts: receipts, parser: parser}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "receiptwise-backend",
		"version": "1.0.0",
	})
}

// UploadReceipt accepts a multipart image upload and creates a new,
// not-yet-parsed receipt.
func (h *Handler) UploadReceipt(c *gin.Context) {
	userID := c.GetString(ContextUserID)

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	if file.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds the 10MB limit"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read uploaded image"})
		return
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	receipt, err := h.receipts.UploadReceipt(c.Request.Context(), userID, file.Filename, contentType, src, file.Size)
	if err != nil {
		status, body := errorResponse(err)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"receipt": receipt})
}

// GetReceipt returns one of the user's receipts.
func (h *Handler) GetReceipt(c *gin.Context) {
	userID := c.GetString(ContextUserID)

	receipt, err := h.receipts.GetReceipt(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		status, body := errorResponse(err)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, gin.H{"receipt": receipt})
}

// ParseReceipt runs the parse pipeline for a receipt's stored image and
// replaces its line items with the result. A truncated-but-salvaged result
// still succeeds, with a warning the client is expected to surface.
func (h *Handler) ParseReceipt(c *gin.Context) {
	userID := c.GetString(ContextUserID)

	result, err := h.parser.ParseReceipt(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		status, body := errorResponse(err)
		c.JSON(status, body)
		return
	}

	response := gin.H{
		"success":       true,
		"data":          result.Receipt,
		"itemCount":     result.ItemCount,
		"enhancedCount": result.EnhancedCount,
	}
	if result.Truncated {
		response["warning"] = "The receipt was long and the result may be incomplete. Please review the items."
	}

	c.JSON(http.StatusOK, response)
}

// DeleteReceipt removes a receipt, its items and its stored image.
func (h *Handler) DeleteReceipt(c *gin.Context) {
	userID := c.GetString(ContextUserID)

	if err := h.receipts.DeleteReceipt(c.Request.Context(), c.Param("id"), userID); err != nil {
		status, body := errorResponse(err)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Receipt and associated items deleted successfully",
	})
}

// errorResponse maps domain errors onto HTTP statuses and user-facing
// messages. Truncation failures carry different guidance than generic
// failures because the user's next step differs.
func errorResponse(err error) (int, gin.H) {
	switch {
	case errors.Is(err, domain.ErrReceiptNotFound):
		return http.StatusNotFound, gin.H{"error": "Receipt not found"}
	case errors.Is(err, domain.ErrReceiptHasNoImage):
		return http.StatusBadRequest, gin.H{"error": "Receipt has no image"}
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, gin.H{"error": "Invalid request"}
	case errors.Is(err, domain.ErrTruncatedUnparsable):
		return http.StatusUnprocessableEntity, gin.H{
			"error": "The receipt appears too long and the result was cut off. Try a clearer photo or a shorter receipt.",
		}
	case errors.Is(err, domain.ErrNoItemsExtracted):
		return http.StatusUnprocessableEntity, gin.H{
			"error": "No items could be extracted. The image may be unclear.",
		}
	case errors.Is(err, domain.ErrEmptyResponse),
		errors.Is(err, domain.ErrMalformedResponse),
		errors.Is(err, domain.ErrInvalidStructure),
		errors.Is(err, domain.ErrVisionAPIFailure):
		return http.StatusBadGateway, gin.H{"error": err.Error()}
	default:
		return http.StatusInternalServerError, gin.H{"error": "Internal server error"}
	}
}
