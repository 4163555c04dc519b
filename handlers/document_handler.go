package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"policyassist-backend/ingest"
	"policyassist-backend/models"
	"policyassist-backend/repository"
	"policyassist-backend/storage"
)

// DocumentCatalog tracks policy documents held in storage
type DocumentCatalog interface {
	Upsert(ctx context.Context, doc *models.PolicyDocument) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PolicyDocument, error)
	List(ctx context.Context) ([]*models.PolicyDocument, error)
}

// DocumentIngester resolves the tags of a stored document and indexes it
type DocumentIngester interface {
	ResolveMetadata(ctx context.Context, key string) (ingest.Metadata, error)
	IngestOne(ctx context.Context, key string) models.IngestStep
}

// DocumentHandler handles policy document upload and download
type DocumentHandler struct {
	catalog     DocumentCatalog
	storage     storage.Storage
	ingester    DocumentIngester // nil disables indexing on upload
	maxFileSize int64
}

func NewDocumentHandler(catalog DocumentCatalog, store storage.Storage, ingester DocumentIngester) *DocumentHandler {
	return &DocumentHandler{
		catalog:     catalog,
		storage:     store,
		ingester:    ingester,
		maxFileSize: 10 * 1024 * 1024, // 10MB
	}
}

// Upload handles POST /api/documents (multipart "file"). The stored key is
// the sanitized filename, so re-uploading a file replaces it.
func (h *DocumentHandler) Upload(c *gin.Context) {
	ctx := c.Request.Context()

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("MISSING_FILE", "File is required"))
		return
	}
	if fileHeader.Size > h.maxFileSize {
		c.JSON(http.StatusBadRequest, errorBody("FILE_TOO_LARGE",
			fmt.Sprintf("File size exceeds maximum of %d bytes", h.maxFileSize)))
		return
	}

	key, err := storage.KeyFor(fileHeader.Filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_FILENAME", err.Error()))
		return
	}
	if !ingest.Supported(key) {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_FILE_TYPE", "File type not allowed. Allowed types: TXT, MD, CSV"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("FILE_OPEN_ERROR", err.Error()))
		return
	}
	defer file.Close()

	if err := h.storage.Put(ctx, key, file); err != nil {
		slog.ErrorContext(ctx, "failed to store document", "document", key, "error", err)
		c.JSON(http.StatusInternalServerError, errorBody("UPLOAD_FAILED", "Failed to store file"))
		return
	}

	// tags come from the manifest the index uses, so a re-upload cannot
	// widen an hr_only document
	meta := ingest.InferMetadata(key, nil)
	if h.ingester != nil {
		meta, err = h.ingester.ResolveMetadata(ctx, key)
		if err != nil {
			slog.ErrorContext(ctx, "failed to resolve document metadata", "document", key, "error", err)
			c.JSON(http.StatusInternalServerError, errorBody("METADATA_ERROR", "Failed to read document metadata"))
			return
		}
	}
	doc := &models.PolicyDocument{
		StorageKey: key,
		Filename:   path.Base(fileHeader.Filename),
		PolicyName: meta.PolicyName,
		Department: meta.Department,
		Country:    meta.Country,
		Visibility: firstSet(meta.Visibility, models.VisibilityAll),
		MimeType:   storage.ContentType(key),
		Size:       fileHeader.Size,
		UploadedBy: requesterFrom(c).Username,
	}
	if err := h.catalog.Upsert(ctx, doc); err != nil {
		slog.ErrorContext(ctx, "failed to record document", "document", key, "error", err)
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to save document record"))
		return
	}

	data := gin.H{
		"id":         doc.ID,
		"filename":   doc.Filename,
		"key":        doc.StorageKey,
		"department": doc.Department,
		"country":    doc.Country,
		"visibility": doc.Visibility,
		"size":       doc.Size,
		"status":     "Uploaded successfully",
	}
	if h.ingester != nil {
		data["ingest"] = h.ingester.IngestOne(ctx, key)
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    data,
	})
}

// List handles GET /api/documents
func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.catalog.List(c.Request.Context())
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to list documents", "error", err)
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to list documents"))
		return
	}
	if !requesterFrom(c).IsHR() {
		visible := docs[:0]
		for _, d := range docs {
			if !models.HROnly(d.Visibility) {
				visible = append(visible, d)
			}
		}
		docs = visible
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    docs,
	})
}

// Download handles GET /api/documents/:id. HR-only documents are hidden
// from other roles.
func (h *DocumentHandler) Download(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_ID", "Invalid document ID format"))
		return
	}

	doc, err := h.catalog.GetByID(c.Request.Context(), id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		slog.ErrorContext(c.Request.Context(), "failed to load document", "error", err)
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to load document"))
		return
	}
	if doc == nil || (models.HROnly(doc.Visibility) && !requesterFrom(c).IsHR()) {
		c.JSON(http.StatusNotFound, errorBody("NOT_FOUND", "Document not found"))
		return
	}

	reader, err := h.storage.Open(c.Request.Context(), doc.StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorBody("NOT_FOUND", "Document content missing"))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("DOWNLOAD_FAILED", fmt.Sprintf("Failed to download file: %v", err)))
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, doc.Size, doc.MimeType, reader, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", doc.Filename),
	})
}

// Health handles GET /health
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
