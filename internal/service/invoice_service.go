package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"invoicehub/internal/dto"
	"invoicehub/internal/models"
	"invoicehub/internal/storage"
	"invoicehub/pkg/config"

	"go.uber.org/zap"
)

// BlobStore is the slice of the GCS wrapper the invoice service needs.
type BlobStore interface {
	Exists(ctx context.Context, bucket, object string) (bool, error)
	Upload(ctx context.Context, bucket, object, contentType string, r io.Reader) (int64, error)
	Download(ctx context.Context, bucket, object string) (io.ReadCloser, string, error)
	DownloadBytes(ctx context.Context, bucket, object string) ([]byte, error)
	DeleteIfExists(ctx context.Context, bucket, object string) (bool, error)
	ListObjects(ctx context.Context, bucket, suffix string) ([]string, error)
	SignedURL(bucket, object string, ttl time.Duration) (string, time.Time, error)
}

// MetadataStore is the slice of the Firestore store the invoice service needs.
type MetadataStore interface {
	Create(ctx context.Context, inv *models.Invoice) error
	Get(ctx context.Context, filename string) (*models.Invoice, error)
	Delete(ctx context.Context, filename string) (bool, error)
	List(ctx context.Context) ([]*models.Invoice, error)
	ListStatuses(ctx context.Context) ([]*models.Invoice, error)
}

type InvoiceService struct {
	blobs  BlobStore
	meta   MetadataStore
	cfg    *config.GCSConfig
	logger *zap.Logger
}

func NewInvoiceService(blobs BlobStore, meta MetadataStore, cfg *config.GCSConfig, logger *zap.Logger) *InvoiceService {
	return &InvoiceService{
		blobs:  blobs,
		meta:   meta,
		cfg:    cfg,
		logger: logger,
	}
}

// Upload stores the raw file in the source bucket and creates the status
// record. The blob write is rolled back when the metadata write fails so
// the two stores never disagree about which invoices exist.
func (s *InvoiceService) Upload(ctx context.Context, filename, contentType string, file io.Reader) (*dto.UploadResponse, error) {
	exists, err := s.blobs.Exists(ctx, s.cfg.SourceBucket, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing upload: %w", err)
	}
	if exists {
		return nil, ErrDuplicateInvoice
	}

	size, err := s.blobs.Upload(ctx, s.cfg.SourceBucket, filename, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload invoice: %w", err)
	}

	gcsURI := fmt.Sprintf("gs://%s/%s", s.cfg.SourceBucket, filename)
	now := time.Now().UTC()
	inv := &models.Invoice{
		Filename:     filename,
		Status:       models.InvoiceStatusUploaded,
		CreatedAt:    now,
		LastModified: now,
		GCSSourceURI: gcsURI,
	}

	if err := s.meta.Create(ctx, inv); err != nil {
		// Roll back the blob so a retry is not rejected as a duplicate.
		if _, delErr := s.blobs.DeleteIfExists(ctx, s.cfg.SourceBucket, filename); delErr != nil {
			s.logger.Error("Failed to roll back orphaned upload",
				zap.String("filename", filename),
				zap.Error(delErr),
			)
		}
		return nil, fmt.Errorf("failed to create invoice record: %w", err)
	}

	s.logger.Info("Invoice uploaded",
		zap.String("filename", filename),
		zap.Int64("size", size),
	)

	return &dto.UploadResponse{
		Status:   "success",
		GCSURI:   gcsURI,
		Filename: filename,
	}, nil
}

// List returns all invoices with their status, newest first.
func (s *InvoiceService) List(ctx context.Context) ([]dto.InvoiceStatusResponse, error) {
	invoices, err := s.meta.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}

	responses := make([]dto.InvoiceStatusResponse, len(invoices))
	for i, inv := range invoices {
		responses[i] = dto.InvoiceStatusResponse{
			Filename:     inv.Filename,
			Status:       string(inv.Status),
			LastModified: inv.LastModified,
		}
	}
	return responses, nil
}

// Statuses returns the lightweight polling view.
func (s *InvoiceService) Statuses(ctx context.Context) ([]dto.InvoiceStatusUpdate, error) {
	invoices, err := s.meta.ListStatuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch statuses: %w", err)
	}

	statuses := make([]dto.InvoiceStatusUpdate, len(invoices))
	for i, inv := range invoices {
		statuses[i] = dto.InvoiceStatusUpdate{
			Filename: inv.Filename,
			Status:   string(inv.Status),
		}
	}
	return statuses, nil
}

// View opens the raw invoice blob for streaming to the client.
func (s *InvoiceService) View(ctx context.Context, filename string) (io.ReadCloser, string, error) {
	r, contentType, err := s.blobs.Download(ctx, s.cfg.SourceBucket, filename)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", ErrInvoiceNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to open invoice %q: %w", filename, err)
	}

	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(filename))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return r, contentType, nil
}

// ViewURL issues a short-lived signed URL for the raw invoice blob.
func (s *InvoiceService) ViewURL(ctx context.Context, filename string) (*dto.FileViewURL, error) {
	exists, err := s.blobs.Exists(ctx, s.cfg.SourceBucket, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to check invoice %q: %w", filename, err)
	}
	if !exists {
		return nil, ErrInvoiceNotFound
	}

	url, expiresAt, err := s.blobs.SignedURL(s.cfg.SourceBucket, filename, s.cfg.SignedURLTTL)
	if err != nil {
		return nil, err
	}

	return &dto.FileViewURL{
		Filename:  filename,
		URL:       url,
		ExpiresAt: expiresAt,
	}, nil
}

// ListProcessed downloads every JSON result from the target bucket.
// Objects that cannot be read or decoded are skipped with a warning; the
// extraction pipeline may still be writing them.
func (s *InvoiceService) ListProcessed(ctx context.Context) ([]dto.ProcessedInvoiceContent, error) {
	names, err := s.blobs.ListObjects(ctx, s.cfg.TargetBucket, ".json")
	if err != nil {
		return nil, fmt.Errorf("failed to list processed invoices: %w", err)
	}

	processed := make([]dto.ProcessedInvoiceContent, 0, len(names))
	for _, name := range names {
		data, err := s.blobs.DownloadBytes(ctx, s.cfg.TargetBucket, name)
		if err != nil {
			s.logger.Warn("Skipping unreadable processed invoice",
				zap.String("object", name),
				zap.Error(err),
			)
			continue
		}

		var content map[string]interface{}
		if err := json.Unmarshal(data, &content); err != nil {
			s.logger.Warn("Skipping undecodable processed invoice",
				zap.String("object", name),
				zap.Error(err),
			)
			continue
		}

		processed = append(processed, dto.ProcessedInvoiceContent{
			Filename: name,
			Content:  content,
		})
	}

	return processed, nil
}

// GetProcessed fetches a single extraction result. A missing result for a
// known invoice means the pipeline has not finished yet.
func (s *InvoiceService) GetProcessed(ctx context.Context, filename string) (*dto.ProcessedInvoiceContent, error) {
	object := jsonObjectName(filename)

	data, err := s.blobs.DownloadBytes(ctx, s.cfg.TargetBucket, object)
	if errors.Is(err, storage.ErrNotFound) {
		if _, metaErr := s.meta.Get(ctx, filename); metaErr == nil {
			return nil, ErrInvoiceProcessing
		}
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch processed invoice %q: %w", object, err)
	}

	var content map[string]interface{}
	if err := json.Unmarshal(data, &content); err != nil {
		s.logger.Error("Processed invoice content is not valid JSON",
			zap.String("object", object),
			zap.Error(err),
		)
		return nil, ErrCorruptResult
	}

	return &dto.ProcessedInvoiceContent{
		Filename: object,
		Content:  content,
	}, nil
}

// Delete removes the source blob, the processed JSON and the metadata
// record, reporting which of the three actually existed.
func (s *InvoiceService) Delete(ctx context.Context, filename string) (*dto.DeleteResponse, error) {
	cleanedSource, err := s.blobs.DeleteIfExists(ctx, s.cfg.SourceBucket, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to delete source blob: %w", err)
	}

	cleanedTarget, err := s.blobs.DeleteIfExists(ctx, s.cfg.TargetBucket, jsonObjectName(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to delete processed blob: %w", err)
	}

	cleanedMeta, err := s.meta.Delete(ctx, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to delete invoice record: %w", err)
	}

	if !cleanedSource && !cleanedTarget && !cleanedMeta {
		return nil, ErrInvoiceNotFound
	}

	s.logger.Info("Invoice deleted",
		zap.String("filename", filename),
		zap.Bool("source", cleanedSource),
		zap.Bool("target", cleanedTarget),
		zap.Bool("metadata", cleanedMeta),
	)

	return &dto.DeleteResponse{
		Status:          "deleted",
		Filename:        filename,
		CleanedSource:   cleanedSource,
		CleanedTarget:   cleanedTarget,
		CleanedMetadata: cleanedMeta,
	}, nil
}

// jsonObjectName maps a source filename to its extraction result object:
// the extension is replaced with .json, so both "INV-001.pdf" and
// "INV-001" resolve to "INV-001.json".
func jsonObjectName(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename)) + ".json"
}
