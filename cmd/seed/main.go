// Command seed loads sample invoice metadata into Firestore so the chat
// tools have data to query during development. It reads a JSON array of
// invoice records (see cmd/seed/invoices.example.json) and upserts each
// record, filling in the promoted lowercase fields.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"invoicehub/internal/models"
	"invoicehub/internal/storage"
	"invoicehub/pkg/config"
	"invoicehub/pkg/logger"

	"go.uber.org/zap"
)

type seedInvoice struct {
	Filename      string  `json:"filename"`
	Status        string  `json:"status"`
	VendorName    string  `json:"vendor_name"`
	InvoiceNumber string  `json:"invoice_number"`
	TotalAmount   float64 `json:"total_amount"`
	Currency      string  `json:"currency"`
	InvoiceDate   string  `json:"invoice_date"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	seedFile := filepath.Join("cmd", "seed", "invoices.json")
	if len(os.Args) > 1 {
		seedFile = os.Args[1]
	}

	data, err := os.ReadFile(seedFile)
	if err != nil {
		appLogger.Fatal("Failed to read seed file", zap.String("file", seedFile), zap.Error(err))
	}

	var seeds []seedInvoice
	if err := json.Unmarshal(data, &seeds); err != nil {
		appLogger.Fatal("Failed to parse seed file", zap.String("file", seedFile), zap.Error(err))
	}

	ctx := context.Background()
	store, err := storage.NewInvoiceStore(ctx, &cfg.Firestore, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create invoice store", zap.Error(err))
	}
	defer store.Close()

	appLogger.Info("Seeding invoice metadata", zap.Int("count", len(seeds)))

	now := time.Now().UTC()
	for _, seed := range seeds {
		status := models.InvoiceStatus(strings.ToUpper(seed.Status))
		if !models.ValidInvoiceStatus(string(status)) {
			appLogger.Warn("Skipping invoice with unknown status",
				zap.String("filename", seed.Filename),
				zap.String("status", seed.Status),
			)
			continue
		}

		inv := &models.Invoice{
			Filename:           seed.Filename,
			Status:             status,
			CreatedAt:          now,
			LastModified:       now,
			GCSSourceURI:       "gs://" + cfg.GCS.SourceBucket + "/" + seed.Filename,
			VendorName:         seed.VendorName,
			VendorNameLower:    strings.ToLower(seed.VendorName),
			InvoiceNumber:      seed.InvoiceNumber,
			InvoiceNumberLower: strings.ToLower(seed.InvoiceNumber),
			TotalAmount:        seed.TotalAmount,
			Currency:           seed.Currency,
		}

		if seed.InvoiceDate != "" {
			if date, err := time.Parse("2006-01-02", seed.InvoiceDate); err == nil {
				inv.InvoiceDate = date
			} else {
				appLogger.Warn("Ignoring unparseable invoice date",
					zap.String("filename", seed.Filename),
					zap.String("invoice_date", seed.InvoiceDate),
				)
			}
		}

		if err := store.Create(ctx, inv); err != nil {
			appLogger.Fatal("Failed to seed invoice", zap.String("filename", seed.Filename), zap.Error(err))
		}
		appLogger.Info("Seeded invoice", zap.String("filename", seed.Filename))
	}

	appLogger.Info("Seeding completed")
}
