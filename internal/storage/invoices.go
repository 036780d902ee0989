package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	firestorepb "cloud.google.com/go/firestore/apiv1/firestorepb"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"invoicehub/internal/models"
	"invoicehub/pkg/config"
)

// ErrNotFound is returned when a blob or metadata record does not exist.
var ErrNotFound = errors.New("not found")

// InvoiceStore keeps invoice metadata in a Firestore collection keyed by
// filename.
type InvoiceStore struct {
	client     *firestore.Client
	collection string
	logger     *zap.Logger
}

func NewInvoiceStore(ctx context.Context, cfg *config.FirestoreConfig, logger *zap.Logger) (*InvoiceStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return &InvoiceStore{
		client:     client,
		collection: cfg.Collection,
		logger:     logger,
	}, nil
}

func (s *InvoiceStore) col() *firestore.CollectionRef {
	return s.client.Collection(s.collection)
}

func (s *InvoiceStore) Create(ctx context.Context, inv *models.Invoice) error {
	if _, err := s.col().Doc(inv.Filename).Set(ctx, inv); err != nil {
		return fmt.Errorf("failed to create invoice record %q: %w", inv.Filename, err)
	}
	return nil
}

func (s *InvoiceStore) Get(ctx context.Context, filename string) (*models.Invoice, error) {
	snap, err := s.col().Doc(filename).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice record %q: %w", filename, err)
	}

	var inv models.Invoice
	if err := snap.DataTo(&inv); err != nil {
		return nil, fmt.Errorf("failed to decode invoice record %q: %w", filename, err)
	}
	return &inv, nil
}

// Delete removes a record, reporting whether it was present.
func (s *InvoiceStore) Delete(ctx context.Context, filename string) (bool, error) {
	doc := s.col().Doc(filename)

	_, err := doc.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check invoice record %q: %w", filename, err)
	}

	if _, err := doc.Delete(ctx); err != nil {
		return false, fmt.Errorf("failed to delete invoice record %q: %w", filename, err)
	}
	return true, nil
}

// List returns all invoice records, newest first by last_modified.
func (s *InvoiceStore) List(ctx context.Context) ([]*models.Invoice, error) {
	invoices, err := s.collect(ctx, s.col().Query)
	if err != nil {
		return nil, err
	}

	sort.Slice(invoices, func(i, j int) bool {
		return invoices[i].LastModified.After(invoices[j].LastModified)
	})
	return invoices, nil
}

// ListStatuses returns only the filename and status fields, for cheap
// polling from the UI.
func (s *InvoiceStore) ListStatuses(ctx context.Context) ([]*models.Invoice, error) {
	return s.collect(ctx, s.col().Select("filename", "status"))
}

func (s *InvoiceStore) ByStatus(ctx context.Context, st models.InvoiceStatus) ([]*models.Invoice, error) {
	return s.collect(ctx, s.col().Where("status", "==", string(st)))
}

// ByVendor queries the promoted lowercase vendor field; vendor must
// already be lowercased by the caller.
func (s *InvoiceStore) ByVendor(ctx context.Context, vendor string) ([]*models.Invoice, error) {
	return s.collect(ctx, s.col().Where("vendor_name_lowercase", "==", vendor))
}

// ByNumber looks up a single invoice by its promoted lowercase number.
// Returns nil without error when no invoice matches.
func (s *InvoiceStore) ByNumber(ctx context.Context, number string) (*models.Invoice, error) {
	invoices, err := s.collect(ctx, s.col().Where("invoice_number_lowercase", "==", number).Limit(1))
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, nil
	}
	return invoices[0], nil
}

func (s *InvoiceStore) ByDateRange(ctx context.Context, start, end time.Time) ([]*models.Invoice, error) {
	q := s.col().Where("invoice_date", ">=", start).Where("invoice_date", "<=", end)
	return s.collect(ctx, q)
}

func (s *InvoiceStore) AboveAmount(ctx context.Context, min float64) ([]*models.Invoice, error) {
	return s.collect(ctx, s.col().Where("total_amount_num", ">=", min))
}

func (s *InvoiceStore) Recent(ctx context.Context, limit int) ([]*models.Invoice, error) {
	q := s.col().OrderBy("created_at", firestore.Desc).Limit(limit)
	return s.collect(ctx, q)
}

func (s *InvoiceStore) CountByStatus(ctx context.Context, st models.InvoiceStatus) (int64, error) {
	return s.count(ctx, s.col().Where("status", "==", string(st)))
}

func (s *InvoiceStore) CountAll(ctx context.Context) (int64, error) {
	return s.count(ctx, s.col().Query)
}

// count runs a server-side aggregation so documents are never fetched.
func (s *InvoiceStore) count(ctx context.Context, q firestore.Query) (int64, error) {
	result, err := q.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to run count aggregation: %w", err)
	}

	value, ok := result["all"]
	if !ok {
		return 0, fmt.Errorf("count aggregation returned no value")
	}

	count, ok := value.(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("unexpected count aggregation type %T", value)
	}
	return count.GetIntegerValue(), nil
}

func (s *InvoiceStore) collect(ctx context.Context, q firestore.Query) ([]*models.Invoice, error) {
	it := q.Documents(ctx)
	defer it.Stop()

	var invoices []*models.Invoice
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate invoices: %w", err)
		}

		var inv models.Invoice
		if err := snap.DataTo(&inv); err != nil {
			s.logger.Warn("Skipping undecodable invoice record",
				zap.String("doc", snap.Ref.ID),
				zap.Error(err),
			)
			continue
		}
		invoices = append(invoices, &inv)
	}

	return invoices, nil
}

func (s *InvoiceStore) Close() error {
	return s.client.Close()
}
