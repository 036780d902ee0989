package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"invoicehub/internal/models"
)

type fakeQuerier struct {
	invoices []*models.Invoice
	byNumber *models.Invoice
	count    int64
	err      error

	lastStatus models.InvoiceStatus
	lastVendor string
	lastNumber string
	lastStart  time.Time
	lastEnd    time.Time
	lastMin    float64
	lastLimit  int
}

func (f *fakeQuerier) ByStatus(_ context.Context, st models.InvoiceStatus) ([]*models.Invoice, error) {
	f.lastStatus = st
	return f.invoices, f.err
}

func (f *fakeQuerier) ByVendor(_ context.Context, vendor string) ([]*models.Invoice, error) {
	f.lastVendor = vendor
	return f.invoices, f.err
}

func (f *fakeQuerier) ByNumber(_ context.Context, number string) (*models.Invoice, error) {
	f.lastNumber = number
	return f.byNumber, f.err
}

func (f *fakeQuerier) ByDateRange(_ context.Context, start, end time.Time) ([]*models.Invoice, error) {
	f.lastStart = start
	f.lastEnd = end
	return f.invoices, f.err
}

func (f *fakeQuerier) AboveAmount(_ context.Context, min float64) ([]*models.Invoice, error) {
	f.lastMin = min
	return f.invoices, f.err
}

func (f *fakeQuerier) Recent(_ context.Context, limit int) ([]*models.Invoice, error) {
	f.lastLimit = limit
	return f.invoices, f.err
}

func (f *fakeQuerier) CountByStatus(_ context.Context, st models.InvoiceStatus) (int64, error) {
	f.lastStatus = st
	return f.count, f.err
}

func (f *fakeQuerier) CountAll(_ context.Context) (int64, error) {
	return f.count, f.err
}

func newTestRegistry(q *fakeQuerier) *Registry {
	return NewRegistry(q, zap.NewNop())
}

func TestRegistryDeclarations(t *testing.T) {
	r := newTestRegistry(&fakeQuerier{})
	decls := r.Declarations()

	require.Len(t, decls, 10)

	expected := []string{
		"find_invoices_by_status",
		"count_invoices_by_status",
		"count_all_invoices",
		"find_invoices_by_vendor",
		"find_invoice_by_number",
		"get_total_amount_for_completed_invoices",
		"get_total_amount_for_vendor",
		"find_invoices_by_date_range",
		"find_invoices_above_amount",
		"list_recent_invoices",
	}
	for i, decl := range decls {
		assert.Equal(t, expected[i], decl.Name)
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	r := newTestRegistry(&fakeQuerier{})

	result := r.Dispatch(context.Background(), "drop_all_tables", nil)

	require.Contains(t, result, "error")
	assert.Contains(t, result["error"], "unknown tool")
}

func TestDispatchQuerierError(t *testing.T) {
	q := &fakeQuerier{err: errors.New("firestore unavailable")}
	r := newTestRegistry(q)

	result := r.Dispatch(context.Background(), "count_all_invoices", nil)

	require.Contains(t, result, "error")
	assert.Equal(t, "firestore unavailable", result["error"])
}

func TestFindByStatusNormalizesInput(t *testing.T) {
	q := &fakeQuerier{invoices: []*models.Invoice{{Filename: "a.pdf", Status: models.InvoiceStatusCompleted}}}
	r := newTestRegistry(q)

	result := r.Dispatch(context.Background(), "find_invoices_by_status", map[string]any{"status": " completed "})

	require.NotContains(t, result, "error")
	assert.Equal(t, models.InvoiceStatusCompleted, q.lastStatus)
	assert.Equal(t, 1, result["count"])
}

func TestFindByStatusRejectsUnknownStatus(t *testing.T) {
	r := newTestRegistry(&fakeQuerier{})

	result := r.Dispatch(context.Background(), "find_invoices_by_status", map[string]any{"status": "DONE"})

	require.Contains(t, result, "error")
	assert.Contains(t, result["error"], "invalid status")
}

func TestFindByVendorLowercasesName(t *testing.T) {
	q := &fakeQuerier{}
	r := newTestRegistry(q)

	result := r.Dispatch(context.Background(), "find_invoices_by_vendor", map[string]any{"vendor_name": "Acme Corp"})

	require.NotContains(t, result, "error")
	assert.Equal(t, "acme corp", q.lastVendor)
}

func TestFindByNumberNotFound(t *testing.T) {
	q := &fakeQuerier{byNumber: nil}
	r := newTestRegistry(q)

	result := r.Dispatch(context.Background(), "find_invoice_by_number", map[string]any{"invoice_number": "INV-42"})

	require.NotContains(t, result, "error")
	assert.Equal(t, false, result["found"])
	assert.Equal(t, "inv-42", q.lastNumber)
}

func TestFindByNumberFound(t *testing.T) {
	q := &fakeQuerier{byNumber: &models.Invoice{
		Filename:      "inv.pdf",
		Status:        models.InvoiceStatusCompleted,
		InvoiceNumber: "INV-42",
		TotalAmount:   99.5,
		Currency:      "USD",
	}}
	r := newTestRegistry(q)

	result := r.Dispatch(context.Background(), "find_invoice_by_number", map[string]any{"invoice_number": "INV-42"})

	require.Equal(t, true, result["found"])
	inv, ok := result["invoice"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "inv.pdf", inv["filename"])
	assert.Equal(t, 99.5, inv["total_amount"])
}

func TestTotalForVendorSingleCurrency(t *testing.T) {
	q := &fakeQuerier{invoices: []*models.Invoice{
		{TotalAmount: 100, Currency: "USD"},
		{TotalAmount: 50.5, Currency: "USD"},
	}}
	r := newTestRegistry(q)

	result := r.Dispatch(context.Background(), "get_total_amount_for_vendor", map[string]any{"vendor_name": "Acme"})

	assert.Equal(t, 150.5, result["total_amount"])
	assert.Equal(t, "USD", result["currency"])
	assert.Equal(t, 2, result["invoice_count"])
}

func TestSumAmounts(t *testing.T) {
	total, currency := sumAmounts(nil)
	assert.Equal(t, 0.0, total)
	assert.Equal(t, "N/A", currency)

	total, currency = sumAmounts([]*models.Invoice{
		{TotalAmount: 10, Currency: "USD"},
		{TotalAmount: 20, Currency: "EUR"},
	})
	assert.Equal(t, 30.0, total)
	assert.Equal(t, "MIXED", currency)

	// Invoices without a currency do not poison a uniform set.
	total, currency = sumAmounts([]*models.Invoice{
		{TotalAmount: 10, Currency: "INR"},
		{TotalAmount: 5},
	})
	assert.Equal(t, 15.0, total)
	assert.Equal(t, "INR", currency)
}

func TestTotalCompletedQueriesCompletedStatus(t *testing.T) {
	q := &fakeQuerier{invoices: []*models.Invoice{{TotalAmount: 7, Currency: "USD"}}}
	r := newTestRegistry(q)

	result := r.Dispatch(context.Background(), "get_total_amount_for_completed_invoices", nil)

	assert.Equal(t, models.InvoiceStatusCompleted, q.lastStatus)
	assert.Equal(t, 7.0, result["total_amount"])
}

func TestFindByDateRangeInclusiveEnd(t *testing.T) {
	q := &fakeQuerier{}
	r := newTestRegistry(q)

	result := r.Dispatch(context.Background(), "find_invoices_by_date_range", map[string]any{
		"start_date": "2025-07-01",
		"end_date":   "2025-07-31",
	})

	require.NotContains(t, result, "error")
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), q.lastStart)
	// The end bound covers the whole final day.
	assert.True(t, q.lastEnd.After(time.Date(2025, 7, 31, 23, 59, 59, 0, time.UTC)))
	assert.True(t, q.lastEnd.Before(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)))
}

func TestFindByDateRangeRejectsReversedRange(t *testing.T) {
	r := newTestRegistry(&fakeQuerier{})

	result := r.Dispatch(context.Background(), "find_invoices_by_date_range", map[string]any{
		"start_date": "2025-07-31",
		"end_date":   "2025-07-01",
	})

	require.Contains(t, result, "error")
}

func TestFindByDateRangeRejectsBadDate(t *testing.T) {
	r := newTestRegistry(&fakeQuerier{})

	result := r.Dispatch(context.Background(), "find_invoices_by_date_range", map[string]any{
		"start_date": "July 1st",
		"end_date":   "2025-07-31",
	})

	require.Contains(t, result, "error")
	assert.Contains(t, result["error"], "YYYY-MM-DD")
}

func TestFindAboveAmount(t *testing.T) {
	q := &fakeQuerier{}
	r := newTestRegistry(q)

	result := r.Dispatch(context.Background(), "find_invoices_above_amount", map[string]any{"min_amount": float64(1000)})

	require.NotContains(t, result, "error")
	assert.Equal(t, 1000.0, q.lastMin)
}

func TestFindAboveAmountMissingArgument(t *testing.T) {
	r := newTestRegistry(&fakeQuerier{})

	result := r.Dispatch(context.Background(), "find_invoices_above_amount", map[string]any{})

	require.Contains(t, result, "error")
	assert.Contains(t, result["error"], "min_amount")
}

func TestListRecentDefaultsAndCaps(t *testing.T) {
	q := &fakeQuerier{}
	r := newTestRegistry(q)

	r.Dispatch(context.Background(), "list_recent_invoices", nil)
	assert.Equal(t, 5, q.lastLimit)

	r.Dispatch(context.Background(), "list_recent_invoices", map[string]any{"limit": float64(3)})
	assert.Equal(t, 3, q.lastLimit)

	r.Dispatch(context.Background(), "list_recent_invoices", map[string]any{"limit": float64(500)})
	assert.Equal(t, 50, q.lastLimit)

	// Nonsense limits fall back to the default.
	r.Dispatch(context.Background(), "list_recent_invoices", map[string]any{"limit": float64(-1)})
	assert.Equal(t, 5, q.lastLimit)
}

func TestInvoiceToMapOmitsEmptyFields(t *testing.T) {
	m := invoiceToMap(&models.Invoice{
		Filename: "bare.pdf",
		Status:   models.InvoiceStatusUploaded,
	})

	assert.Equal(t, "bare.pdf", m["filename"])
	assert.Equal(t, "UPLOADED", m["status"])
	assert.NotContains(t, m, "vendor_name")
	assert.NotContains(t, m, "total_amount")
	assert.NotContains(t, m, "invoice_date")
}
