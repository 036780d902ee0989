package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"invoicehub/internal/models"
)

// InvoiceQuerier is the read surface the chat tools run against. All
// queries are single-field equality/range lookups or linear summations;
// the invoice metadata store implements it.
type InvoiceQuerier interface {
	ByStatus(ctx context.Context, st models.InvoiceStatus) ([]*models.Invoice, error)
	ByVendor(ctx context.Context, vendor string) ([]*models.Invoice, error)
	ByNumber(ctx context.Context, number string) (*models.Invoice, error)
	ByDateRange(ctx context.Context, start, end time.Time) ([]*models.Invoice, error)
	AboveAmount(ctx context.Context, min float64) ([]*models.Invoice, error)
	Recent(ctx context.Context, limit int) ([]*models.Invoice, error)
	CountByStatus(ctx context.Context, st models.InvoiceStatus) (int64, error)
	CountAll(ctx context.Context) (int64, error)
}

type toolFunc func(ctx context.Context, args map[string]any) (map[string]any, error)

type tool struct {
	decl *genai.FunctionDeclaration
	run  toolFunc
}

// Registry holds the fixed set of query functions exposed to the model.
type Registry struct {
	querier InvoiceQuerier
	logger  *zap.Logger
	tools   map[string]tool
	order   []string
}

func NewRegistry(querier InvoiceQuerier, logger *zap.Logger) *Registry {
	r := &Registry{
		querier: querier,
		logger:  logger,
		tools:   make(map[string]tool),
	}

	r.register(&genai.FunctionDeclaration{
		Name:        "find_invoices_by_status",
		Description: "Finds all invoices that have a given processing status. Valid statuses are UPLOADED, PROCESSING, COMPLETED and FAILED.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"status": {Type: genai.TypeString, Description: "Invoice status, case-insensitive."},
			},
			Required: []string{"status"},
		},
	}, r.findByStatus)

	r.register(&genai.FunctionDeclaration{
		Name:        "count_invoices_by_status",
		Description: "Counts invoices with a given status without retrieving the full records.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"status": {Type: genai.TypeString, Description: "Invoice status, case-insensitive."},
			},
			Required: []string{"status"},
		},
	}, r.countByStatus)

	r.register(&genai.FunctionDeclaration{
		Name:        "count_all_invoices",
		Description: "Counts all invoices regardless of status.",
		Parameters:  &genai.Schema{Type: genai.TypeObject},
	}, r.countAll)

	r.register(&genai.FunctionDeclaration{
		Name:        "find_invoices_by_vendor",
		Description: "Finds all invoices from a specific vendor name. The search is case-insensitive.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"vendor_name": {Type: genai.TypeString, Description: "Vendor or company name."},
			},
			Required: []string{"vendor_name"},
		},
	}, r.findByVendor)

	r.register(&genai.FunctionDeclaration{
		Name:        "find_invoice_by_number",
		Description: "Retrieves a single invoice by its unique invoice number. The search is case-insensitive.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"invoice_number": {Type: genai.TypeString, Description: "Invoice number as printed on the document."},
			},
			Required: []string{"invoice_number"},
		},
	}, r.findByNumber)

	r.register(&genai.FunctionDeclaration{
		Name:        "get_total_amount_for_completed_invoices",
		Description: "Calculates the sum of the total amount over all invoices with COMPLETED status.",
		Parameters:  &genai.Schema{Type: genai.TypeObject},
	}, r.totalCompleted)

	r.register(&genai.FunctionDeclaration{
		Name:        "get_total_amount_for_vendor",
		Description: "Calculates the sum of the total amount over all invoices from a specific vendor.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"vendor_name": {Type: genai.TypeString, Description: "Vendor or company name."},
			},
			Required: []string{"vendor_name"},
		},
	}, r.totalForVendor)

	r.register(&genai.FunctionDeclaration{
		Name:        "find_invoices_by_date_range",
		Description: "Finds invoices whose invoice date falls within an inclusive date range.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"start_date": {Type: genai.TypeString, Description: "Range start, YYYY-MM-DD."},
				"end_date":   {Type: genai.TypeString, Description: "Range end, YYYY-MM-DD."},
			},
			Required: []string{"start_date", "end_date"},
		},
	}, r.findByDateRange)

	r.register(&genai.FunctionDeclaration{
		Name:        "find_invoices_above_amount",
		Description: "Finds invoices whose total amount is greater than or equal to a minimum value.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"min_amount": {Type: genai.TypeNumber, Description: "Minimum total amount."},
			},
			Required: []string{"min_amount"},
		},
	}, r.findAboveAmount)

	r.register(&genai.FunctionDeclaration{
		Name:        "list_recent_invoices",
		Description: "Lists the most recently uploaded invoices, newest first.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"limit": {Type: genai.TypeInteger, Description: "Maximum number of invoices to return, defaults to 5."},
			},
		},
	}, r.listRecent)

	return r
}

func (r *Registry) register(decl *genai.FunctionDeclaration, run toolFunc) {
	r.tools[decl.Name] = tool{decl: decl, run: run}
	r.order = append(r.order, decl.Name)
}

// Declarations returns the function declarations in registration order.
func (r *Registry) Declarations() []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(r.order))
	for _, name := range r.order {
		decls = append(decls, r.tools[name].decl)
	}
	return decls
}

// Dispatch runs a named tool. Failures are reported back to the model as
// an error payload rather than aborting the conversation.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) map[string]any {
	t, ok := r.tools[name]
	if !ok {
		r.logger.Warn("Model requested unknown tool", zap.String("tool", name))
		return map[string]any{"error": fmt.Sprintf("unknown tool %q", name)}
	}

	result, err := t.run(ctx, args)
	if err != nil {
		r.logger.Warn("Tool call failed", zap.String("tool", name), zap.Error(err))
		return map[string]any{"error": err.Error()}
	}

	r.logger.Debug("Tool call completed", zap.String("tool", name))
	return result
}

func (r *Registry) findByStatus(ctx context.Context, args map[string]any) (map[string]any, error) {
	st, err := statusArg(args)
	if err != nil {
		return nil, err
	}

	invoices, err := r.querier.ByStatus(ctx, st)
	if err != nil {
		return nil, err
	}
	return map[string]any{"invoices": invoicesToMaps(invoices), "count": len(invoices)}, nil
}

func (r *Registry) countByStatus(ctx context.Context, args map[string]any) (map[string]any, error) {
	st, err := statusArg(args)
	if err != nil {
		return nil, err
	}

	count, err := r.querier.CountByStatus(ctx, st)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": string(st), "count": count}, nil
}

func (r *Registry) countAll(ctx context.Context, _ map[string]any) (map[string]any, error) {
	count, err := r.querier.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"count": count}, nil
}

func (r *Registry) findByVendor(ctx context.Context, args map[string]any) (map[string]any, error) {
	vendor, err := stringArg(args, "vendor_name")
	if err != nil {
		return nil, err
	}

	invoices, err := r.querier.ByVendor(ctx, strings.ToLower(vendor))
	if err != nil {
		return nil, err
	}
	return map[string]any{"invoices": invoicesToMaps(invoices), "count": len(invoices)}, nil
}

func (r *Registry) findByNumber(ctx context.Context, args map[string]any) (map[string]any, error) {
	number, err := stringArg(args, "invoice_number")
	if err != nil {
		return nil, err
	}

	inv, err := r.querier.ByNumber(ctx, strings.ToLower(number))
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return map[string]any{"found": false}, nil
	}
	return map[string]any{"found": true, "invoice": invoiceToMap(inv)}, nil
}

func (r *Registry) totalCompleted(ctx context.Context, _ map[string]any) (map[string]any, error) {
	invoices, err := r.querier.ByStatus(ctx, models.InvoiceStatusCompleted)
	if err != nil {
		return nil, err
	}

	total, currency := sumAmounts(invoices)
	return map[string]any{"total_amount": total, "currency": currency, "invoice_count": len(invoices)}, nil
}

func (r *Registry) totalForVendor(ctx context.Context, args map[string]any) (map[string]any, error) {
	vendor, err := stringArg(args, "vendor_name")
	if err != nil {
		return nil, err
	}

	invoices, err := r.querier.ByVendor(ctx, strings.ToLower(vendor))
	if err != nil {
		return nil, err
	}

	total, currency := sumAmounts(invoices)
	return map[string]any{
		"vendor_name":   vendor,
		"total_amount":  total,
		"currency":      currency,
		"invoice_count": len(invoices),
	}, nil
}

func (r *Registry) findByDateRange(ctx context.Context, args map[string]any) (map[string]any, error) {
	start, err := dateArg(args, "start_date")
	if err != nil {
		return nil, err
	}
	end, err := dateArg(args, "end_date")
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end_date is before start_date")
	}

	invoices, err := r.querier.ByDateRange(ctx, start, end.Add(24*time.Hour-time.Nanosecond))
	if err != nil {
		return nil, err
	}
	return map[string]any{"invoices": invoicesToMaps(invoices), "count": len(invoices)}, nil
}

func (r *Registry) findAboveAmount(ctx context.Context, args map[string]any) (map[string]any, error) {
	min, err := numberArg(args, "min_amount")
	if err != nil {
		return nil, err
	}

	invoices, err := r.querier.AboveAmount(ctx, min)
	if err != nil {
		return nil, err
	}
	return map[string]any{"invoices": invoicesToMaps(invoices), "count": len(invoices)}, nil
}

func (r *Registry) listRecent(ctx context.Context, args map[string]any) (map[string]any, error) {
	limit := 5
	if raw, ok := args["limit"]; ok {
		n, err := asNumber(raw)
		if err != nil {
			return nil, fmt.Errorf("argument limit: %w", err)
		}
		if n >= 1 {
			limit = int(n)
		}
	}
	if limit > 50 {
		limit = 50
	}

	invoices, err := r.querier.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	return map[string]any{"invoices": invoicesToMaps(invoices), "count": len(invoices)}, nil
}

// sumAmounts is a linear summation over the promoted amount field.
// Currency is reported as MIXED when invoices disagree and N/A when
// nothing carries one.
func sumAmounts(invoices []*models.Invoice) (float64, string) {
	var total float64
	currencies := make(map[string]struct{})

	for _, inv := range invoices {
		total += inv.TotalAmount
		if inv.Currency != "" {
			currencies[inv.Currency] = struct{}{}
		}
	}

	switch len(currencies) {
	case 0:
		return total, "N/A"
	case 1:
		for c := range currencies {
			return total, c
		}
	}
	return total, "MIXED"
}

func invoicesToMaps(invoices []*models.Invoice) []map[string]any {
	out := make([]map[string]any, len(invoices))
	for i, inv := range invoices {
		out[i] = invoiceToMap(inv)
	}
	return out
}

func invoiceToMap(inv *models.Invoice) map[string]any {
	m := map[string]any{
		"filename": inv.Filename,
		"status":   string(inv.Status),
	}
	if inv.VendorName != "" {
		m["vendor_name"] = inv.VendorName
	}
	if inv.InvoiceNumber != "" {
		m["invoice_number"] = inv.InvoiceNumber
	}
	if inv.TotalAmount != 0 {
		m["total_amount"] = inv.TotalAmount
	}
	if inv.Currency != "" {
		m["currency"] = inv.Currency
	}
	if !inv.InvoiceDate.IsZero() {
		m["invoice_date"] = inv.InvoiceDate.Format("2006-01-02")
	}
	if !inv.LastModified.IsZero() {
		m["last_modified"] = inv.LastModified.Format(time.RFC3339)
	}
	return m
}

func statusArg(args map[string]any) (models.InvoiceStatus, error) {
	raw, err := stringArg(args, "status")
	if err != nil {
		return "", err
	}

	st := strings.ToUpper(strings.TrimSpace(raw))
	if !models.ValidInvoiceStatus(st) {
		return "", fmt.Errorf("invalid status %q, valid statuses are UPLOADED, PROCESSING, COMPLETED, FAILED", raw)
	}
	return models.InvoiceStatus(st), nil
}

func stringArg(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing argument %q", key)
	}
	s, ok := raw.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("argument %q must be a non-empty string", key)
	}
	return strings.TrimSpace(s), nil
}

func numberArg(args map[string]any, key string) (float64, error) {
	raw, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing argument %q", key)
	}
	n, err := asNumber(raw)
	if err != nil {
		return 0, fmt.Errorf("argument %q: %w", key, err)
	}
	return n, nil
}

func asNumber(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return 0, fmt.Errorf("expected a number, got %T", raw)
}

func dateArg(args map[string]any, key string) (time.Time, error) {
	s, err := stringArg(args, key)
	if err != nil {
		return time.Time{}, err
	}

	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("argument %q must be a YYYY-MM-DD date", key)
	}
	return t, nil
}
