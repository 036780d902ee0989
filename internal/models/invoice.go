package models

import "time"

type InvoiceStatus string

const (
	InvoiceStatusUploaded   InvoiceStatus = "UPLOADED"
	InvoiceStatusProcessing InvoiceStatus = "PROCESSING"
	InvoiceStatusCompleted  InvoiceStatus = "COMPLETED"
	InvoiceStatusFailed     InvoiceStatus = "FAILED"
)

// ValidInvoiceStatus reports whether s is one of the known pipeline states.
func ValidInvoiceStatus(s string) bool {
	switch InvoiceStatus(s) {
	case InvoiceStatusUploaded, InvoiceStatusProcessing, InvoiceStatusCompleted, InvoiceStatusFailed:
		return true
	}
	return false
}

// Invoice is the metadata record kept in Firestore, keyed by filename.
// The fields after GCSSourceURI are promoted by the external extraction
// pipeline once processing completes; the lowercase copies exist so the
// chat tools can run case-insensitive equality queries.
type Invoice struct {
	Filename     string        `firestore:"filename" json:"filename"`
	Status       InvoiceStatus `firestore:"status" json:"status"`
	CreatedAt    time.Time     `firestore:"created_at" json:"created_at"`
	LastModified time.Time     `firestore:"last_modified" json:"last_modified"`
	GCSSourceURI string        `firestore:"gcs_source_uri" json:"gcs_source_uri"`

	VendorName         string    `firestore:"vendor_name,omitempty" json:"vendor_name,omitempty"`
	VendorNameLower    string    `firestore:"vendor_name_lowercase,omitempty" json:"-"`
	InvoiceNumber      string    `firestore:"invoice_number,omitempty" json:"invoice_number,omitempty"`
	InvoiceNumberLower string    `firestore:"invoice_number_lowercase,omitempty" json:"-"`
	TotalAmount        float64   `firestore:"total_amount_num,omitempty" json:"total_amount,omitempty"`
	Currency           string    `firestore:"currency,omitempty" json:"currency,omitempty"`
	InvoiceDate        time.Time `firestore:"invoice_date,omitempty" json:"invoice_date,omitempty"`
}
