package dto

import "time"

type UploadResponse struct {
	Status   string `json:"status"`
	GCSURI   string `json:"gcs_uri"`
	Filename string `json:"filename"`
}

type InvoiceStatusResponse struct {
	Filename     string    `json:"filename"`
	Status       string    `json:"status"`
	LastModified time.Time `json:"last_modified"`
}

// InvoiceStatusUpdate is the lightweight shape served to polling clients.
type InvoiceStatusUpdate struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

// ProcessedInvoiceContent carries the parsed JSON the extraction pipeline
// wrote into the target bucket.
type ProcessedInvoiceContent struct {
	Filename string                 `json:"filename"`
	Content  map[string]interface{} `json:"content"`
}

type FileViewURL struct {
	Filename  string    `json:"filename"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type DeleteResponse struct {
	Status          string `json:"status"`
	Filename        string `json:"filename"`
	CleanedSource   bool   `json:"cleaned_source_gcs"`
	CleanedTarget   bool   `json:"cleaned_target_gcs"`
	CleanedMetadata bool   `json:"cleaned_metadata"`
}
