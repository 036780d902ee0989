package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"invoicehub/internal/models"
	"invoicehub/internal/storage"
	"invoicehub/pkg/config"
)

type fakeBlobStore struct {
	objects map[string][]byte // key: bucket + "/" + object
	types   map[string]string

	uploadErr error
	existsErr error
	deleted   []string
	signedURL string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (f *fakeBlobStore) key(bucket, object string) string { return bucket + "/" + object }

func (f *fakeBlobStore) Exists(_ context.Context, bucket, object string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.objects[f.key(bucket, object)]
	return ok, nil
}

func (f *fakeBlobStore) Upload(_ context.Context, bucket, object, contentType string, r io.Reader) (int64, error) {
	if f.uploadErr != nil {
		return 0, f.uploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	f.objects[f.key(bucket, object)] = data
	f.types[f.key(bucket, object)] = contentType
	return int64(len(data)), nil
}

func (f *fakeBlobStore) Download(_ context.Context, bucket, object string) (io.ReadCloser, string, error) {
	data, ok := f.objects[f.key(bucket, object)]
	if !ok {
		return nil, "", storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), f.types[f.key(bucket, object)], nil
}

func (f *fakeBlobStore) DownloadBytes(_ context.Context, bucket, object string) ([]byte, error) {
	data, ok := f.objects[f.key(bucket, object)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (f *fakeBlobStore) DeleteIfExists(_ context.Context, bucket, object string) (bool, error) {
	k := f.key(bucket, object)
	if _, ok := f.objects[k]; !ok {
		return false, nil
	}
	delete(f.objects, k)
	f.deleted = append(f.deleted, k)
	return true, nil
}

func (f *fakeBlobStore) ListObjects(_ context.Context, bucket, suffix string) ([]string, error) {
	var names []string
	prefix := bucket + "/"
	for k := range f.objects {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			name := k[len(prefix):]
			if suffix == "" || (len(name) >= len(suffix) && name[len(name)-len(suffix):] == suffix) {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

func (f *fakeBlobStore) SignedURL(bucket, object string, ttl time.Duration) (string, time.Time, error) {
	if f.signedURL == "" {
		return "", time.Time{}, errors.New("signing not configured")
	}
	return f.signedURL, time.Now().Add(ttl), nil
}

type fakeMetadataStore struct {
	records   map[string]*models.Invoice
	createErr error
}

func newFakeMetadataStore() *fakeMetadataStore {
	return &fakeMetadataStore{records: make(map[string]*models.Invoice)}
}

func (f *fakeMetadataStore) Create(_ context.Context, inv *models.Invoice) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.records[inv.Filename] = inv
	return nil
}

func (f *fakeMetadataStore) Get(_ context.Context, filename string) (*models.Invoice, error) {
	inv, ok := f.records[filename]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return inv, nil
}

func (f *fakeMetadataStore) Delete(_ context.Context, filename string) (bool, error) {
	if _, ok := f.records[filename]; !ok {
		return false, nil
	}
	delete(f.records, filename)
	return true, nil
}

func (f *fakeMetadataStore) List(_ context.Context) ([]*models.Invoice, error) {
	out := make([]*models.Invoice, 0, len(f.records))
	for _, inv := range f.records {
		out = append(out, inv)
	}
	return out, nil
}

func (f *fakeMetadataStore) ListStatuses(ctx context.Context) ([]*models.Invoice, error) {
	return f.List(ctx)
}

func testGCSConfig() *config.GCSConfig {
	return &config.GCSConfig{
		SourceBucket: "src",
		TargetBucket: "dst",
		SignedURLTTL: 15 * time.Minute,
	}
}

func newTestInvoiceService(blobs *fakeBlobStore, meta *fakeMetadataStore) *InvoiceService {
	return NewInvoiceService(blobs, meta, testGCSConfig(), zap.NewNop())
}

func TestUploadCreatesBlobAndMetadata(t *testing.T) {
	blobs := newFakeBlobStore()
	meta := newFakeMetadataStore()
	svc := newTestInvoiceService(blobs, meta)

	resp, err := svc.Upload(context.Background(), "inv.pdf", "application/pdf", bytes.NewReader([]byte("%PDF")))
	require.NoError(t, err)

	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "gs://src/inv.pdf", resp.GCSURI)
	assert.Contains(t, blobs.objects, "src/inv.pdf")

	record, ok := meta.records["inv.pdf"]
	require.True(t, ok)
	assert.Equal(t, models.InvoiceStatusUploaded, record.Status)
	assert.Equal(t, "gs://src/inv.pdf", record.GCSSourceURI)
}

func TestUploadRejectsDuplicate(t *testing.T) {
	blobs := newFakeBlobStore()
	blobs.objects["src/inv.pdf"] = []byte("old")
	svc := newTestInvoiceService(blobs, newFakeMetadataStore())

	_, err := svc.Upload(context.Background(), "inv.pdf", "application/pdf", bytes.NewReader([]byte("new")))

	require.ErrorIs(t, err, ErrDuplicateInvoice)
	assert.Equal(t, []byte("old"), blobs.objects["src/inv.pdf"])
}

func TestUploadRollsBackBlobOnMetadataFailure(t *testing.T) {
	blobs := newFakeBlobStore()
	meta := newFakeMetadataStore()
	meta.createErr = errors.New("firestore write failed")
	svc := newTestInvoiceService(blobs, meta)

	_, err := svc.Upload(context.Background(), "inv.pdf", "application/pdf", bytes.NewReader([]byte("%PDF")))

	require.Error(t, err)
	assert.NotContains(t, blobs.objects, "src/inv.pdf")
	assert.Contains(t, blobs.deleted, "src/inv.pdf")
}

func TestViewFallsBackToDetectedContentType(t *testing.T) {
	blobs := newFakeBlobStore()
	blobs.objects["src/inv.pdf"] = []byte("%PDF")
	blobs.types["src/inv.pdf"] = ""
	svc := newTestInvoiceService(blobs, newFakeMetadataStore())

	r, contentType, err := svc.View(context.Background(), "inv.pdf")
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, "application/pdf", contentType)
}

func TestViewNotFound(t *testing.T) {
	svc := newTestInvoiceService(newFakeBlobStore(), newFakeMetadataStore())

	_, _, err := svc.View(context.Background(), "missing.pdf")

	require.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestViewURLNotFound(t *testing.T) {
	svc := newTestInvoiceService(newFakeBlobStore(), newFakeMetadataStore())

	_, err := svc.ViewURL(context.Background(), "missing.pdf")

	require.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestViewURLSignsExistingObject(t *testing.T) {
	blobs := newFakeBlobStore()
	blobs.objects["src/inv.pdf"] = []byte("%PDF")
	blobs.signedURL = "https://storage.example/signed"
	svc := newTestInvoiceService(blobs, newFakeMetadataStore())

	resp, err := svc.ViewURL(context.Background(), "inv.pdf")
	require.NoError(t, err)

	assert.Equal(t, "inv.pdf", resp.Filename)
	assert.Equal(t, "https://storage.example/signed", resp.URL)
	assert.True(t, resp.ExpiresAt.After(time.Now()))
}

func TestGetProcessedReturnsContent(t *testing.T) {
	blobs := newFakeBlobStore()
	blobs.objects["dst/inv.json"] = []byte(`{"vendor_name":"Acme","total_amount":12.5}`)
	svc := newTestInvoiceService(blobs, newFakeMetadataStore())

	resp, err := svc.GetProcessed(context.Background(), "inv.pdf")
	require.NoError(t, err)

	assert.Equal(t, "inv.json", resp.Filename)
	assert.Equal(t, "Acme", resp.Content["vendor_name"])
}

func TestGetProcessedUnderProcessing(t *testing.T) {
	meta := newFakeMetadataStore()
	meta.records["inv.pdf"] = &models.Invoice{Filename: "inv.pdf", Status: models.InvoiceStatusProcessing}
	svc := newTestInvoiceService(newFakeBlobStore(), meta)

	_, err := svc.GetProcessed(context.Background(), "inv.pdf")

	require.ErrorIs(t, err, ErrInvoiceProcessing)
}

func TestGetProcessedUnknownInvoice(t *testing.T) {
	svc := newTestInvoiceService(newFakeBlobStore(), newFakeMetadataStore())

	_, err := svc.GetProcessed(context.Background(), "never-seen.pdf")

	require.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestGetProcessedCorruptResult(t *testing.T) {
	blobs := newFakeBlobStore()
	blobs.objects["dst/inv.json"] = []byte("{not json")
	svc := newTestInvoiceService(blobs, newFakeMetadataStore())

	_, err := svc.GetProcessed(context.Background(), "inv.pdf")

	require.ErrorIs(t, err, ErrCorruptResult)
}

func TestListProcessedSkipsUndecodableObjects(t *testing.T) {
	blobs := newFakeBlobStore()
	blobs.objects["dst/good.json"] = []byte(`{"vendor_name":"Acme"}`)
	blobs.objects["dst/bad.json"] = []byte("{broken")
	svc := newTestInvoiceService(blobs, newFakeMetadataStore())

	processed, err := svc.ListProcessed(context.Background())
	require.NoError(t, err)

	require.Len(t, processed, 1)
	assert.Equal(t, "good.json", processed[0].Filename)
}

func TestDeleteRemovesAllThreeLocations(t *testing.T) {
	blobs := newFakeBlobStore()
	blobs.objects["src/inv.pdf"] = []byte("%PDF")
	blobs.objects["dst/inv.json"] = []byte("{}")
	meta := newFakeMetadataStore()
	meta.records["inv.pdf"] = &models.Invoice{Filename: "inv.pdf"}
	svc := newTestInvoiceService(blobs, meta)

	resp, err := svc.Delete(context.Background(), "inv.pdf")
	require.NoError(t, err)

	assert.True(t, resp.CleanedSource)
	assert.True(t, resp.CleanedTarget)
	assert.True(t, resp.CleanedMetadata)
	assert.Empty(t, blobs.objects)
	assert.Empty(t, meta.records)
}

func TestDeletePartialCleanup(t *testing.T) {
	blobs := newFakeBlobStore()
	blobs.objects["src/inv.pdf"] = []byte("%PDF")
	svc := newTestInvoiceService(blobs, newFakeMetadataStore())

	resp, err := svc.Delete(context.Background(), "inv.pdf")
	require.NoError(t, err)

	assert.True(t, resp.CleanedSource)
	assert.False(t, resp.CleanedTarget)
	assert.False(t, resp.CleanedMetadata)
}

func TestDeleteNothingFound(t *testing.T) {
	svc := newTestInvoiceService(newFakeBlobStore(), newFakeMetadataStore())

	_, err := svc.Delete(context.Background(), "ghost.pdf")

	require.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestJSONObjectName(t *testing.T) {
	assert.Equal(t, "inv.json", jsonObjectName("inv.pdf"))
	assert.Equal(t, "inv.json", jsonObjectName("inv"))
	assert.Equal(t, "inv.json", jsonObjectName("inv.json"))
	assert.Equal(t, "scan.2024.json", jsonObjectName("scan.2024.png"))
}
