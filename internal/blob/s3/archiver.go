package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Mikesteam1234/crypfinder/internal/domain"
)

// ---------------------------------------------------------------------------
// Narrow store interfaces required by the archiver. The archiver only needs
// the time-ranged read each store already provides, not the full store
// interfaces.
// ---------------------------------------------------------------------------

// CycleArchiveStore provides read access to cycles for archival purposes.
type CycleArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.Cycle, error)
}

// OrderArchiveStore provides read access to orders for archival purposes.
type OrderArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.Order, error)
}

// TransferArchiveStore provides read access to transfers for archival purposes.
type TransferArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.Transfer, error)
}

// multipartThreshold is the payload size above which uploads switch from a
// single PutObject to a multipart upload.
const multipartThreshold = 8 * 1024 * 1024

// ArchiveImpl implements domain.Archiver by querying the journal stores for
// old records, serializing them to JSONL, uploading the result to S3, and
// reading the object back to confirm it matches what was sent.
//
// Deleting the archived records from the primary store is intentionally NOT
// performed here; that is a separate, explicit step that runs only after an
// archive call has returned without error, i.e. after the read-back check.
type ArchiveImpl struct {
	writer    domain.BlobWriter
	reader    domain.BlobReader
	cycles    CycleArchiveStore
	orders    OrderArchiveStore
	transfers TransferArchiveStore
}

// NewArchiver creates a new ArchiveImpl. reader may be nil, in which case
// uploads are not read back for verification.
func NewArchiver(
	writer domain.BlobWriter,
	reader domain.BlobReader,
	cycles CycleArchiveStore,
	orders OrderArchiveStore,
	transfers TransferArchiveStore,
) *ArchiveImpl {
	return &ArchiveImpl{
		writer:    writer,
		reader:    reader,
		cycles:    cycles,
		orders:    orders,
		transfers: transfers,
	}
}

// upload stores a JSONL payload at the archive path for kind, using a
// multipart upload for large payloads, then verifies the stored object.
func (a *ArchiveImpl) upload(ctx context.Context, kind string, before time.Time, buf []byte) error {
	path := archivePath(kind, before)

	if int64(len(buf)) > multipartThreshold {
		if err := a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize); err != nil {
			return fmt.Errorf("s3blob: archive %s upload: %w", kind, err)
		}
	} else {
		if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
			return fmt.Errorf("s3blob: archive %s upload: %w", kind, err)
		}
	}

	if a.reader == nil {
		return nil
	}
	if err := a.verify(ctx, path, buf); err != nil {
		return fmt.Errorf("s3blob: archive %s: %w", kind, err)
	}
	return nil
}

// verify reads the object at path back and compares it byte for byte with
// the payload that was just uploaded.
func (a *ArchiveImpl) verify(ctx context.Context, path string, want []byte) error {
	ok, err := a.reader.Exists(ctx, path)
	if err != nil {
		return fmt.Errorf("verify %s: %w", path, err)
	}
	if !ok {
		return fmt.Errorf("verify %s: object missing after upload", path)
	}

	body, err := a.reader.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("verify %s: %w", path, err)
	}
	defer body.Close()

	got, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("verify %s: read back: %w", path, err)
	}
	if !bytes.Equal(got, want) {
		return fmt.Errorf("verify %s: stored object differs from upload (%d bytes stored, %d sent)",
			path, len(got), len(want))
	}
	return nil
}

// ArchiveCycles queries all cycles started before the cutoff, serializes
// them to JSONL, and uploads the file at archive/cycles/YYYY-MM.jsonl.
// It returns the count of archived records.
func (a *ArchiveImpl) ArchiveCycles(ctx context.Context, before time.Time) (int64, error) {
	cycles, err := a.cycles.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive cycles query: %w", err)
	}
	if len(cycles) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(cycles)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive cycles marshal: %w", err)
	}

	if err := a.upload(ctx, "cycles", before, buf); err != nil {
		return 0, err
	}

	return int64(len(cycles)), nil
}

// ArchiveOrders queries all orders created before the cutoff, serializes
// them to JSONL, and uploads the file at archive/orders/YYYY-MM.jsonl.
// It returns the count of archived records.
func (a *ArchiveImpl) ArchiveOrders(ctx context.Context, before time.Time) (int64, error) {
	orders, err := a.orders.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive orders query: %w", err)
	}
	if len(orders) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(orders)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive orders marshal: %w", err)
	}

	if err := a.upload(ctx, "orders", before, buf); err != nil {
		return 0, err
	}

	return int64(len(orders)), nil
}

// ArchiveTransfers queries all transfers created before the cutoff,
// serializes them to JSONL, and uploads the file at
// archive/transfers/YYYY-MM.jsonl. It returns the count of archived records.
func (a *ArchiveImpl) ArchiveTransfers(ctx context.Context, before time.Time) (int64, error) {
	transfers, err := a.transfers.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive transfers query: %w", err)
	}
	if len(transfers) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(transfers)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive transfers marshal: %w", err)
	}

	if err := a.upload(ctx, "transfers", before, buf); err != nil {
		return 0, err
	}

	return int64(len(transfers)), nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/cycles/2026-08.jsonl
//	archive/orders/2026-08.jsonl
//	archive/transfers/2026-08.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
