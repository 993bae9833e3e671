package s3blob

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/Mikesteam1234/crypfinder/internal/domain"
)

// fakeBlobStore backs both the writer and reader sides with an in-memory
// map so tests can exercise the upload-then-read-back flow end to end.
type fakeBlobStore struct {
	objects map[string][]byte

	puts       int
	multiparts int

	// corrupt, when set, mutates stored bytes after every write so the
	// read-back comparison fails.
	corrupt bool
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string][]byte{}}
}

func (f *fakeBlobStore) store(path string, data io.Reader) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if f.corrupt {
		buf = append(buf, '!')
	}
	f.objects[path] = buf
	return nil
}

func (f *fakeBlobStore) Put(_ context.Context, path string, data io.Reader, _ string) error {
	f.puts++
	return f.store(path, data)
}

func (f *fakeBlobStore) PutMultipart(_ context.Context, path string, data io.Reader, _ int64) error {
	f.multiparts++
	return f.store(path, data)
}

func (f *fakeBlobStore) Get(_ context.Context, path string) (io.ReadCloser, error) {
	buf, ok := f.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(buf)), nil
}

func (f *fakeBlobStore) List(_ context.Context, prefix string) ([]domain.BlobInfo, error) {
	var infos []domain.BlobInfo
	for path, buf := range f.objects {
		if strings.HasPrefix(path, prefix) {
			infos = append(infos, domain.BlobInfo{Path: path, Size: int64(len(buf))})
		}
	}
	return infos, nil
}

func (f *fakeBlobStore) Exists(_ context.Context, path string) (bool, error) {
	_, ok := f.objects[path]
	return ok, nil
}

type fakeCycleStore struct{ cycles []domain.Cycle }

func (f *fakeCycleStore) ListBefore(context.Context, time.Time) ([]domain.Cycle, error) {
	return f.cycles, nil
}

type fakeOrderStore struct{ orders []domain.Order }

func (f *fakeOrderStore) ListBefore(context.Context, time.Time) ([]domain.Order, error) {
	return f.orders, nil
}

type fakeTransferStore struct{ transfers []domain.Transfer }

func (f *fakeTransferStore) ListBefore(context.Context, time.Time) ([]domain.Transfer, error) {
	return f.transfers, nil
}

func testCutoff() time.Time {
	return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
}

func TestArchiveCyclesUploadsAndVerifies(t *testing.T) {
	blobs := newFakeBlobStore()
	cycles := &fakeCycleStore{cycles: []domain.Cycle{
		{ID: "cycle-1", ProductID: "BTC-USD", Profit: 9.0},
		{ID: "cycle-2", ProductID: "BTC-USD", Profit: -1.5},
	}}
	arch := NewArchiver(blobs, blobs, cycles, &fakeOrderStore{}, &fakeTransferStore{})

	count, err := arch.ArchiveCycles(context.Background(), testCutoff())
	if err != nil {
		t.Fatalf("ArchiveCycles: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	buf, ok := blobs.objects["archive/cycles/2026-08.jsonl"]
	if !ok {
		t.Fatalf("object not stored at archive/cycles/2026-08.jsonl, have %v", blobs.objects)
	}
	if lines := bytes.Count(buf, []byte("\n")); lines != 2 {
		t.Errorf("stored lines = %d, want 2", lines)
	}
	if blobs.puts != 1 || blobs.multiparts != 0 {
		t.Errorf("puts = %d, multiparts = %d, want 1 and 0", blobs.puts, blobs.multiparts)
	}
}

func TestArchiveOrdersEmptySkipsUpload(t *testing.T) {
	blobs := newFakeBlobStore()
	arch := NewArchiver(blobs, blobs, &fakeCycleStore{}, &fakeOrderStore{}, &fakeTransferStore{})

	count, err := arch.ArchiveOrders(context.Background(), testCutoff())
	if err != nil {
		t.Fatalf("ArchiveOrders: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
	if blobs.puts != 0 {
		t.Errorf("puts = %d, want 0 for an empty range", blobs.puts)
	}
}

func TestArchiveTransfersDetectsCorruptReadBack(t *testing.T) {
	blobs := newFakeBlobStore()
	blobs.corrupt = true
	transfers := &fakeTransferStore{transfers: []domain.Transfer{
		{ID: "transfer-1", CycleID: "cycle-1", Amount: 3.60, Currency: "USD"},
	}}
	arch := NewArchiver(blobs, blobs, &fakeCycleStore{}, &fakeOrderStore{}, transfers)

	_, err := arch.ArchiveTransfers(context.Background(), testCutoff())
	if err == nil {
		t.Fatal("expected error for a stored object that differs from the upload")
	}
	if !strings.Contains(err.Error(), "differs") {
		t.Errorf("error = %v, want read-back mismatch", err)
	}
}

func TestArchiveNilReaderSkipsVerification(t *testing.T) {
	blobs := newFakeBlobStore()
	blobs.corrupt = true
	cycles := &fakeCycleStore{cycles: []domain.Cycle{{ID: "cycle-1"}}}
	arch := NewArchiver(blobs, nil, cycles, &fakeOrderStore{}, &fakeTransferStore{})

	count, err := arch.ArchiveCycles(context.Background(), testCutoff())
	if err != nil {
		t.Fatalf("ArchiveCycles: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestUploadSwitchesToMultipartForLargePayloads(t *testing.T) {
	blobs := newFakeBlobStore()
	arch := NewArchiver(blobs, blobs, &fakeCycleStore{}, &fakeOrderStore{}, &fakeTransferStore{})

	big := bytes.Repeat([]byte("a"), multipartThreshold+1)
	if err := arch.upload(context.Background(), "orders", testCutoff(), big); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if blobs.multiparts != 1 || blobs.puts != 0 {
		t.Errorf("multiparts = %d, puts = %d, want 1 and 0", blobs.multiparts, blobs.puts)
	}
}

func TestUploadFailsWhenObjectMissing(t *testing.T) {
	blobs := newFakeBlobStore()
	reader := &missingReader{}
	arch := NewArchiver(blobs, reader, &fakeCycleStore{}, &fakeOrderStore{}, &fakeTransferStore{})

	err := arch.upload(context.Background(), "cycles", testCutoff(), []byte("{}\n"))
	if err == nil {
		t.Fatal("expected error when the uploaded object cannot be found")
	}
	if !strings.Contains(err.Error(), "missing") {
		t.Errorf("error = %v, want missing-object failure", err)
	}
}

// missingReader reports every object as absent, as a backend that lost the
// upload would.
type missingReader struct{}

func (missingReader) Get(context.Context, string) (io.ReadCloser, error) {
	return nil, domain.ErrNotFound
}

func (missingReader) List(context.Context, string) ([]domain.BlobInfo, error) {
	return nil, nil
}

func (missingReader) Exists(context.Context, string) (bool, error) {
	return false, nil
}

var _ domain.BlobWriter = (*fakeBlobStore)(nil)
var _ domain.BlobReader = (*fakeBlobStore)(nil)
