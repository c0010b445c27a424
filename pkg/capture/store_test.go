package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"snapvalue-be/internal/pkg/logger"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }
func (nopLogger) GetLogs(level string, limit, offset int) ([]logger.LogEntry, error) {
	return nil, nil
}
func (nopLogger) GetLogById(id string) (*logger.LogEntry, error) { return nil, nil }

// passthrough store: the high skip threshold keeps small test payloads out
// of the real image pipeline.
func newTestStore(maxItems int) *Store {
	comp := NewCompressor(CompressorConfig{SkipBelowBytes: 1 << 20})
	return NewStore(maxItems, comp, nopLogger{})
}

func photoDraft(name string) Draft {
	return Draft{Kind: KindPhoto, Data: []byte("jpeg-bytes-" + name), DisplayName: name}
}

func TestStore_BatchBound(t *testing.T) {
	s := newTestStore(15)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		if _, err := s.Add(ctx, photoDraft(fmt.Sprintf("item-%d", i))); err != nil {
			t.Fatalf("Add %d error = %v", i, err)
		}
	}

	before := s.Items()

	_, err := s.Add(ctx, photoDraft("one-too-many"))
	var full *BatchFullError
	if !errors.As(err, &full) {
		t.Fatalf("16th Add error = %v, want *BatchFullError", err)
	}
	if full.Max != 15 {
		t.Errorf("BatchFullError.Max = %d, want 15", full.Max)
	}

	after := s.Items()
	if len(after) != 15 {
		t.Fatalf("item count = %d, want 15", len(after))
	}
	// Rejection is idempotent: store state unchanged.
	for i := range before {
		if before[i].ID != after[i].ID {
			t.Fatalf("item %d changed after rejected Add", i)
		}
	}
}

func TestStore_DefaultMax(t *testing.T) {
	s := newTestStore(0)
	if got := s.MaxItems(); got != DefaultMaxItems {
		t.Errorf("MaxItems = %d, want %d", got, DefaultMaxItems)
	}
}

func TestStore_NewItemsDefaultSelected(t *testing.T) {
	s := newTestStore(5)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		item, err := s.Add(ctx, photoDraft(fmt.Sprintf("p%d", i)))
		if err != nil {
			t.Fatal(err)
		}
		if !item.Selected {
			t.Errorf("item %d not selected by default", i)
		}
	}
	if got := s.SelectedCount(); got != 3 {
		t.Errorf("SelectedCount = %d, want 3", got)
	}
}

func TestStore_ToggleRemoveClear(t *testing.T) {
	s := newTestStore(5)
	ctx := context.Background()

	item, err := s.Add(ctx, photoDraft("a"))
	if err != nil {
		t.Fatal(err)
	}

	selected, err := s.ToggleSelection(item.ID)
	if err != nil {
		t.Fatalf("ToggleSelection error = %v", err)
	}
	if selected {
		t.Error("toggle of a selected item should report false")
	}
	if got := s.SelectedCount(); got != 0 {
		t.Errorf("SelectedCount = %d, want 0", got)
	}

	if _, err := s.ToggleSelection(uuid.New()); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("ToggleSelection(unknown) error = %v, want ErrItemNotFound", err)
	}
	if err := s.Remove(uuid.New()); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("Remove(unknown) error = %v, want ErrItemNotFound", err)
	}

	if err := s.Remove(item.ID); err != nil {
		t.Fatalf("Remove error = %v", err)
	}
	if got := s.Count(); got != 0 {
		t.Errorf("Count = %d, want 0", got)
	}

	if _, err := s.Add(ctx, photoDraft("b")); err != nil {
		t.Fatal(err)
	}
	s.Clear()
	if got := s.Count(); got != 0 {
		t.Errorf("Count after Clear = %d, want 0", got)
	}
}

func TestStore_SelectAllDeselectAll(t *testing.T) {
	s := newTestStore(5)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.Add(ctx, photoDraft(fmt.Sprintf("p%d", i))); err != nil {
			t.Fatal(err)
		}
	}

	s.DeselectAll()
	if got := s.SelectedCount(); got != 0 {
		t.Errorf("SelectedCount after DeselectAll = %d, want 0", got)
	}
	s.SelectAll()
	if got := s.SelectedCount(); got != 3 {
		t.Errorf("SelectedCount after SelectAll = %d, want 3", got)
	}
}

func TestStore_SnapshotIsolation(t *testing.T) {
	s := newTestStore(5)
	ctx := context.Background()

	first, err := s.Add(ctx, photoDraft("keep"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(ctx, photoDraft("other")); err != nil {
		t.Fatal(err)
	}

	snap := s.SelectedSnapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot length = %d, want 2", len(snap))
	}

	// Mutating the snapshot never reaches the store.
	snap[0].Data[0] = 0xFF
	stored, err := s.Get(first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Data[0] == 0xFF {
		t.Error("snapshot shares backing bytes with the store")
	}

	// Store mutations never reach an existing snapshot.
	if err := s.Remove(first.ID); err != nil {
		t.Fatal(err)
	}
	s.Clear()
	if len(snap) != 2 || len(snap[0].Data) == 0 || len(snap[1].Data) == 0 {
		t.Error("snapshot was affected by Remove/Clear")
	}
}

func TestStore_DualRepresentation(t *testing.T) {
	// Real pipeline this time: low skip threshold, tight bounding box.
	comp := NewCompressor(CompressorConfig{
		MaxWidth:       320,
		MaxHeight:      320,
		SkipBelowBytes: 1,
	})
	s := NewStore(5, comp, nopLogger{})

	original := makeJPEG(t, 1024, 768, 95)
	item, err := s.Add(context.Background(), Draft{Kind: KindPhoto, Data: original, DisplayName: "real"})
	if err != nil {
		t.Fatalf("Add error = %v", err)
	}

	if !bytes.Equal(item.Original, original) {
		t.Error("original representation was not retained byte-for-byte")
	}
	if bytes.Equal(item.Data, original) {
		t.Error("compressed representation equals the original")
	}
	if len(item.Thumbnail) == 0 {
		t.Error("thumbnail missing")
	}
	if item.Metadata.OriginalByteSize != len(original) {
		t.Errorf("OriginalByteSize = %d, want %d", item.Metadata.OriginalByteSize, len(original))
	}
	if item.Metadata.CompressedByteSize != len(item.Data) {
		t.Errorf("CompressedByteSize = %d, want %d", item.Metadata.CompressedByteSize, len(item.Data))
	}
}

func TestStore_VideoSkipsImagePipeline(t *testing.T) {
	s := newTestStore(5)
	data := []byte("mp4-container-bytes")

	item, err := s.Add(context.Background(), Draft{Kind: KindVideo, Data: data, DisplayName: "clip"})
	if err != nil {
		t.Fatalf("Add error = %v", err)
	}
	if !bytes.Equal(item.Data, data) {
		t.Error("video payload was altered")
	}
	if len(item.Thumbnail) != 0 {
		t.Error("video item has an image thumbnail")
	}
}

func TestStore_RejectsInvalidDrafts(t *testing.T) {
	s := newTestStore(5)
	ctx := context.Background()

	if _, err := s.Add(ctx, Draft{Kind: "hologram", Data: []byte("x")}); err == nil {
		t.Error("expected error for invalid kind")
	}
	if _, err := s.Add(ctx, Draft{Kind: KindPhoto}); err == nil {
		t.Error("expected error for empty data")
	}
	if got := s.Count(); got != 0 {
		t.Errorf("Count = %d, want 0 after rejected drafts", got)
	}
}
