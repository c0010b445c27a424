package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"snapvalue-be/internal/pkg/logger"
)

const DefaultMaxItems = 15

var ErrItemNotFound = errors.New("capture item not found")

// BatchFullError carries the capacity details for the user-visible warning.
type BatchFullError struct {
	Max int `json:"max"`
}

func (e *BatchFullError) Error() string {
	return fmt.Sprintf("capture batch is full (max %d items)", e.Max)
}

// Store is the ordered, bounded capture batch of one session. Every photo
// and document runs through the compressor before it counts as stored;
// videos pass through untouched. A rejected Add leaves the store exactly as
// it was.
type Store struct {
	mu    sync.Mutex
	max   int
	comp  *Compressor
	log   logger.ILogger
	items []*Item
}

func NewStore(maxItems int, comp *Compressor, log logger.ILogger) *Store {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	return &Store{
		max:  maxItems,
		comp: comp,
		log:  log,
	}
}

// Add compresses and stores one draft. New items default to selected.
// Returns *BatchFullError once the configured maximum is reached.
func (s *Store) Add(ctx context.Context, draft Draft) (*Item, error) {
	if !draft.Kind.Valid() {
		return nil, fmt.Errorf("invalid item kind %q", draft.Kind)
	}
	if len(draft.Data) == 0 {
		return nil, fmt.Errorf("empty item data")
	}

	// Fast reject before paying for compression.
	s.mu.Lock()
	if len(s.items) >= s.max {
		s.mu.Unlock()
		s.log.Warn("Capture", "Batch full, item rejected", map[string]interface{}{"max": s.max})
		return nil, &BatchFullError{Max: s.max}
	}
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	item := &Item{
		ID:          uuid.New(),
		Kind:        draft.Kind,
		DisplayName: draft.DisplayName,
		Original:    draft.Data,
		Selected:    true,
		Metadata:    draft.Metadata,
		CreatedAt:   time.Now(),
	}
	item.Metadata.OriginalByteSize = len(draft.Data)

	switch draft.Kind {
	case KindVideo:
		// Videos skip the image pipeline; the payload goes up as captured.
		item.Data = draft.Data
		item.Metadata.CompressedByteSize = len(draft.Data)
	default:
		result, err := s.comp.Compress(draft.Data)
		if err != nil {
			s.log.Warn("Capture", "Compression failed, item rejected", map[string]interface{}{
				"kind":  string(draft.Kind),
				"error": err.Error(),
			})
			return nil, fmt.Errorf("compress item: %w", err)
		}
		item.Data = result.Data
		item.Thumbnail = result.Thumbnail
		item.Metadata.CompressedByteSize = len(result.Data)
	}

	s.mu.Lock()
	if len(s.items) >= s.max {
		// Filled up while we were compressing.
		s.mu.Unlock()
		s.log.Warn("Capture", "Batch full, item rejected", map[string]interface{}{"max": s.max})
		return nil, &BatchFullError{Max: s.max}
	}
	s.items = append(s.items, item)
	count := len(s.items)
	s.mu.Unlock()

	s.log.Debug("Capture", "Item stored", map[string]interface{}{
		"item_id": item.ID.String(),
		"kind":    string(item.Kind),
		"count":   count,
	})

	out := item.clone()
	return &out, nil
}

func (s *Store) Remove(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.items {
		if item.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return ErrItemNotFound
}

// ToggleSelection flips one item's selection and returns the new state.
func (s *Store) ToggleSelection(id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.ID == id {
			item.Selected = !item.Selected
			return item.Selected, nil
		}
	}
	return false, ErrItemNotFound
}

func (s *Store) SelectAll() {
	s.setAll(true)
}

func (s *Store) DeselectAll() {
	s.setAll(false)
}

func (s *Store) setAll(selected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		item.Selected = selected
	}
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

// Items returns deep copies of all stored items in insertion order.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item.clone())
	}
	return out
}

// SelectedSnapshot returns deep copies of the selected items. Submissions
// operate on this snapshot: removing or clearing items afterwards has no
// effect on a job already in flight.
func (s *Store) SelectedSnapshot() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, 0, len(s.items))
	for _, item := range s.items {
		if item.Selected {
			out = append(out, item.clone())
		}
	}
	return out
}

func (s *Store) Get(id uuid.UUID) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.ID == id {
			return item.clone(), nil
		}
	}
	return Item{}, ErrItemNotFound
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) SelectedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, item := range s.items {
		if item.Selected {
			n++
		}
	}
	return n
}

func (s *Store) MaxItems() int {
	return s.max
}
