package capture

import (
	"time"

	"github.com/google/uuid"
)

// ItemKind classifies a capture item.
type ItemKind string

const (
	KindPhoto    ItemKind = "photo"
	KindVideo    ItemKind = "video"
	KindDocument ItemKind = "document"
)

func (k ItemKind) Valid() bool {
	switch k {
	case KindPhoto, KindVideo, KindDocument:
		return true
	}
	return false
}

// Metadata carries the optional, kind-specific annotations of an item.
type Metadata struct {
	DocumentKind       string   `json:"document_kind,omitempty"`
	ExtractedText      string   `json:"extracted_text,omitempty"`
	Barcodes           []string `json:"barcodes,omitempty"`
	VideoFrameRefs     []string `json:"video_frame_refs,omitempty"`
	OriginalByteSize   int      `json:"original_byte_size,omitempty"`
	CompressedByteSize int      `json:"compressed_byte_size,omitempty"`
}

// Item is one stored unit of captured media. Original is the untouched
// capture; Data is the compressed representation used for analysis
// payloads. Both are retained for the life of the item: the original is
// never discarded once captured.
type Item struct {
	ID          uuid.UUID `json:"id"`
	Kind        ItemKind  `json:"kind"`
	DisplayName string    `json:"display_name"`
	Data        []byte    `json:"-"`
	Original    []byte    `json:"-"`
	Thumbnail   []byte    `json:"-"`
	Selected    bool      `json:"selected"`
	Metadata    Metadata  `json:"metadata"`
	CreatedAt   time.Time `json:"created_at"`
}

// clone deep-copies an item so snapshots stay isolated from later store
// mutations.
func (i *Item) clone() Item {
	out := *i
	out.Data = append([]byte(nil), i.Data...)
	out.Original = append([]byte(nil), i.Original...)
	out.Thumbnail = append([]byte(nil), i.Thumbnail...)
	if i.Metadata.Barcodes != nil {
		out.Metadata.Barcodes = append([]string(nil), i.Metadata.Barcodes...)
	}
	if i.Metadata.VideoFrameRefs != nil {
		out.Metadata.VideoFrameRefs = append([]string(nil), i.Metadata.VideoFrameRefs...)
	}
	return out
}

// Draft is the input for Store.Add: raw captured bytes plus annotations,
// before compression has run.
type Draft struct {
	Kind        ItemKind
	Data        []byte
	DisplayName string
	Metadata    Metadata
}
