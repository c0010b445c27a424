package analysis

// JobItem is one capture shipped for valuation. Data holds the compressed
// representation; encoding/json base64-encodes it on the wire.
type JobItem struct {
	ID            string   `json:"id"`
	Kind          string   `json:"kind"`
	DisplayName   string   `json:"displayName,omitempty"`
	Data          []byte   `json:"data"`
	DocumentKind  string   `json:"documentKind,omitempty"`
	ExtractedText string   `json:"extractedText,omitempty"`
	Barcodes      []string `json:"barcodes,omitempty"`
}

// Enrichment is the optional seller context block. It is all-or-nothing: a
// partially filled block aborts submission before any network contact.
type Enrichment struct {
	LocationCoordinates string  `json:"locationCoordinates"`
	StoreDescriptor     string  `json:"storeDescriptor"`
	ShelfPrice          float64 `json:"shelfPrice"`
	HandlingTimeHours   int     `json:"handlingTimeHours"`
}

// Complete reports whether every enrichment field is populated.
func (e *Enrichment) Complete() bool {
	if e == nil {
		return false
	}
	return e.LocationCoordinates != "" && e.StoreDescriptor != "" && e.ShelfPrice > 0 && e.HandlingTimeHours > 0
}

// JobRequest is the upstream submission body. AuthToken travels as a header,
// never in the payload.
type JobRequest struct {
	Items         []JobItem   `json:"items"`
	CategoryID    string      `json:"categoryId"`
	SubcategoryID string      `json:"subcategoryId"`
	Enrichment    *Enrichment `json:"enrichment,omitempty"`

	AuthToken string `json:"-"`
}
