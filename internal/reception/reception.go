package reception

import (
	"time"

	"github.com/zombor/ttn-recognizer/internal/document"
)

// Reception is one uploaded TTN together with what was recognized on it.
type Reception struct {
	ID          string                       `json:"id"`
	Filename    string                       `json:"filename"`
	ContentType string                       `json:"content_type"`
	Document    *document.RecognizedDocument `json:"document"`
	Items       []document.ReviewItem        `json:"items"`
	CreatedAt   time.Time                    `json:"created_at"`
	UpdatedAt   time.Time                    `json:"updated_at"`
}

// NeedsManualEntry reports whether the operator has to key in every item.
func (r *Reception) NeedsManualEntry() bool {
	return len(r.Items) == 0
}
