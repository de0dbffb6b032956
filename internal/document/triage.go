package document

import (
	"encoding/json"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

const nameFallbackRunes = 100

// ReviewItem is a triaged item ready for an operator to confirm or correct.
type ReviewItem struct {
	Article          string
	Name             string
	Quantity         float64
	Unit             string
	SuspiciousFields mapset.Set[Field]
}

// IsSuspicious reports whether f was flagged for review.
func (r ReviewItem) IsSuspicious(f Field) bool {
	return r.SuspiciousFields != nil && r.SuspiciousFields.Contains(f)
}

type reviewItemJSON struct {
	Article          string  `json:"article"`
	Name             string  `json:"name"`
	Quantity         float64 `json:"quantity"`
	Unit             string  `json:"unit"`
	SuspiciousFields []Field `json:"suspicious_fields"`
}

func (r ReviewItem) MarshalJSON() ([]byte, error) {
	fields := []Field{}
	if r.SuspiciousFields != nil {
		fields = r.SuspiciousFields.ToSlice()
		slices.Sort(fields)
	}
	return json.Marshal(reviewItemJSON{
		Article:          r.Article,
		Name:             r.Name,
		Quantity:         r.Quantity,
		Unit:             r.Unit,
		SuspiciousFields: fields,
	})
}

func (r *ReviewItem) UnmarshalJSON(b []byte) error {
	var v reviewItemJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*r = ReviewItem{
		Article:          v.Article,
		Name:             v.Name,
		Quantity:         v.Quantity,
		Unit:             v.Unit,
		SuspiciousFields: mapset.NewSet(v.SuspiciousFields...),
	}
	return nil
}

// TriageConfig configures review triage.
type TriageConfig struct {
	// Threshold below which a field is suspicious. Defaults to 0.5.
	Threshold float64
	// DefaultUnit fills in items without a unit. Defaults to "шт".
	DefaultUnit string
}

// Triage turns recognized items into review items.
type Triage struct {
	threshold   float64
	defaultUnit string
}

// NewTriage creates a Triage, filling unset config values with defaults.
func NewTriage(cfg TriageConfig) *Triage {
	if cfg.Threshold == 0 {
		cfg.Threshold = 0.5
	}
	if cfg.DefaultUnit == "" {
		cfg.DefaultUnit = "шт"
	}
	return &Triage{threshold: cfg.Threshold, defaultUnit: cfg.DefaultUnit}
}

// Review converts items in order. A field is suspicious when its confidence
// is strictly below the threshold; missing confidences count as 0.
func (t *Triage) Review(items []RecognizedItem) []ReviewItem {
	out := make([]ReviewItem, 0, len(items))
	for _, item := range items {
		r := ReviewItem{
			Unit:             t.defaultUnit,
			SuspiciousFields: mapset.NewSet[Field](),
		}
		if item.Article != nil {
			r.Article = *item.Article
		}
		if item.Name != nil {
			r.Name = *item.Name
		} else {
			r.Name = truncateRunes(item.RawText, nameFallbackRunes)
		}
		if item.Quantity != nil {
			r.Quantity = *item.Quantity
		}
		if item.Unit != nil && *item.Unit != "" {
			r.Unit = *item.Unit
		}
		for _, f := range ItemFields {
			if item.Confidence(f) < t.threshold {
				r.SuspiciousFields.Add(f)
			}
		}
		out = append(out, r)
	}
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
