package document

// Provenance tags where a document's fields came from.
type Provenance string

const (
	ProvenanceLLM     Provenance = "llm"
	ProvenancePattern Provenance = "pattern"
)

// ConfidenceProfile holds the confidence assigned to populated fields per provenance.
type ConfidenceProfile struct {
	LLM             float64
	PatternArticle  float64
	PatternName     float64
	PatternQuantity float64
	PatternUnit     float64
}

// DefaultConfidenceProfile returns the stock scores: a language model is
// trusted more than pattern matching, and a name cut from a raw line least of all.
func DefaultConfidenceProfile() ConfidenceProfile {
	return ConfidenceProfile{
		LLM:             0.9,
		PatternArticle:  0.7,
		PatternName:     0.5,
		PatternQuantity: 0.8,
		PatternUnit:     0.9,
	}
}

func (p ConfidenceProfile) score(prov Provenance, f Field) float64 {
	if prov == ProvenanceLLM {
		return p.LLM
	}
	switch f {
	case FieldArticle:
		return p.PatternArticle
	case FieldName:
		return p.PatternName
	case FieldQuantity:
		return p.PatternQuantity
	case FieldUnit:
		return p.PatternUnit
	}
	return 0
}

// Apply rewrites every item's confidence map from scratch: each populated
// field gets the score for prov, unpopulated fields get no entry.
func (p ConfidenceProfile) Apply(doc *RecognizedDocument, prov Provenance) *RecognizedDocument {
	if doc == nil {
		return Empty()
	}
	if doc.Items == nil {
		doc.Items = []RecognizedItem{}
	}
	for i := range doc.Items {
		item := &doc.Items[i]
		conf := make(map[Field]float64, len(ItemFields))
		for _, f := range ItemFields {
			if item.Has(f) {
				conf[f] = p.score(prov, f)
			}
		}
		item.FieldConfidence = conf
	}
	return doc
}
