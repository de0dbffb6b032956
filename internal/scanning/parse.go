package scanning

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"github.com/zombor/ttn-recognizer/internal/document"
)

// resultSchema only checks structure. Every field is optional so that
// partially filled answers are still usable.
const resultSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "document_number": {"type": ["string", "number", "null"]},
    "ttn_number": {"type": ["string", "number", "null"]},
    "document_date": {"type": ["string", "null"]},
    "ttn_date": {"type": ["string", "null"]},
    "supplier": {"type": ["string", "null"]},
    "items": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "properties": {
          "article": {"type": ["string", "number", "null"]},
          "name": {"type": ["string", "null"]},
          "quantity": {"type": ["string", "number", "null"]},
          "unit": {"type": ["string", "null"]}
        }
      }
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString("ttn-result.json", resultSchema)

var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"2006/01/02",
	"02/01/2006",
}

// extractJSONObject strips markdown fences and any chatter around the first
// JSON object in a model answer.
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return "", fmt.Errorf("%w: no JSON object found in response", document.ErrServiceResponse)
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx < startIdx {
		return "", fmt.Errorf("%w: invalid JSON object in response", document.ErrServiceResponse)
	}
	return text[startIdx : endIdx+1], nil
}

// parseDocument turns a service answer into a RecognizedDocument. Missing or
// empty keys stay absent; a malformed date is dropped with a warning.
func parseDocument(text string, logger *slog.Logger) (*document.RecognizedDocument, error) {
	raw, err := extractJSONObject(text)
	if err != nil {
		return nil, err
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("%w: unmarshaling json: %v", document.ErrServiceResponse, err)
	}
	if err := compiledSchema.Validate(v); err != nil {
		return nil, fmt.Errorf("%w: %v", document.ErrServiceResponse, err)
	}

	res := gjson.Parse(raw)
	doc := document.Empty()

	if s := firstString(res, "document_number", "ttn_number"); s != "" {
		doc.DocumentNumber = &s
	}
	if s := firstString(res, "supplier"); s != "" {
		doc.Supplier = &s
	}
	if s := firstString(res, "document_date", "ttn_date"); s != "" {
		if d, ok := parseDate(s); ok {
			doc.DocumentDate = &d
		} else {
			logger.Warn("discarding unparseable document date", "date", s)
		}
	}

	// ForEach visits a scalar as a single element, so a null list must be
	// skipped explicitly.
	if items := res.Get("items"); items.IsArray() {
		items.ForEach(func(_, item gjson.Result) bool {
			doc.Items = append(doc.Items, parseItem(item))
			return true
		})
	}

	return doc, nil
}

func parseItem(item gjson.Result) document.RecognizedItem {
	it := document.RecognizedItem{RawText: item.Raw}
	if s := firstString(item, "article"); s != "" {
		it.Article = &s
	}
	if s := firstString(item, "name"); s != "" {
		it.Name = &s
	}
	if s := firstString(item, "unit"); s != "" {
		it.Unit = &s
	}
	if q, ok := parseQuantity(item.Get("quantity")); ok {
		it.Quantity = &q
	}
	return it
}

// firstString returns the first non-empty value among keys, trimmed.
func firstString(res gjson.Result, keys ...string) string {
	for _, k := range keys {
		v := res.Get(k)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		if s := strings.TrimSpace(v.String()); s != "" {
			return s
		}
	}
	return ""
}

func parseQuantity(v gjson.Result) (float64, bool) {
	switch v.Type {
	case gjson.Number:
		return v.Float(), true
	case gjson.String:
		s := strings.ReplaceAll(strings.TrimSpace(v.Str), " ", "")
		s = strings.Replace(s, ",", ".", 1)
		q, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return q, true
	}
	return 0, false
}

func parseDate(s string) (document.Date, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return document.Date{Time: t}, true
		}
	}
	return document.Date{}, false
}
