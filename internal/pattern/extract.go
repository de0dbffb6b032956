// Package pattern pulls TTN header fields and item lines out of plain text
// with fixed regular expressions. It is the last resort of the cascade and
// never fails: the worst outcome is a document with no items.
package pattern

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/zombor/ttn-recognizer/internal/document"
)

const (
	minLineRunes = 5
	maxNameRunes = 100
	minNameRunes = 5
)

var (
	numberRe = regexp.MustCompile(`(?i)(?:ТТН|накладная|товарн[\p{L}\p{N}_]*\s*накладн[\p{L}\p{N}_]*)[^\d]*[№#]?\s*(\d[\d\-/]+)`)
	dateRe   = regexp.MustCompile(`(\d{2})[./](\d{2})[./](\d{2,4})`)

	supplierRe         = regexp.MustCompile(`(?i)(?:поставщик|грузоотправитель|от(?:правитель)?)[:\s]+([А-Яа-яЁё\s"\-]+(?:ООО|ИП|АО|ЗАО)?[А-Яа-яЁё\s"\-]*)`)
	supplierFallbackRe = regexp.MustCompile(`((?:ООО|ИП|АО|ЗАО)\s+[«"][^»"]+[»"])`)

	articleRe  = regexp.MustCompile(`(?i)(?:арт(?:икул)?\.?|art\.?)[:\s]*([A-Za-zА-Яа-я0-9\-]+)`)
	quantityRe = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(шт|кг|м|л|уп|ед)?\.?`)
)

// Extract parses a TTN out of text. Items carry no confidence scores; those
// are assigned by the caller.
func Extract(text string) *document.RecognizedDocument {
	doc := document.Empty()

	if m := numberRe.FindStringSubmatch(text); m != nil {
		doc.DocumentNumber = document.Ptr(strings.TrimSpace(m[1]))
	}
	if d, ok := extractDate(text); ok {
		doc.DocumentDate = &d
	}
	if s := extractSupplier(text); s != "" {
		doc.Supplier = &s
	}
	doc.Items = extractItems(text)

	return doc
}

// extractDate reads the first DD.MM.YY[YY] occurrence. An impossible day
// yields no date; later occurrences are not tried.
func extractDate(text string) (document.Date, bool) {
	m := dateRe.FindStringSubmatch(text)
	if m == nil {
		return document.Date{}, false
	}
	year := m[3]
	if len(year) == 2 {
		year = "20" + year
	}
	d, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	y, _ := strconv.Atoi(year)
	return document.NewDate(y, mo, d)
}

func extractSupplier(text string) string {
	if m := supplierRe.FindStringSubmatch(text); m != nil {
		if s := strings.TrimSpace(m[1]); s != "" {
			return s
		}
	}
	if m := supplierFallbackRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func extractItems(text string) []document.RecognizedItem {
	items := []document.RecognizedItem{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) < minLineRunes || IsNoise(line) {
			continue
		}

		item := document.RecognizedItem{RawText: line}
		if m := articleRe.FindStringSubmatch(line); m != nil {
			item.Article = document.Ptr(strings.TrimSpace(m[1]))
		}
		if m := quantityRe.FindStringSubmatch(line); m != nil {
			if q, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64); err == nil {
				item.Quantity = &q
			}
			if m[2] != "" {
				item.Unit = document.Ptr(m[2])
			}
		}
		if item.Article == nil && item.Quantity == nil {
			continue
		}

		item.Name = document.Ptr(truncate(line, maxNameRunes))
		if isValidItem(item) {
			items = append(items, item)
		}
	}
	return items
}

// isValidItem requires at least two of: an article, a name longer than five
// characters, a positive quantity.
func isValidItem(item document.RecognizedItem) bool {
	n := 0
	if item.Article != nil && *item.Article != "" {
		n++
	}
	if item.Name != nil && utf8.RuneCountInString(*item.Name) > minNameRunes {
		n++
	}
	if item.Quantity != nil && *item.Quantity > 0 {
		n++
	}
	return n >= 2
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
