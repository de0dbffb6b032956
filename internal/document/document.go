// Package document holds the canonical recognition result shared by every
// extraction strategy, plus confidence normalization and review triage.
package document

import (
	"encoding/json"
	"fmt"
	"time"
)

// Field names an item field that carries a confidence score.
type Field string

const (
	FieldArticle  Field = "article"
	FieldName     Field = "name"
	FieldQuantity Field = "quantity"
	FieldUnit     Field = "unit"
)

// ItemFields lists the item fields in display order.
var ItemFields = []Field{FieldArticle, FieldName, FieldQuantity, FieldUnit}

// Strategy identifies which step of the cascade produced a document.
type Strategy string

const (
	StrategyNone        Strategy = ""
	StrategyTextLLM     Strategy = "text_llm"
	StrategyTextPattern Strategy = "text_pattern"
	StrategyVisionLLM   Strategy = "vision_llm"
	StrategyOCRPattern  Strategy = "ocr_pattern"
)

const dateLayout = "2006-01-02"

// Date is a calendar date that serializes as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate returns the date for the given calendar day and whether the day exists.
func NewDate(year, month, day int) (Date, bool) {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return Date{}, false
	}
	return Date{t}, true
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// RecognizedItem is one line item as produced by an extractor. Pointer fields
// are nil when the extractor did not populate them.
type RecognizedItem struct {
	RawText         string            `json:"raw_text"`
	Article         *string           `json:"article,omitempty"`
	Name            *string           `json:"name,omitempty"`
	Quantity        *float64          `json:"quantity,omitempty"`
	Unit            *string           `json:"unit,omitempty"`
	FieldConfidence map[Field]float64 `json:"field_confidence"`
}

// Confidence returns the confidence recorded for f, or 0 when none was recorded.
func (it RecognizedItem) Confidence(f Field) float64 {
	return it.FieldConfidence[f]
}

// Has reports whether the item carries a value for f.
func (it RecognizedItem) Has(f Field) bool {
	switch f {
	case FieldArticle:
		return it.Article != nil
	case FieldName:
		return it.Name != nil
	case FieldQuantity:
		return it.Quantity != nil
	case FieldUnit:
		return it.Unit != nil
	}
	return false
}

// RecognizedDocument is the canonical pipeline output.
type RecognizedDocument struct {
	DocumentNumber *string          `json:"document_number,omitempty"`
	DocumentDate   *Date            `json:"document_date,omitempty"`
	Supplier       *string          `json:"supplier,omitempty"`
	Items          []RecognizedItem `json:"items"`
	Strategy       Strategy         `json:"strategy,omitempty"`
}

// Empty returns a document with no fields and an empty item list.
func Empty() *RecognizedDocument {
	return &RecognizedDocument{Items: []RecognizedItem{}}
}

// HasItems reports whether the document carries at least one item.
func (d *RecognizedDocument) HasItems() bool {
	return d != nil && len(d.Items) > 0
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
