// Package export writes recognized TTNs to review spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/zombor/ttn-recognizer/internal/document"
)

// Sheet is the name of the worksheet WriteReview produces.
const Sheet = "Review"

// HeaderRow is the row holding the item table's column titles.
const HeaderRow = 6

// fieldColumns maps item fields to their column in the item table.
var fieldColumns = map[document.Field]int{
	document.FieldArticle:  2,
	document.FieldName:     3,
	document.FieldQuantity: 4,
	document.FieldUnit:     5,
}

// WriteReview writes doc's header and the triaged items as an xlsx workbook.
// Cells of suspicious fields are highlighted so the operator checks them first.
func WriteReview(w io.Writer, doc *document.RecognizedDocument, items []document.ReviewItem) error {
	if doc == nil {
		doc = document.Empty()
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), Sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	flagged, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#FFC7CE"}},
	})
	if err != nil {
		return fmt.Errorf("creating highlight style: %w", err)
	}

	set := func(col, row int, v any) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(Sheet, cell, v)
	}

	header := [][2]any{
		{"Номер документа", deref(doc.DocumentNumber)},
		{"Дата", dateString(doc.DocumentDate)},
		{"Поставщик", deref(doc.Supplier)},
		{"Способ распознавания", string(doc.Strategy)},
	}
	for i, kv := range header {
		if err := set(1, i+1, kv[0]); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
		if err := set(2, i+1, kv[1]); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	if err := f.SetCellStyle(Sheet, "A1", fmt.Sprintf("A%d", len(header)), bold); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	titles := []string{"№", "Артикул", "Наименование", "Количество", "Ед. изм."}
	for i, t := range titles {
		if err := set(i+1, HeaderRow, t); err != nil {
			return fmt.Errorf("writing table header: %w", err)
		}
	}
	if err := f.SetCellStyle(Sheet, fmt.Sprintf("A%d", HeaderRow), fmt.Sprintf("E%d", HeaderRow), bold); err != nil {
		return fmt.Errorf("styling table header: %w", err)
	}

	for i, item := range items {
		row := HeaderRow + 1 + i
		values := []any{i + 1, item.Article, item.Name, item.Quantity, item.Unit}
		for col, v := range values {
			if err := set(col+1, row, v); err != nil {
				return fmt.Errorf("writing item %d: %w", i+1, err)
			}
		}
		for _, field := range document.ItemFields {
			if !item.IsSuspicious(field) {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(fieldColumns[field], row)
			if err := f.SetCellStyle(Sheet, cell, cell, flagged); err != nil {
				return fmt.Errorf("highlighting item %d: %w", i+1, err)
			}
		}
	}

	_ = f.SetColWidth(Sheet, "A", "A", 24)
	_ = f.SetColWidth(Sheet, "B", "B", 18)
	_ = f.SetColWidth(Sheet, "C", "C", 48)
	_ = f.SetColWidth(Sheet, "D", "E", 12)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func dateString(d *document.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}
