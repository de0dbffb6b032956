package export_test

import (
	"bytes"

	mapset "github.com/deckarep/golang-set/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"

	"github.com/zombor/ttn-recognizer/internal/document"
	"github.com/zombor/ttn-recognizer/internal/export"
)

var _ = Describe("WriteReview", func() {
	var (
		doc   *document.RecognizedDocument
		items []document.ReviewItem
		f     *excelize.File
	)

	JustBeforeEach(func() {
		var buf bytes.Buffer
		Expect(export.WriteReview(&buf, doc, items)).To(Succeed())

		var err error
		f, err = excelize.OpenReader(&buf)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(f.Close)
	})

	cell := func(ref string) string {
		v, err := f.GetCellValue(export.Sheet, ref)
		Expect(err).NotTo(HaveOccurred())
		return v
	}

	styled := func(ref string) bool {
		id, err := f.GetCellStyle(export.Sheet, ref)
		Expect(err).NotTo(HaveOccurred())
		return id != 0
	}

	When("the document is fully recognized", func() {
		BeforeEach(func() {
			date, _ := document.NewDate(2025, 4, 3)
			doc = &document.RecognizedDocument{
				DocumentNumber: document.Ptr("4711"),
				DocumentDate:   &date,
				Supplier:       document.Ptr(`ООО "Вектор"`),
				Strategy:       document.StrategyVisionLLM,
			}
			items = []document.ReviewItem{
				{Article: "KV-315", Name: "Кабель ВВГ", Quantity: 12, Unit: "м", SuspiciousFields: mapset.NewSet[document.Field]()},
				{Name: "Болты", Quantity: 10, Unit: "шт", SuspiciousFields: mapset.NewSet(document.FieldArticle, document.FieldQuantity)},
			}
		})

		It("writes the header block", func() {
			Expect(cell("B1")).To(Equal("4711"))
			Expect(cell("B2")).To(Equal("2025-04-03"))
			Expect(cell("B3")).To(Equal(`ООО "Вектор"`))
			Expect(cell("B4")).To(Equal("vision_llm"))
		})

		It("writes one row per item in order", func() {
			Expect(cell("A7")).To(Equal("1"))
			Expect(cell("B7")).To(Equal("KV-315"))
			Expect(cell("C7")).To(Equal("Кабель ВВГ"))
			Expect(cell("D7")).To(Equal("12"))
			Expect(cell("E7")).To(Equal("м"))
			Expect(cell("C8")).To(Equal("Болты"))
			Expect(cell("A9")).To(BeEmpty())
		})

		It("highlights only suspicious cells", func() {
			Expect(styled("B8")).To(BeTrue())
			Expect(styled("D8")).To(BeTrue())
			Expect(styled("C8")).To(BeFalse())
			Expect(styled("E8")).To(BeFalse())
			Expect(styled("B7")).To(BeFalse())
		})
	})

	When("nothing was recognized", func() {
		BeforeEach(func() {
			doc = nil
			items = nil
		})

		It("still produces a workbook with an empty table", func() {
			Expect(cell("B1")).To(BeEmpty())
			Expect(cell("B6")).To(Equal("Артикул"))
			Expect(cell("A7")).To(BeEmpty())
		})
	})
})
