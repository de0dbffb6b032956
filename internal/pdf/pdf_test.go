package pdf_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/ttn-recognizer/internal/document"
	"github.com/zombor/ttn-recognizer/internal/pdf"
)

var _ = Describe("TextLayer", func() {
	var (
		dir   string
		layer *pdf.TextLayer
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		layer = pdf.NewTextLayer(nil)
	})

	It("returns the embedded text", func() {
		path := writePDF(dir, "digital.pdf", "Invoice 12345")

		text, ok := layer.Extract(context.Background(), path)
		Expect(ok).To(BeTrue())
		Expect(text).To(ContainSubstring("Invoice 12345"))
	})

	It("reports failure for a file that is not a PDF", func() {
		path := filepath.Join(dir, "broken.pdf")
		Expect(os.WriteFile(path, []byte("not a pdf at all"), 0644)).To(Succeed())

		text, ok := layer.Extract(context.Background(), path)
		Expect(ok).To(BeFalse())
		Expect(text).To(BeEmpty())
	})

	It("reports failure for a missing file", func() {
		_, ok := layer.Extract(context.Background(), filepath.Join(dir, "missing.pdf"))
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Rasterizer", func() {
	var (
		dir     string
		scratch string
		r       *pdf.Rasterizer
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		scratch = GinkgoT().TempDir()
		r = pdf.NewRasterizer(pdf.RasterConfig{ScratchDir: scratch}, nil)
	})

	Describe("FirstPage", func() {
		It("writes a PNG and removes it on cleanup", func() {
			path := writePDF(dir, "scan.pdf", "x")

			out, cleanup, err := r.FirstPage(context.Background(), path)
			Expect(err).NotTo(HaveOccurred())
			Expect(filepath.Dir(out)).To(Equal(scratch))

			f, err := os.Open(out)
			Expect(err).NotTo(HaveOccurred())
			_, err = png.Decode(f)
			f.Close()
			Expect(err).NotTo(HaveOccurred())

			cleanup()
			_, err = os.Stat(out)
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		It("fails for an unreadable PDF and still returns a cleanup func", func() {
			path := filepath.Join(dir, "broken.pdf")
			Expect(os.WriteFile(path, []byte("garbage"), 0644)).To(Succeed())

			_, cleanup, err := r.FirstPage(context.Background(), path)
			Expect(err).To(HaveOccurred())
			Expect(cleanup).NotTo(BeNil())
			cleanup()

			entries, _ := os.ReadDir(scratch)
			Expect(entries).To(BeEmpty())
		})
	})

	Describe("Pages", func() {
		It("decodes an image file as a single page", func() {
			img := image.NewGray(image.Rect(0, 0, 8, 4))
			img.SetGray(1, 1, color.Gray{Y: 200})
			path := filepath.Join(dir, "scan.png")
			f, err := os.Create(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(png.Encode(f, img)).To(Succeed())
			Expect(f.Close()).To(Succeed())

			pages, err := r.Pages(context.Background(), path)
			Expect(err).NotTo(HaveOccurred())
			Expect(pages).To(HaveLen(1))
			Expect(pages[0].Bounds().Dx()).To(Equal(8))
		})

		It("renders each PDF page", func() {
			path := writePDF(dir, "scan.pdf", "x")

			pages, err := r.Pages(context.Background(), path)
			Expect(err).NotTo(HaveOccurred())
			Expect(pages).To(HaveLen(1))
		})

		It("reports a missing image as unreadable", func() {
			_, err := r.Pages(context.Background(), filepath.Join(dir, "missing.jpg"))
			Expect(errors.Is(err, document.ErrFileUnreadable)).To(BeTrue())
		})
	})
})
