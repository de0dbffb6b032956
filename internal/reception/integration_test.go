package reception

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"regexp"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/ttn-recognizer/internal/document"
	"github.com/zombor/ttn-recognizer/internal/pipeline"
	"github.com/zombor/ttn-recognizer/internal/scanning"
)

// stubScanner answers every vision request with a fixed model reply.
type stubScanner struct {
	answer string
	images int
}

func (s *stubScanner) ScanText(ctx context.Context, text string) (string, error) {
	return "{}", nil
}

func (s *stubScanner) ScanImage(ctx context.Context, data []byte, mimeType string) (string, error) {
	s.images++
	return s.answer, nil
}

func (s *stubScanner) Close() error {
	return nil
}

var _ = Describe("Reception end to end", func() {
	var (
		scanner  *stubScanner
		db       *BoltDB
		ghServer *ghttp.Server
	)

	BeforeEach(func() {
		dir := GinkgoT().TempDir()

		var err error
		db, err = NewBoltDB(filepath.Join(dir, "journal.db"))
		Expect(err).NotTo(HaveOccurred())
		store, err := NewLocalStorage(filepath.Join(dir, "uploads"))
		Expect(err).NotTo(HaveOccurred())

		scanner = &stubScanner{answer: "```json\n" + `{
			"document_number": "ТН-0042",
			"document_date": "2025-04-03",
			"supplier": "ООО \"Вектор\"",
			"items": [
				{"article": "", "name": "Кабель ВВГ 3x2.5", "quantity": "12,5", "unit": "м"},
				{"article": "B-8", "name": "Болт М8", "quantity": 100, "unit": null}
			]
		}` + "\n```"}

		p := pipeline.New(pipeline.Config{}, pipeline.Deps{
			Vision: scanning.NewVisionExtractor(scanner, 0, nil),
		}, nil)
		service := NewService(db, p, document.NewTriage(document.TriageConfig{}), store)

		server := NewServer(service, BasicAuth{})
		ghServer = ghttp.NewServer()
		ghServer.RouteToHandler("POST", regexp.MustCompile(`.*`), server.ServeHTTP)
		ghServer.RouteToHandler("GET", regexp.MustCompile(`.*`), server.ServeHTTP)
	})

	AfterEach(func() {
		ghServer.Close()
		db.Close()
	})

	It("recognizes an uploaded scan and journals the result", func() {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("file", "накладная.png")
		Expect(err).NotTo(HaveOccurred())
		part.Write([]byte("not really a png"))
		Expect(mw.Close()).To(Succeed())

		resp, err := http.Post(ghServer.URL()+"/api/receptions", mw.FormDataContentType(), &body)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var rec Reception
		Expect(json.NewDecoder(resp.Body).Decode(&rec)).To(Succeed())
		Expect(scanner.images).To(Equal(1))

		Expect(rec.Document.Strategy).To(Equal(document.StrategyVisionLLM))
		Expect(*rec.Document.DocumentNumber).To(Equal("ТН-0042"))
		Expect(rec.Document.DocumentDate.String()).To(Equal("2025-04-03"))

		Expect(rec.Items).To(HaveLen(2))
		Expect(rec.Items[0].Quantity).To(Equal(12.5))
		Expect(rec.Items[0].Unit).To(Equal("м"))
		Expect(rec.Items[0].IsSuspicious(document.FieldArticle)).To(BeTrue())
		Expect(rec.Items[1].Unit).To(Equal("шт"))
		Expect(rec.Items[1].IsSuspicious(document.FieldUnit)).To(BeTrue())
		Expect(rec.Items[1].IsSuspicious(document.FieldArticle)).To(BeFalse())

		stored, err := db.GetReception(rec.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.Filename).To(HaveSuffix("_накладная.png"))

		fileResp, err := http.Get(ghServer.URL() + "/api/receptions/" + rec.ID + "/file")
		Expect(err).NotTo(HaveOccurred())
		defer fileResp.Body.Close()
		data, _ := io.ReadAll(fileResp.Body)
		Expect(string(data)).To(Equal("not really a png"))
	})
})
