package scanning

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/ttn-recognizer/internal/document"
)

type mockScanner struct {
	answer   string
	err      error
	block    bool
	text     string
	image    []byte
	mimeType string
	deadline time.Duration
}

func (m *mockScanner) record(ctx context.Context) error {
	if dl, ok := ctx.Deadline(); ok {
		m.deadline = time.Until(dl)
	}
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return m.err
}

func (m *mockScanner) ScanText(ctx context.Context, text string) (string, error) {
	m.text = text
	if err := m.record(ctx); err != nil {
		return "", err
	}
	return m.answer, nil
}

func (m *mockScanner) ScanImage(ctx context.Context, imageData []byte, mimeType string) (string, error) {
	m.image = imageData
	m.mimeType = mimeType
	if err := m.record(ctx); err != nil {
		return "", err
	}
	return m.answer, nil
}

func (m *mockScanner) Close() error {
	return nil
}

var _ = Describe("TextExtractor", func() {
	var (
		scanner   *mockScanner
		extractor *TextExtractor
		doc       *document.RecognizedDocument
	)

	BeforeEach(func() {
		scanner = &mockScanner{answer: `{"document_number":"1","items":[{"name":"Кабель","quantity":2}]}`}
		extractor = NewTextExtractor(scanner, 0, nil)
	})

	JustBeforeEach(func() {
		doc = extractor.Extract(context.Background(), "ТТН 1")
	})

	It("returns the parsed document", func() {
		Expect(doc).NotTo(BeNil())
		Expect(doc.Items).To(HaveLen(1))
		Expect(scanner.text).To(Equal("ТТН 1"))
	})

	It("applies the default text deadline", func() {
		Expect(scanner.deadline).To(BeNumerically("~", 30*time.Second, time.Second))
	})

	When("the service fails", func() {
		BeforeEach(func() {
			scanner.err = document.ErrServiceRequest
		})

		It("returns nil", func() {
			Expect(doc).To(BeNil())
		})
	})

	When("the service answers with garbage", func() {
		BeforeEach(func() {
			scanner.answer = "sorry, I can't help with that"
		})

		It("returns nil", func() {
			Expect(doc).To(BeNil())
		})
	})

	When("the service does not answer in time", func() {
		BeforeEach(func() {
			scanner.block = true
			extractor = NewTextExtractor(scanner, 10*time.Millisecond, nil)
		})

		It("gives up and returns nil", func() {
			Expect(doc).To(BeNil())
		})
	})

	When("no service is configured", func() {
		BeforeEach(func() {
			extractor = NewTextExtractor(nil, 0, nil)
		})

		It("returns nil", func() {
			Expect(doc).To(BeNil())
		})
	})
})

var _ = Describe("VisionExtractor", func() {
	var (
		scanner   *mockScanner
		extractor *VisionExtractor
		path      string
		doc       *document.RecognizedDocument
	)

	BeforeEach(func() {
		dir := GinkgoT().TempDir()
		path = filepath.Join(dir, "scan.jpg")
		Expect(os.WriteFile(path, []byte("jpeg-bytes"), 0644)).To(Succeed())
		scanner = &mockScanner{answer: `{"items":[{"article":"A-1","quantity":3}]}`}
		extractor = NewVisionExtractor(scanner, 0, nil)
	})

	JustBeforeEach(func() {
		doc = extractor.Extract(context.Background(), path)
	})

	It("sends the file with the mime type of its extension", func() {
		Expect(doc).NotTo(BeNil())
		Expect(scanner.mimeType).To(Equal("image/jpeg"))
		Expect(scanner.image).To(Equal([]byte("jpeg-bytes")))
	})

	It("applies the default vision deadline", func() {
		Expect(scanner.deadline).To(BeNumerically("~", 60*time.Second, time.Second))
	})

	When("the file is missing", func() {
		BeforeEach(func() {
			path = filepath.Join(filepath.Dir(path), "missing.png")
		})

		It("returns nil without calling the service", func() {
			Expect(doc).To(BeNil())
			Expect(scanner.image).To(BeNil())
		})
	})

	When("the service fails", func() {
		BeforeEach(func() {
			scanner.err = errors.New("connection refused")
		})

		It("returns nil", func() {
			Expect(doc).To(BeNil())
		})
	})
})

var _ = Describe("New", func() {
	It("builds the named provider", func() {
		s, err := New(context.Background(), Config{Provider: "ollama"})
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(BeAssignableToTypeOf(&Ollama{}))
	})

	It("defaults to openai", func() {
		s, err := New(context.Background(), Config{OpenAIKey: "sk"})
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(BeAssignableToTypeOf(&OpenAI{}))
	})

	It("reports missing credentials as unconfigured", func() {
		_, err := New(context.Background(), Config{Provider: "openai"})
		Expect(errors.Is(err, document.ErrServiceUnconfigured)).To(BeTrue())

		_, err = New(context.Background(), Config{Provider: "gemini"})
		Expect(errors.Is(err, document.ErrServiceUnconfigured)).To(BeTrue())
	})

	It("treats none as unconfigured", func() {
		_, err := New(context.Background(), Config{Provider: "none"})
		Expect(errors.Is(err, document.ErrServiceUnconfigured)).To(BeTrue())
	})

	It("rejects unknown providers", func() {
		_, err := New(context.Background(), Config{Provider: "claude"})
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, document.ErrServiceUnconfigured)).To(BeFalse())
	})
})
