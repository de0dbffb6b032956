package scanning

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/ttn-recognizer/internal/document"
)

func chatCompletion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	})
	return string(b)
}

var _ = Describe("OpenAI", func() {
	var (
		server  *ghttp.Server
		scanner *OpenAI
		body    map[string]any
	)

	captureBody := func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		Expect(json.Unmarshal(raw, &body)).To(Succeed())
	}

	BeforeEach(func() {
		server = ghttp.NewServer()
		var err error
		scanner, err = NewOpenAI("sk-test", server.URL()+"/v1", "")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("ScanText", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/v1/chat/completions"),
				ghttp.VerifyHeaderKV("Authorization", "Bearer sk-test"),
				captureBody,
				ghttp.RespondWith(http.StatusOK, chatCompletion(`{"document_number":"12"}`)),
			))
		})

		It("returns the model answer", func() {
			answer, err := scanner.ScanText(context.Background(), "ТТН 12")
			Expect(err).NotTo(HaveOccurred())
			Expect(answer).To(Equal(`{"document_number":"12"}`))
		})

		It("asks for a JSON object at low temperature", func() {
			_, err := scanner.ScanText(context.Background(), "ТТН 12")
			Expect(err).NotTo(HaveOccurred())
			Expect(body["model"]).To(Equal("gpt-4o-mini"))
			Expect(body["temperature"]).To(BeNumerically("~", 0.1, 1e-6))
			Expect(body["response_format"]).To(HaveKeyWithValue("type", "json_object"))

			messages := body["messages"].([]any)
			Expect(messages).To(HaveLen(2))
			Expect(messages[1].(map[string]any)["content"]).To(HaveSuffix("ТТН 12"))
		})
	})

	Describe("ScanImage", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/v1/chat/completions"),
				captureBody,
				ghttp.RespondWith(http.StatusOK, chatCompletion(`{"items":[]}`)),
			))
		})

		It("sends the image inline and caps the answer length", func() {
			_, err := scanner.ScanImage(context.Background(), []byte("jpeg"), "image/jpeg")
			Expect(err).NotTo(HaveOccurred())
			Expect(body["max_tokens"]).To(BeNumerically("==", 2000))

			messages := body["messages"].([]any)
			parts := messages[1].(map[string]any)["content"].([]any)
			imagePart := parts[1].(map[string]any)
			Expect(imagePart["type"]).To(Equal("image_url"))
			Expect(imagePart["image_url"]).To(HaveKeyWithValue("url", "data:image/jpeg;base64,anBlZw=="))
		})
	})

	When("the API fails", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError,
				`{"error":{"message":"boom","type":"server_error"}}`))
		})

		It("returns a request error", func() {
			_, err := scanner.ScanText(context.Background(), "x")
			Expect(errors.Is(err, document.ErrServiceRequest)).To(BeTrue())
		})
	})

	When("the API returns no choices", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusOK, `{"id":"x","choices":[]}`))
		})

		It("returns a response error", func() {
			_, err := scanner.ScanText(context.Background(), "x")
			Expect(errors.Is(err, document.ErrServiceResponse)).To(BeTrue())
		})
	})

	It("requires an api key", func() {
		_, err := NewOpenAI("", "", "")
		Expect(errors.Is(err, document.ErrServiceUnconfigured)).To(BeTrue())
	})
})
