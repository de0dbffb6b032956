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

var _ = Describe("ChatBotHub", func() {
	var (
		server  *ghttp.Server
		scanner *ChatBotHub
		answer  string
		err     error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		var newErr error
		scanner, newErr = NewChatBotHub(ChatBotHubConfig{BaseURL: server.URL() + "/", GuestID: "guest-1"})
		Expect(newErr).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("ScanText", func() {
		JustBeforeEach(func() {
			answer, err = scanner.ScanText(context.Background(), "ТТН №5")
		})

		When("the hub succeeds", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodPost, "/guest/llm/generate_structured"),
					ghttp.VerifyHeaderKV("X-Guest-ID", "guest-1"),
					ghttp.VerifyJSON(`{
						"schema_name": "ttn/parser",
						"user_input": "ТТН №5",
						"bot_name": "ttn-parser",
						"temperature": 0.1,
						"model": "gpt-4o-mini"
					}`),
					ghttp.RespondWith(http.StatusOK, `{"status":"success","data":{"result":{"document_number":"5","items":[]}}}`),
				))
			})

			It("returns the result object", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(answer).To(MatchJSON(`{"document_number":"5","items":[]}`))
			})
		})

		When("the result sits at the top level", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWith(http.StatusOK, `{"status":"success","result":{"supplier":"АО Вектор"}}`))
			})

			It("returns it", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(answer).To(MatchJSON(`{"supplier":"АО Вектор"}`))
			})
		})

		When("the hub reports an error status", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWith(http.StatusOK, `{"status":"error","message":"schema not found"}`))
			})

			It("returns a response error", func() {
				Expect(errors.Is(err, document.ErrServiceResponse)).To(BeTrue())
			})
		})

		When("the hub answers with a server error", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWith(http.StatusBadGateway, "upstream down"))
			})

			It("returns a request error", func() {
				Expect(errors.Is(err, document.ErrServiceRequest)).To(BeTrue())
			})
		})

		When("the hub answers with something other than JSON", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWith(http.StatusOK, "<html>"))
			})

			It("returns a response error", func() {
				Expect(errors.Is(err, document.ErrServiceResponse)).To(BeTrue())
			})
		})
	})

	Describe("ScanImage", func() {
		var userInput string

		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/guest/llm/generate_structured_vision"),
				func(w http.ResponseWriter, r *http.Request) {
					body, _ := io.ReadAll(r.Body)
					var req chatBotHubRequest
					Expect(json.Unmarshal(body, &req)).To(Succeed())
					userInput = req.UserInput
				},
				ghttp.RespondWith(http.StatusOK, `{"status":"success","data":{"result":{"items":[]}}}`),
			))
		})

		It("sends the image as a data URI", func() {
			_, err := scanner.ScanImage(context.Background(), []byte("png-bytes"), "image/png")
			Expect(err).NotTo(HaveOccurred())
			Expect(userInput).To(Equal("data:image/png;base64,cG5nLWJ5dGVz"))
		})
	})

	It("requires a base url and guest id", func() {
		_, err := NewChatBotHub(ChatBotHubConfig{BaseURL: "http://hub"})
		Expect(errors.Is(err, document.ErrServiceUnconfigured)).To(BeTrue())
	})
})
