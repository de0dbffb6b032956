package scanning

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/zombor/ttn-recognizer/internal/document"
)

type ChatBotHubConfig struct {
	BaseURL    string
	GuestID    string
	SchemaName string // default "ttn/parser"
	BotName    string // default "ttn-parser"
	Model      string // default "gpt-4o-mini"
	// InsecureSkipVerify disables TLS certificate checks for self-hosted hubs.
	InsecureSkipVerify bool
}

// ChatBotHub implements the Scanner interface using the ChatBotHub
// structured generation endpoints.
type ChatBotHub struct {
	cfg    ChatBotHubConfig
	client *http.Client
}

// NewChatBotHub creates a new ChatBotHub Scanner instance
func NewChatBotHub(cfg ChatBotHubConfig) (*ChatBotHub, error) {
	if cfg.BaseURL == "" || cfg.GuestID == "" {
		return nil, fmt.Errorf("%w: chatbothub base url and guest id are required", document.ErrServiceUnconfigured)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.SchemaName == "" {
		cfg.SchemaName = "ttn/parser"
	}
	if cfg.BotName == "" {
		cfg.BotName = "ttn-parser"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	// Deadlines come from the caller's context.
	return &ChatBotHub{cfg: cfg, client: &http.Client{Transport: transport}}, nil
}

type chatBotHubRequest struct {
	SchemaName  string  `json:"schema_name"`
	UserInput   string  `json:"user_input"`
	BotName     string  `json:"bot_name"`
	Temperature float64 `json:"temperature"`
	Model       string  `json:"model"`
}

// ScanText sends document text to the structured text endpoint
func (c *ChatBotHub) ScanText(ctx context.Context, text string) (string, error) {
	return c.generate(ctx, "/guest/llm/generate_structured", text)
}

// ScanImage sends the image inline as a data URI to the structured vision endpoint
func (c *ChatBotHub) ScanImage(ctx context.Context, imageData []byte, mimeType string) (string, error) {
	dataURI := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(imageData)
	return c.generate(ctx, "/guest/llm/generate_structured_vision", dataURI)
}

func (c *ChatBotHub) generate(ctx context.Context, path, input string) (string, error) {
	jsonData, err := json.Marshal(chatBotHubRequest{
		SchemaName:  c.cfg.SchemaName,
		UserInput:   input,
		BotName:     c.cfg.BotName,
		Temperature: 0.1,
		Model:       c.cfg.Model,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Guest-ID", c.cfg.GuestID)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: calling chatbothub: %v", document.ErrServiceRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", document.ErrServiceRequest, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: chatbothub status %d: %s", document.ErrServiceRequest, resp.StatusCode, truncate(string(body), 512))
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("%w: chatbothub returned invalid JSON", document.ErrServiceResponse)
	}

	res := gjson.ParseBytes(body)
	if status := res.Get("status"); status.Exists() && status.String() != "success" {
		return "", fmt.Errorf("%w: chatbothub status %q: %s", document.ErrServiceResponse, status.String(), res.Get("message").String())
	}

	result := res.Get("data.result")
	if !result.Exists() {
		result = res.Get("result")
	}
	if !result.IsObject() {
		return "", fmt.Errorf("%w: chatbothub response has no result object", document.ErrServiceResponse)
	}
	return result.Raw, nil
}

// Close is a no-op for the HTTP client
func (c *ChatBotHub) Close() error {
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
