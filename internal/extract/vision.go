package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	appLog "github.com/hadronomy/scheduler/internal/log"
	"github.com/hadronomy/scheduler/internal/model"
)

// schedulePrompt instructs the model to emit only the schedule JSON
// shape the core consumes. Kept deliberately literal: the decoder, not
// the prompt, is the contract.
const schedulePrompt = `Extract the timetable from this image into JSON with this exact shape:
{"timeZone":"Area/Location","termStart":"YYYY-MM-DD","termEnd":"YYYY-MM-DD",
"series":{"slug":{"title":"...","variants":["..."]}},
"items":[{"type":"single","start":"YYYY-MM-DDTHH:MM:SS","end":"YYYY-MM-DDTHH:MM:SS"} or
{"type":"recurring","rule":{"kind":"weekly","byDays":["MO","WE"]},"startTime":"HH:MM:SS","endTime":"HH:MM:SS"}]}
Weekday codes are MO TU WE TH FR SA SU. Respond with the JSON document only.`

// VisionExtractor posts a document image to an OpenAI-compatible
// chat-completions endpoint and decodes the returned schedule JSON.
type VisionExtractor struct {
	endpoint string
	model    string
	apiKey   string
	client   *http.Client
}

// NewVisionExtractor builds a vision extractor for the given endpoint
// and model. apiKey may be empty for unauthenticated local endpoints.
func NewVisionExtractor(endpoint, modelName, apiKey string) *VisionExtractor {
	return &VisionExtractor{
		endpoint: endpoint,
		model:    modelName,
		apiKey:   apiKey,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Extract sends the document to the model and parses the reply as a
// schedule document.
func (v *VisionExtractor) Extract(ctx context.Context, doc []byte, mimeType string) (*model.Schedule, error) {
	if v.endpoint == "" {
		return nil, errors.New("extract: vision endpoint not configured")
	}
	if len(doc) == 0 {
		return nil, errors.New("extract: empty document")
	}
	if mimeType == "" {
		mimeType = "image/png"
	}

	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(doc)
	reqBody := chatRequest{
		Model:          v.model,
		ResponseFormat: &respFormat{Type: "json_object"},
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: schedulePrompt},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
			},
		}},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("extract: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if v.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+v.apiKey)
	}

	appLog.Info("extract: vision request start", "model", v.model, "doc_bytes", len(doc))

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extract: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("extract: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extract: endpoint returned %s: %s", resp.Status, truncate(string(body), 200))
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return nil, fmt.Errorf("extract: decode response: %w", err)
	}
	if chat.Error != nil {
		return nil, fmt.Errorf("extract: endpoint error: %s", chat.Error.Message)
	}
	if len(chat.Choices) == 0 {
		return nil, errors.New("extract: response has no choices")
	}

	content := stripFences(chat.Choices[0].Message.Content)
	sched, err := model.ParseSchedule([]byte(content))
	if err != nil {
		appLog.Error("extract: returned document rejected", err)
		return nil, err
	}

	appLog.Info("extract: vision request done", "items", len(sched.Items), "series", len(sched.Series))
	return sched, nil
}

// stripFences removes a markdown code fence if the model wrapped its
// JSON in one despite the response_format hint.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
