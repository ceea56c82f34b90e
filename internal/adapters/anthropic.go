package adapters

import (
	"context"
	"net/http"

	"modelmux/internal/core"
)

const (
	anthropicDefaultBaseURL = "https://api.anthropic.com/v1"
	anthropicAPIVersion     = "2023-06-01"

	// The messages API requires max_tokens; used when neither the request
	// nor the model row supplies a limit.
	anthropicDefaultMaxTokens = 4096
)

// anthropicChatClient speaks the Anthropic messages protocol.
type anthropicChatClient struct {
	client          *apiClient
	secret          string
	maxOutputTokens int
}

func newAnthropicChatClient(in BuildInput) *anthropicChatClient {
	c := &anthropicChatClient{secret: in.Secret}
	vendor := VendorAnthropic
	if in.Provider != nil {
		vendor = in.Provider.Code
	}
	if in.Model != nil {
		c.maxOutputTokens = in.Model.MaxOutputTokens
	}
	c.client = newAPIClient(defaultHTTPConfig(vendor, in.BaseURL(anthropicDefaultBaseURL)), c.setHeaders)
	return c
}

func (c *anthropicChatClient) setHeaders(req *http.Request) {
	req.Header.Set("x-api-key", c.secret)
	req.Header.Set("anthropic-version", anthropicAPIVersion)
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicChatBody struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

// chatBody splits system messages out into the dedicated field and fills the
// mandatory max_tokens.
func (c *anthropicChatClient) chatBody(req *core.ChatRequest) *anthropicChatBody {
	body := &anthropicChatBody{
		Model:       req.Model,
		Temperature: req.Temperature,
		Stream:      req.Stream,
	}
	for _, m := range req.Messages {
		if m.Role == core.RoleSystem {
			if body.System != "" {
				body.System += "\n"
			}
			body.System += m.Content
			continue
		}
		body.Messages = append(body.Messages, anthropicMessage{Role: m.Role, Content: m.Content})
	}
	switch {
	case req.MaxTokens != nil && *req.MaxTokens > 0:
		body.MaxTokens = *req.MaxTokens
	case c.maxOutputTokens > 0:
		body.MaxTokens = c.maxOutputTokens
	default:
		body.MaxTokens = anthropicDefaultMaxTokens
	}
	return body
}

type anthropicChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type     string `json:"type"`
		Text     string `json:"text"`
		Thinking string `json:"thinking"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      *struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (c *anthropicChatClient) Chat(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
	var raw anthropicChatResponse
	err := c.client.do(ctx, apiRequest{
		Method:   http.MethodPost,
		Endpoint: "/messages",
		Body:     c.chatBody(req),
	}, &raw)
	if err != nil {
		return nil, err
	}

	resp := &core.ChatResponse{
		ID:           raw.ID,
		Model:        raw.Model,
		FinishReason: raw.StopReason,
	}
	if resp.Model == "" {
		resp.Model = req.Model
	}
	for _, block := range raw.Content {
		switch block.Type {
		case "text":
			resp.Content += block.Text
		case "thinking":
			resp.Reasoning += block.Thinking
		}
	}
	if raw.Usage != nil {
		resp.Usage = &core.Usage{
			InputTokens:  raw.Usage.InputTokens,
			OutputTokens: raw.Usage.OutputTokens,
			TotalTokens:  raw.Usage.InputTokens + raw.Usage.OutputTokens,
		}
	}
	return resp, nil
}

func (c *anthropicChatClient) StreamChat(ctx context.Context, req *core.ChatRequest) (core.ChatStream, error) {
	body, err := c.client.doStream(ctx, apiRequest{
		Method:   http.MethodPost,
		Endpoint: "/messages",
		Body:     c.chatBody(req.WithStreaming()),
	})
	if err != nil {
		return nil, err
	}
	return newSSEStream(body, newAnthropicDecoder()), nil
}
