package adapters

import (
	"context"
	"net/http"

	"modelmux/internal/core"
)

const (
	openaiDefaultBaseURL = "https://api.openai.com/v1"
	// DeepSeek's beta host accepts assistant messages flagged with
	// "prefix": true for continue-from-prefix generation.
	deepseekDefaultBaseURL = "https://api.deepseek.com/beta"
)

// openaiChatClient speaks the OpenAI chat-completions protocol. It serves the
// openai and deepseek vendors and any openai-compatible third party.
type openaiChatClient struct {
	client *apiClient
	secret string
}

func newOpenAIChatClient(in BuildInput, familyDefault string) *openaiChatClient {
	c := &openaiChatClient{secret: in.Secret}
	vendor := VendorOpenAI
	if in.Provider != nil {
		vendor = in.Provider.Code
	}
	c.client = newAPIClient(defaultHTTPConfig(vendor, in.BaseURL(familyDefault)), c.setHeaders)
	return c
}

func (c *openaiChatClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.secret)
}

// streamOptions asks OpenAI-compatible vendors to attach usage to the final
// chunk of a streaming response.
type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type openaiChatBody struct {
	Model         string         `json:"model"`
	Messages      []core.Message `json:"messages"`
	Temperature   *float64       `json:"temperature,omitempty"`
	MaxTokens     *int           `json:"max_tokens,omitempty"`
	Stream        bool           `json:"stream,omitempty"`
	StreamOptions *streamOptions `json:"stream_options,omitempty"`
}

func chatBody(req *core.ChatRequest) *openaiChatBody {
	body := &openaiChatBody{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      req.Stream,
	}
	if req.Stream {
		body.StreamOptions = &streamOptions{IncludeUsage: true}
	}
	return body
}

type openaiChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (c *openaiChatClient) Chat(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
	var raw openaiChatResponse
	err := c.client.do(ctx, apiRequest{
		Method:   http.MethodPost,
		Endpoint: "/chat/completions",
		Body:     chatBody(req),
	}, &raw)
	if err != nil {
		return nil, err
	}

	resp := &core.ChatResponse{ID: raw.ID, Model: raw.Model}
	if resp.Model == "" {
		resp.Model = req.Model
	}
	if len(raw.Choices) > 0 {
		resp.Content = raw.Choices[0].Message.Content
		resp.Reasoning = raw.Choices[0].Message.ReasoningContent
		resp.FinishReason = raw.Choices[0].FinishReason
	}
	if raw.Usage != nil {
		resp.Usage = &core.Usage{
			InputTokens:  raw.Usage.PromptTokens,
			OutputTokens: raw.Usage.CompletionTokens,
			TotalTokens:  raw.Usage.TotalTokens,
		}
	}
	return resp, nil
}

func (c *openaiChatClient) StreamChat(ctx context.Context, req *core.ChatRequest) (core.ChatStream, error) {
	body, err := c.client.doStream(ctx, apiRequest{
		Method:   http.MethodPost,
		Endpoint: "/chat/completions",
		Body:     chatBody(req.WithStreaming()),
	})
	if err != nil {
		return nil, err
	}
	return newSSEStream(body, decodeOpenAIFrame), nil
}

// openaiEmbeddingClient speaks the OpenAI embeddings protocol.
type openaiEmbeddingClient struct {
	client *apiClient
	secret string
}

func newOpenAIEmbeddingClient(in BuildInput) *openaiEmbeddingClient {
	c := &openaiEmbeddingClient{secret: in.Secret}
	vendor := VendorOpenAI
	if in.Provider != nil {
		vendor = in.Provider.Code
	}
	c.client = newAPIClient(defaultHTTPConfig(vendor, in.BaseURL(openaiDefaultBaseURL)), c.setHeaders)
	return c
}

func (c *openaiEmbeddingClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.secret)
}

func (c *openaiEmbeddingClient) Embed(ctx context.Context, req *core.EmbeddingRequest) (*core.EmbeddingResponse, error) {
	var raw struct {
		Model string `json:"model"`
		Data  []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
		Usage *struct {
			PromptTokens int `json:"prompt_tokens"`
			TotalTokens  int `json:"total_tokens"`
		} `json:"usage"`
	}
	err := c.client.do(ctx, apiRequest{
		Method:   http.MethodPost,
		Endpoint: "/embeddings",
		Body: map[string]any{
			"model": req.Model,
			"input": req.Input,
		},
	}, &raw)
	if err != nil {
		return nil, err
	}

	resp := &core.EmbeddingResponse{Model: raw.Model}
	if resp.Model == "" {
		resp.Model = req.Model
	}
	for _, d := range raw.Data {
		resp.Embeddings = append(resp.Embeddings, d.Embedding)
	}
	if raw.Usage != nil {
		resp.Usage = &core.Usage{
			InputTokens: raw.Usage.PromptTokens,
			TotalTokens: raw.Usage.TotalTokens,
		}
	}
	return resp, nil
}
