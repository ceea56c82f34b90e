package adapters

import (
	"bufio"
	"bytes"
	"io"

	"github.com/tidwall/gjson"

	"modelmux/internal/core"
)

// frameDecoder turns one SSE data payload into a stream frame. done reports
// an explicit end-of-stream event (Anthropic's message_stop; OpenAI uses the
// [DONE] sentinel handled by the reader itself).
type frameDecoder func(data []byte) (frame *core.StreamFrame, done bool)

// sseStream reads "data:" lines off a raw SSE body and decodes them into
// frames. It implements core.ChatStream.
type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	decode  frameDecoder
	closed  bool
}

func newSSEStream(body io.ReadCloser, decode frameDecoder) *sseStream {
	scanner := bufio.NewScanner(body)
	// Frames with long content can exceed the default 64KiB token limit.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &sseStream{body: body, scanner: scanner, decode: decode}
}

var (
	dataPrefix   = []byte("data:")
	doneSentinel = []byte("[DONE]")
)

// Recv returns the next decoded frame, io.EOF at end of stream, or the
// transport error on a mid-stream failure. Empty keep-alive frames are
// skipped.
func (s *sseStream) Recv() (*core.StreamFrame, error) {
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if !bytes.HasPrefix(line, dataPrefix) {
			continue
		}
		data := bytes.TrimSpace(line[len(dataPrefix):])
		if len(data) == 0 || bytes.Equal(data, doneSentinel) {
			if bytes.Equal(data, doneSentinel) {
				return nil, io.EOF
			}
			continue
		}
		frame, done := s.decode(data)
		if done {
			return nil, io.EOF
		}
		if frame != nil {
			return frame, nil
		}
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (s *sseStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}

// decodeOpenAIFrame parses an OpenAI-compatible chat.completion.chunk.
// DeepSeek's reasoner models carry the reasoning trace in
// delta.reasoning_content alongside the regular content delta.
func decodeOpenAIFrame(data []byte) (*core.StreamFrame, bool) {
	res := gjson.ParseBytes(data)
	frame := &core.StreamFrame{
		Reasoning:    res.Get("choices.0.delta.reasoning_content").String(),
		Content:      res.Get("choices.0.delta.content").String(),
		FinishReason: res.Get("choices.0.finish_reason").String(),
	}
	if u := res.Get("usage"); u.IsObject() {
		frame.Usage = &core.Usage{
			InputTokens:  int(u.Get("prompt_tokens").Int()),
			OutputTokens: int(u.Get("completion_tokens").Int()),
			TotalTokens:  int(u.Get("total_tokens").Int()),
		}
	}
	if frame.Reasoning == "" && frame.Content == "" && frame.FinishReason == "" && frame.Usage == nil {
		return nil, false
	}
	return frame, false
}

// newAnthropicDecoder parses Anthropic messages-API stream events. Input
// tokens arrive on message_start and output tokens on message_delta, so the
// decoder carries the input count forward and emits one merged usage on the
// final metadata frame.
func newAnthropicDecoder() frameDecoder {
	var inputTokens int
	return func(data []byte) (*core.StreamFrame, bool) {
		res := gjson.ParseBytes(data)
		switch res.Get("type").String() {
		case "message_start":
			inputTokens = int(res.Get("message.usage.input_tokens").Int())
			return nil, false
		case "content_block_delta":
			switch res.Get("delta.type").String() {
			case "text_delta":
				return &core.StreamFrame{Content: res.Get("delta.text").String()}, false
			case "thinking_delta":
				return &core.StreamFrame{Reasoning: res.Get("delta.thinking").String()}, false
			}
			return nil, false
		case "message_delta":
			frame := &core.StreamFrame{
				FinishReason: res.Get("delta.stop_reason").String(),
			}
			if out := res.Get("usage.output_tokens"); out.Exists() {
				outputTokens := int(out.Int())
				frame.Usage = &core.Usage{
					InputTokens:  inputTokens,
					OutputTokens: outputTokens,
					TotalTokens:  inputTokens + outputTokens,
				}
			}
			return frame, false
		case "message_stop":
			return nil, true
		default:
			// ping, content_block_start, content_block_stop
			return nil, false
		}
	}
}
