// Package openrouter implements a streaming client for the OpenRouter
// chat completions API.
package openrouter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/harrison/scadbench/internal/logger"
)

// DefaultBaseURL is the OpenRouter API endpoint.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

const (
	refererHeader = "https://github.com/harrison/scadbench"
	titleHeader   = "scadbench"
)

// Request describes a single chat completion to run against one model.
type Request struct {
	Model        string
	SystemPrompt string
	UserPrompt   string

	// ImageDataURL, when set, attaches a reference image to the user
	// message as a data URL
	ImageDataURL string

	// Params holds sampling parameters merged into the payload verbatim
	Params map[string]any

	// OnActivity is invoked for every stream chunk received, letting the
	// caller drive liveness indicators. May be nil.
	OnActivity func()
}

// Message is one chat message in a completion response.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Reasoning string `json:"reasoning,omitempty"`
}

// Choice is one completion choice.
type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Response is a completed chat completion, reconstructed from the stream.
type Response struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

// Content returns the text of the first choice, or "".
func (r *Response) Content() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// Client talks to the OpenRouter API. The zero value is not usable; create
// one with NewClient.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
	Log        logger.Logger
}

// NewClient returns a client with the given key and per-request timeout.
func NewClient(apiKey string, timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = &logger.NoOpLogger{}
	}
	return &Client{
		BaseURL:    DefaultBaseURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{},
		Timeout:    timeout,
		Log:        log,
	}
}

// streamChunk is the wire shape of one SSE data payload.
type streamChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			Reasoning string `json:"reasoning"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *apiErrorBody `json:"error"`
}

type apiErrorBody struct {
	Message string `json:"message"`
	Code    any    `json:"code"`
}

type apiErrorEnvelope struct {
	Error *apiErrorBody `json:"error"`
}

// errorFromBody maps an in-body API error object to a typed error. A
// content_filter code gets its own kind so callers can report moderation
// distinctly from provider failures.
func errorFromBody(model string, body *apiErrorBody) *Error {
	if code, ok := body.Code.(string); ok && code == "content_filter" {
		return newError(model, KindContentFilter, 0, "response blocked by content filter: %s", body.Message)
	}
	return newError(model, KindAPI, 0, "API error: %s", body.Message)
}

// Stream sends a streaming completion request and reconstructs the full
// response from the delta chunks. Keep-alive comment lines are tolerated and
// malformed chunks are skipped.
func (c *Client) Stream(ctx context.Context, req Request) (*Response, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	httpResp, err := c.do(ctx, req, true)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if err := c.checkStatus(httpResp, req.Model); err != nil {
		return nil, err
	}

	var (
		content      strings.Builder
		reasoning    strings.Builder
		finishReason string
		respID       string
		respModel    = req.Model
		loggedAlive  bool
	)

	scanner := bufio.NewScanner(httpResp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			// SSE comment used as a keep-alive while the model thinks
			if !loggedAlive {
				c.Log.LogDebug(fmt.Sprintf("[%s] connection alive, waiting for first token", req.Model))
				loggedAlive = true
			}
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			c.Log.LogDebug(fmt.Sprintf("[%s] skipping malformed stream chunk: %v", req.Model, err))
			continue
		}

		if chunk.Error != nil {
			return nil, errorFromBody(req.Model, chunk.Error)
		}

		if chunk.ID != "" {
			respID = chunk.ID
		}
		if chunk.Model != "" {
			respModel = chunk.Model
		}
		if len(chunk.Choices) > 0 {
			delta := chunk.Choices[0].Delta
			// Finish-reason-only chunks are not activity
			if req.OnActivity != nil && (delta.Content != "" || delta.Reasoning != "") {
				req.OnActivity()
			}
			content.WriteString(delta.Content)
			reasoning.WriteString(delta.Reasoning)
			if fr := chunk.Choices[0].FinishReason; fr != "" {
				finishReason = fr
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, c.wrapTransportError(ctx, req.Model, err)
	}

	if finishReason == "content_filter" {
		return nil, newError(req.Model, KindContentFilter, 0, "response blocked by content filter")
	}
	if content.Len() == 0 {
		return nil, newError(req.Model, KindAPI, 0, "stream ended with no content")
	}

	return &Response{
		ID:    respID,
		Model: respModel,
		Choices: []Choice{{
			Message: Message{
				Role:      "assistant",
				Content:   content.String(),
				Reasoning: reasoning.String(),
			},
			FinishReason: finishReason,
		}},
	}, nil
}

// Send runs a non-streaming completion request.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	httpResp, err := c.do(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if err := c.checkStatus(httpResp, req.Model); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, c.wrapTransportError(ctx, req.Model, err)
	}

	// OpenRouter can return HTTP 200 with an error object in the body
	var envelope apiErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		return nil, errorFromBody(req.Model, envelope.Error)
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, newError(req.Model, KindAPI, 0, "failed to decode response: %v", err)
	}
	if len(resp.Choices) == 0 {
		return nil, newError(req.Model, KindAPI, 0, "response contained no choices")
	}
	if resp.Choices[0].FinishReason == "content_filter" {
		return nil, newError(req.Model, KindContentFilter, 0, "response blocked by content filter")
	}
	if resp.Choices[0].Message.Content == "" {
		return nil, newError(req.Model, KindAPI, 0, "response contained no content")
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, req Request, stream bool) (*http.Response, error) {
	payload, err := json.Marshal(c.buildPayload(req, stream))
	if err != nil {
		return nil, newError(req.Model, KindAPI, 0, "failed to encode request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, newError(req.Model, KindAPI, 0, "failed to build request: %v", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("HTTP-Referer", refererHeader)
	httpReq.Header.Set("X-Title", titleHeader)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, c.wrapTransportError(ctx, req.Model, err)
	}
	return resp, nil
}

func (c *Client) buildPayload(req Request, stream bool) map[string]any {
	var userContent any = req.UserPrompt
	if req.ImageDataURL != "" {
		userContent = []map[string]any{
			{"type": "text", "text": req.UserPrompt},
			{"type": "image_url", "image_url": map[string]any{"url": req.ImageDataURL}},
		}
	}

	payload := map[string]any{
		"model": req.Model,
		"messages": []map[string]any{
			{"role": "system", "content": req.SystemPrompt},
			{"role": "user", "content": userContent},
		},
		"stream": stream,
	}
	for k, v := range req.Params {
		payload[k] = v
	}
	return payload
}

func (c *Client) checkStatus(resp *http.Response, model string) error {
	if resp.StatusCode < 400 {
		return nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	message := extractErrorMessage(body)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return newError(model, KindAuth, resp.StatusCode, "authentication failed, check OPENROUTER_API_KEY")
	case http.StatusTooManyRequests:
		return newError(model, KindRateLimit, resp.StatusCode, "rate limited: %s", message)
	case http.StatusNotFound:
		return newError(model, KindModelNotFound, resp.StatusCode, "model not found")
	default:
		return newError(model, KindAPI, resp.StatusCode, "API error (HTTP %d): %s", resp.StatusCode, message)
	}
}

func extractErrorMessage(body []byte) string {
	var envelope apiErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "no error detail"
	}
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

func (c *Client) wrapTransportError(ctx context.Context, model string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return newError(model, KindTimeout, 0, "request timed out after %s", c.Timeout)
	}
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return newError(model, KindAPI, 0, "request canceled")
	}
	return newError(model, KindAPI, 0, "request failed: %v", err)
}
