package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Addisu87/bank-support-agent/internal/logging"
	"github.com/Addisu87/bank-support-agent/internal/metrics"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

var (
	// ErrUnavailable is returned while the circuit to the chat API is open.
	ErrUnavailable = errors.New("chat service unavailable")
	// ErrTimeout is returned when a completion exceeds the client timeout.
	ErrTimeout = errors.New("chat service timed out")
)

// Message is one entry of an OpenAI-compatible conversation.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDefinition advertises a callable function to the model.
type ToolDefinition struct {
	Type     string       `json:"type"`
	Function FunctionSpec `json:"function"`
}

type FunctionSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type completionRequest struct {
	Model    string           `json:"model"`
	Messages []Message        `json:"messages"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

// Completer produces the next assistant message for a conversation.
type Completer interface {
	Complete(ctx context.Context, messages []Message, tools []ToolDefinition) (*Message, error)
}

type ClientConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration

	// Breaker trips after this many consecutive failures. Defaults to 5.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open. Defaults to 30s.
	OpenTimeout time.Duration
}

// Client talks to an OpenAI-compatible /chat/completions endpoint through a
// circuit breaker.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	cb         *gobreaker.CircuitBreaker
	metrics    metrics.MetricsCollector
	logger     *logging.Logger
}

func NewClient(cfg ClientConfig, collector metrics.MetricsCollector) *Client {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	logger := logging.L().Named("chat")
	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		metrics:    collector,
		logger:     logger,
	}

	maxFailures := cfg.MaxFailures
	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "chat",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			var state metrics.CircuitState
			switch to {
			case gobreaker.StateClosed:
				state = metrics.CircuitClosed
			case gobreaker.StateHalfOpen:
				state = metrics.CircuitHalfOpen
			case gobreaker.StateOpen:
				state = metrics.CircuitOpen
			}
			collector.RecordCircuitState(name, state)
		},
	})

	logger.Info("chat client initialized",
		zap.String("base_url", c.baseURL),
		zap.String("model", c.model),
		zap.Duration("timeout", cfg.Timeout),
	)
	return c
}

func (c *Client) Complete(ctx context.Context, messages []Message, tools []ToolDefinition) (*Message, error) {
	start := time.Now()

	result, err := c.cb.Execute(func() (interface{}, error) {
		return c.do(ctx, completionRequest{Model: c.model, Messages: messages, Tools: tools})
	})
	c.metrics.RecordChatCall(err == nil, time.Since(start))

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.Warn("circuit breaker open - request rejected")
			return nil, ErrUnavailable
		}
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return nil, ErrTimeout
		}
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, ErrTimeout
		}
		c.logger.Error("chat completion failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
		return nil, err
	}
	return result.(*Message), nil
}

func (c *Client) do(ctx context.Context, body completionRequest) (*Message, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("chat api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(out.Choices) == 0 {
		return nil, errors.New("chat api returned no choices")
	}
	return &out.Choices[0].Message, nil
}
