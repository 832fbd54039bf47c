// Package agent runs the customer support chat: an OpenAI-compatible model
// that answers questions by calling banking tools on the customer's behalf.
package agent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Addisu87/bank-support-agent/internal/apperrors"
	"github.com/Addisu87/bank-support-agent/internal/logging"
	"github.com/Addisu87/bank-support-agent/internal/metrics"
	"github.com/Addisu87/bank-support-agent/internal/redis"
	"go.uber.org/zap"
)

const (
	defaultMaxSteps = 6
	auditResultMax  = 500
)

var (
	// ErrTooManySteps is returned when the model keeps calling tools
	// without producing an answer.
	ErrTooManySteps = errors.New("agent did not finish within the step limit")

	errBadArguments = errors.New("invalid tool arguments")
)

const systemPrompt = `You are a helpful bank support assistant with real-time access to the customer's data through tools.

You can list accounts and balances, show recent transactions, list payment cards (numbers are masked), block a card, show the customer's profile, list banks, look up a transaction by reference, and deposit, withdraw or transfer funds.

Only act for the authenticated customer. Never reveal full card numbers. Confirm the details of a transfer or withdrawal with the customer before executing it. Format amounts clearly and explain results in plain language.`

type ChatInput struct {
	UserID    string
	Message   string
	UseCache  bool
	RequestID string
}

type Reply struct {
	Response  string   `json:"response"`
	Cached    bool     `json:"cached"`
	ToolCalls []string `json:"toolCalls,omitempty"`
}

type Config struct {
	MaxSteps int
}

// Agent drives the model/tool loop for one customer message at a time.
type Agent struct {
	client   Completer
	tools    *Registry
	cache    *redis.ViewCache[Reply]
	metrics  metrics.MetricsCollector
	maxSteps int
	logger   *logging.Logger
	audit    *logging.Logger
}

// New builds an Agent. cache may be nil to disable reply caching.
func New(client Completer, tools *Registry, cache *redis.ViewCache[Reply], collector metrics.MetricsCollector, cfg Config) *Agent {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = defaultMaxSteps
	}
	logger := logging.L().Named("agent")
	return &Agent{
		client:   client,
		tools:    tools,
		cache:    cache,
		metrics:  collector,
		maxSteps: cfg.MaxSteps,
		logger:   logger,
		audit:    logger.Named("audit"),
	}
}

func (a *Agent) Chat(ctx context.Context, in ChatInput) (*Reply, error) {
	key := cacheKey(in.UserID, in.Message)
	if in.UseCache && a.cache != nil {
		if cached, ok := a.cache.Get(ctx, key); ok {
			cached.Cached = true
			return cached, nil
		}
	}

	messages := []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: in.Message},
	}
	defs := a.tools.Definitions()

	reply := &Reply{}
	mutated := false

	for step := 0; step < a.maxSteps; step++ {
		msg, err := a.client.Complete(ctx, messages, defs)
		if err != nil {
			return nil, err
		}
		if len(msg.ToolCalls) == 0 {
			reply.Response = msg.Content
			if in.UseCache && a.cache != nil && !mutated {
				a.cache.Set(ctx, key, reply)
			}
			return reply, nil
		}

		messages = append(messages, *msg)
		for _, call := range msg.ToolCalls {
			content, tool := a.runTool(ctx, in, call)
			if tool.Mutating {
				mutated = true
			}
			reply.ToolCalls = append(reply.ToolCalls, call.Function.Name)
			messages = append(messages, Message{Role: "tool", ToolCallID: call.ID, Content: content})
		}
	}

	a.logger.Warn("step limit reached", zap.String("user_id", in.UserID), zap.Int("steps", a.maxSteps))
	return nil, ErrTooManySteps
}

// runTool executes one call and renders its result as JSON for the model.
// Failures are reported to the model rather than aborting the chat.
func (a *Agent) runTool(ctx context.Context, in ChatInput, call ToolCall) (string, Tool) {
	tool, ok := a.tools.Lookup(call.Function.Name)
	if !ok {
		a.metrics.RecordToolCall(call.Function.Name, false)
		return errorJSON(fmt.Sprintf("unknown tool %q", call.Function.Name)), Tool{}
	}

	result, err := tool.Run(ctx, in.UserID, json.RawMessage(call.Function.Arguments))
	a.metrics.RecordToolCall(tool.Name, err == nil)

	var content string
	switch {
	case err == nil:
		raw, merr := json.Marshal(result)
		if merr != nil {
			content = errorJSON("could not encode result")
		} else {
			content = string(raw)
		}
	case apperrors.IsDomain(err), errors.Is(err, errBadArguments):
		content = errorJSON(err.Error())
	default:
		a.logger.Error("tool failed", zap.String("tool", tool.Name), zap.String("user_id", in.UserID), zap.Error(err))
		content = errorJSON("internal error, please try again later")
	}

	a.audit.Info("tool call",
		zap.String("actor", in.UserID),
		zap.String("tool", tool.Name),
		zap.String("args", call.Function.Arguments),
		zap.String("result", truncate(content, auditResultMax)),
		zap.String("request_id", in.RequestID),
		zap.Bool("success", err == nil),
	)
	return content, tool
}

func cacheKey(userID, message string) string {
	sum := sha256.Sum256([]byte(message))
	return "agent:chat:" + userID + ":" + hex.EncodeToString(sum[:])
}

func errorJSON(msg string) string {
	raw, _ := json.Marshal(map[string]string{"error": msg})
	return string(raw)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
