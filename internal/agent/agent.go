// Package agent runs the conversational loop between an Anthropic
// model and the ITR processor's tool surface.
package agent

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/itr-cli/internal/processor"
	"github.com/sells-group/itr-cli/pkg/anthropic"
)

const systemPrompt = `You are an ITR (Inspection, Test, and Review) assistant for a
commissioning completions database. You answer questions about ITR status,
counts, completion rates, and subsystem/system discovery using the provided
tools. Tool results are structured JSON; extract and present only what the
user asked for. When a subsystem is not found, relay the suggested IDs.
Subsystem IDs must match exactly, so search first when unsure.`

// Options configures an Agent.
type Options struct {
	Model             string
	MaxTokens         int64
	MaxToolIterations int     // bound on tool round-trips per question
	RequestsPerMinute float64 // 0 disables rate limiting
}

// Agent holds one conversation. It keeps the message history so
// follow-up questions can reference earlier answers; Reset starts a
// fresh session.
type Agent struct {
	client  anthropic.Client
	proc    *processor.Processor
	opts    Options
	limiter *rate.Limiter

	sessionID string
	history   []anthropic.Message
	turns     int
}

// New constructs an Agent over a client and processor.
func New(client anthropic.Client, proc *processor.Processor, opts Options) *Agent {
	if opts.MaxToolIterations <= 0 {
		opts.MaxToolIterations = 8
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerMinute/60), 1)
	}
	return &Agent{
		client:    client,
		proc:      proc,
		opts:      opts,
		limiter:   limiter,
		sessionID: uuid.New().String(),
	}
}

// Ask sends one user question through the tool-use loop and returns
// the model's final text answer.
func (a *Agent) Ask(ctx context.Context, question string) (string, error) {
	a.history = append(a.history, anthropic.Message{Role: "user", Content: question})

	for i := 0; i < a.opts.MaxToolIterations; i++ {
		if err := a.limiter.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "agent: rate limit wait")
		}

		resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     a.opts.Model,
			MaxTokens: a.opts.MaxTokens,
			System:    systemPrompt,
			Messages:  a.history,
			Tools:     toolDefs(),
		})
		if err != nil {
			return "", eris.Wrap(err, "agent: create message")
		}
		resp.Usage.LogUsage(a.opts.Model, "chat")

		if len(resp.ToolUses) == 0 {
			a.history = append(a.history, anthropic.Message{Role: "assistant", Content: resp.Text})
			a.turns++
			return resp.Text, nil
		}

		a.history = append(a.history, anthropic.Message{
			Role:     "assistant",
			Content:  resp.Text,
			ToolUses: resp.ToolUses,
		})

		results := make([]anthropic.ToolResult, len(resp.ToolUses))
		for j, use := range resp.ToolUses {
			results[j] = a.dispatch(ctx, use)
		}
		a.history = append(a.history, anthropic.Message{Role: "user", ToolResults: results})
	}

	return "", eris.Errorf("agent: no final answer after %d tool iterations", a.opts.MaxToolIterations)
}

// Reset clears the conversation memory and starts a new session.
func (a *Agent) Reset() {
	a.history = nil
	a.turns = 0
	a.sessionID = uuid.New().String()
}

// Turns reports completed question/answer exchanges in this session.
func (a *Agent) Turns() int { return a.turns }

// SessionID identifies the current conversation.
func (a *Agent) SessionID() string { return a.sessionID }
