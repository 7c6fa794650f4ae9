package agent

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/i18n"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/llm"
	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/scheduling"
)

// MaxToolRounds bounds how many times one turn may go back to the tools
// before the model is forced to answer in text.
const MaxToolRounds = 3

// Completer is the completion service, usually *llm.Service which already
// retries transient failures.
type Completer interface {
	Complete(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type TurnState int

const (
	StateDrafting TurnState = iota
	StateToolExecuting
	StateFinalizing
	StateDone
)

func (s TurnState) String() string {
	switch s {
	case StateDrafting:
		return "drafting"
	case StateToolExecuting:
		return "tool_executing"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// Outcome of one turn. Reply is never empty.
type Outcome struct {
	Reply  string
	Action scheduling.Action
	Rounds int
	// Err is the completion failure that produced the fallback reply, if any.
	Err error
}

// Engine runs the tool-calling loop for one inbound message.
type Engine struct {
	llm        Completer
	extractors []ActionExtractor
}

func NewEngine(llm Completer) *Engine {
	return &Engine{
		llm:        llm,
		extractors: []ActionExtractor{ToolCallExtractor{}, TagExtractor{}},
	}
}

// Run drafts a reply for history. Tool calls are executed against actx and
// fed back to the model at most MaxToolRounds times; the next call forbids
// tools. A failed completion yields the localized apology instead of an error.
func (e *Engine) Run(ctx context.Context, actx Context, history []openai.ChatCompletionMessage) Outcome {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt(actx)})
	messages = append(messages, history...)

	var (
		action scheduling.Action
		final  openai.ChatCompletionMessage
		rounds int
	)

	state := StateDrafting
	for state != StateDone {
		req := openai.ChatCompletionRequest{Messages: messages, Tools: Tools()}
		if state == StateFinalizing {
			req.ToolChoice = "none"
		}

		resp, err := e.llm.Complete(ctx, req)
		if err != nil {
			log.Error().Err(err).Str("state", state.String()).Int("rounds", rounds).Msg("❌ Completion failed, sending fallback reply")
			return Outcome{Reply: i18n.T(actx.Language, i18n.KeyErrorProcessing), Rounds: rounds, Err: err}
		}
		if len(resp.Choices) == 0 {
			log.Error().Str("state", state.String()).Int("rounds", rounds).Msg("❌ Completion had no choices, sending fallback reply")
			return Outcome{Reply: i18n.T(actx.Language, i18n.KeyErrorProcessing), Rounds: rounds, Err: llm.ErrEmptyResponse}
		}
		msg := resp.Choices[0].Message

		if len(msg.ToolCalls) == 0 || state == StateFinalizing {
			final = msg
			state = StateDone
			break
		}

		state = StateToolExecuting
		rounds++
		messages = append(messages, msg)

		for _, call := range msg.ToolCalls {
			result, act := actx.executeTool(call)
			toolCallsTotal.WithLabelValues(call.Function.Name).Inc()
			log.Info().
				Str("tool", call.Function.Name).
				Str("state", state.String()).
				Int("round", rounds).
				Msg("🛠️ Tool call executed")

			if action.IsNone() && !act.IsNone() {
				action = act
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				Name:       call.Function.Name,
				ToolCallID: call.ID,
			})
		}

		if rounds >= MaxToolRounds {
			state = StateFinalizing
		} else {
			state = StateDrafting
		}
	}
	turnRounds.Observe(float64(rounds))

	if action.IsNone() {
		for _, x := range e.extractors {
			if a, ok := x.Extract(final); ok {
				action = a
				break
			}
		}
	}

	reply := StripActionTags(final.Content)
	if strings.TrimSpace(reply) == "" {
		reply = i18n.T(actx.Language, i18n.KeyErrorProcessing)
	}

	return Outcome{Reply: reply, Action: action, Rounds: rounds}
}
