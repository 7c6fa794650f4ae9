package agent

import (
	"encoding/json"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/scheduling"
)

// ActionExtractor pulls a booking action out of one assistant message.
type ActionExtractor interface {
	Extract(msg openai.ChatCompletionMessage) (scheduling.Action, bool)
}

// ToolCallExtractor reads create_appointment and cancel_appointment calls.
type ToolCallExtractor struct{}

func (ToolCallExtractor) Extract(msg openai.ChatCompletionMessage) (scheduling.Action, bool) {
	for _, call := range msg.ToolCalls {
		if call.Function.Name != ToolCreateAppointment && call.Function.Name != ToolCancelAppointment {
			continue
		}
		_, action := Context{}.executeTool(call)
		if !action.IsNone() {
			return action, true
		}
	}
	return scheduling.Action{}, false
}

var tagPattern = regexp.MustCompile(`(?s)\[APPOINTMENT_DATA\](.*?)\[/APPOINTMENT_DATA\]`)

// TagExtractor reads the older [APPOINTMENT_DATA]{json}[/APPOINTMENT_DATA]
// block some prompts still produce. Only the first block counts.
type TagExtractor struct{}

func (TagExtractor) Extract(msg openai.ChatCompletionMessage) (scheduling.Action, bool) {
	m := tagPattern.FindStringSubmatch(msg.Content)
	if m == nil {
		return scheduling.Action{}, false
	}

	var action scheduling.Action
	if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &action); err != nil {
		return scheduling.Action{}, false
	}
	if !action.Known() {
		return scheduling.Action{}, false
	}
	return action, true
}

// StripActionTags removes every tagged block so it never reaches the customer.
func StripActionTags(text string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(text, ""))
}
