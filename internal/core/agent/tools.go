package agent

import (
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/MuhamadAgungGumelar/agendabot-be/internal/core/scheduling"
)

const (
	ToolCheckAvailability = "check_availability"
	ToolCreateAppointment = "create_appointment"
	ToolCancelAppointment = "cancel_appointment"
)

// Tools is the schema sent with every drafting call.
func Tools() []openai.Tool {
	return []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        ToolCheckAvailability,
				Description: "List free appointment times. Use it before proposing any time to the customer.",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"date":    {Type: jsonschema.String, Description: "Day to check as YYYY-MM-DD. Omit to list the next days."},
						"service": {Type: jsonschema.String, Description: "Service name, changes the slot length."},
					},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        ToolCreateAppointment,
				Description: "Book an appointment once the customer confirmed date, time, service and name.",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"date":        {Type: jsonschema.String, Description: "YYYY-MM-DD"},
						"time":        {Type: jsonschema.String, Description: "HH:mm, 24h"},
						"service":     {Type: jsonschema.String, Description: "Service name"},
						"client_name": {Type: jsonschema.String, Description: "Customer name"},
					},
					Required: []string{"date", "time", "client_name"},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        ToolCancelAppointment,
				Description: "Cancel the customer's appointment at the given date and time.",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"date": {Type: jsonschema.String, Description: "YYYY-MM-DD"},
						"time": {Type: jsonschema.String, Description: "HH:mm, 24h"},
					},
					Required: []string{"date", "time"},
				},
			},
		},
	}
}

type toolArgs struct {
	Date       string `json:"date"`
	Time       string `json:"time"`
	Service    string `json:"service"`
	ClientName string `json:"client_name"`
}

// executeTool runs one tool call. Booking tools are not applied here: they are
// turned into an Action for the caller and acknowledged to the model.
func (c Context) executeTool(call openai.ToolCall) (string, scheduling.Action) {
	var args toolArgs
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return fmt.Sprintf(`{"error":"invalid arguments: %s"}`, err), scheduling.Action{}
		}
	}

	switch call.Function.Name {
	case ToolCheckAvailability:
		return c.CheckAvailability(args.Date, args.Service), scheduling.Action{}

	case ToolCreateAppointment:
		action := scheduling.Action{
			Kind:       scheduling.ActionSchedule,
			Date:       args.Date,
			Time:       args.Time,
			Service:    args.Service,
			ClientName: args.ClientName,
		}
		return `{"status":"received","note":"The booking system validates and stores the appointment after this reply. Tell the customer it is being confirmed."}`, action

	case ToolCancelAppointment:
		action := scheduling.Action{Kind: scheduling.ActionCancel, Date: args.Date, Time: args.Time}
		return `{"status":"received","note":"The booking system cancels the appointment after this reply."}`, action

	default:
		return fmt.Sprintf(`{"error":"unknown tool %q"}`, call.Function.Name), scheduling.Action{}
	}
}
