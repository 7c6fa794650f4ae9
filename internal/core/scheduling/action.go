package scheduling

// ActionKind names what a conversation turn asks the booking store to do.
type ActionKind string

const (
	ActionNone              ActionKind = ""
	ActionSchedule          ActionKind = "schedule"
	ActionCancel            ActionKind = "cancel"
	ActionCheckAvailability ActionKind = "check_availability"
)

// Action is the structured request extracted from a model reply. At most one
// is produced per turn.
type Action struct {
	Kind       ActionKind `json:"action"`
	Date       string     `json:"date,omitempty"`
	Time       string     `json:"time,omitempty"`
	Service    string     `json:"service,omitempty"`
	ClientName string     `json:"client_name,omitempty"`
}

func (a Action) IsNone() bool {
	return a.Kind == ActionNone
}

// Known reports whether Kind is one of the supported actions.
func (a Action) Known() bool {
	switch a.Kind {
	case ActionSchedule, ActionCancel, ActionCheckAvailability:
		return true
	}
	return false
}
