// internal/core/whatsapp/provider.go
package whatsapp

import (
	"context"
	"fmt"
	"strings"
)

// Gateway delivers outbound text. Delivery is fire-and-forget: a nil error
// means the gateway accepted the message, not that it was read.
type Gateway interface {
	SendText(ctx context.Context, instance, phone, text string) error
	GetProviderName() string
}

// InstanceManager is implemented by gateways that pair numbers remotely.
type InstanceManager interface {
	// Connect makes sure the instance exists and returns its pairing QR as
	// PNG bytes. A nil QR with state "open" means it is already paired.
	Connect(ctx context.Context, instance string) (qr []byte, state string, err error)
	// State returns the connection state and the paired number, if any.
	State(ctx context.Context, instance string) (state, owner string, err error)
	SetWebhook(ctx context.Context, instance, url string) error
}

// ProviderType selects the gateway built by NewGateway.
type ProviderType string

const (
	ProviderEvolution ProviderType = "evolution"
	ProviderWhatsmeow ProviderType = "whatsmeow"
)

// StateOpen is the connection state of a paired instance.
const StateOpen = "open"

// ProviderConfig holds gateway credentials.
type ProviderConfig struct {
	Type ProviderType

	// Evolution API
	EvolutionURL   string
	EvolutionToken string

	// Whatsmeow device store, empty means local SQLite
	StoreURL string
}

// NewGateway builds the gateway named by cfg.Type.
func NewGateway(cfg *ProviderConfig) (Gateway, error) {
	switch cfg.Type {
	case ProviderEvolution:
		if cfg.EvolutionURL == "" || cfg.EvolutionToken == "" {
			return nil, fmt.Errorf("EVOLUTION_API_URL and EVOLUTION_API_TOKEN are required")
		}
		return NewEvolutionClient(cfg.EvolutionURL, cfg.EvolutionToken), nil

	case ProviderWhatsmeow:
		return NewWhatsmeowProvider(cfg.StoreURL), nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}

// EventMessagesUpsert is the only event type that carries a new message.
const EventMessagesUpsert = "messages.upsert"

// InboundEvent is one message event, independent of the gateway that
// produced it.
type InboundEvent struct {
	Event     string
	Instance  string
	MessageID string
	Phone     string
	Name      string
	Text      string
	FromMe    bool
}

// IsIncomingMessage is false for status updates, group chats and our own echoes.
func (e InboundEvent) IsIncomingMessage() bool {
	return e.Event == EventMessagesUpsert && !e.FromMe
}

// DefaultContactName is used when the sender has no push name.
const DefaultContactName = "Cliente"

// PhoneFromJID strips the WhatsApp server suffix from a JID.
func PhoneFromJID(jid string) string {
	if i := strings.IndexByte(jid, '@'); i >= 0 {
		jid = jid[:i]
	}
	// multi-device JIDs carry ":device"
	if i := strings.IndexByte(jid, ':'); i >= 0 {
		jid = jid[:i]
	}
	return strings.TrimPrefix(jid, "+")
}
