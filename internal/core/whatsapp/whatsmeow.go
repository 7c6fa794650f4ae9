// internal/core/whatsapp/whatsmeow.go
package whatsapp

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
	_ "modernc.org/sqlite"
)

// WhatsmeowProvider drives a single linked device directly over the
// WhatsApp multi-device protocol. The instance argument of SendText is
// ignored: one process serves one number.
type WhatsmeowProvider struct {
	client   *whatsmeow.Client
	storeURL string
}

func NewWhatsmeowProvider(storeURL string) *WhatsmeowProvider {
	return &WhatsmeowProvider{
		storeURL: storeURL,
	}
}

func (w *WhatsmeowProvider) GetProviderName() string {
	return "Whatsmeow"
}

func (w *WhatsmeowProvider) initStore(ctx context.Context) (*sqlstore.Container, error) {
	dbLog := waLog.Stdout("Database", "ERROR", true)

	if w.storeURL != "" {
		log.Info().Msg("🌐 Using PostgreSQL database for WhatsApp store")
		container, err := sqlstore.New(ctx, "postgres", w.storeURL, dbLog)
		if err != nil {
			return nil, fmt.Errorf("failed to init PostgreSQL store: %w", err)
		}
		if err := container.Upgrade(ctx); err != nil {
			return nil, fmt.Errorf("failed to upgrade PostgreSQL schema: %w", err)
		}
		return container, nil
	}

	log.Info().Msg("💾 Using local SQLite store (store.db)")
	rawDB, err := sql.Open("sqlite", "file:store.db?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	container := sqlstore.NewWithDB(rawDB, "sqlite", dbLog)
	if err := container.Upgrade(ctx); err != nil {
		return nil, fmt.Errorf("failed to upgrade SQLite schema: %w", err)
	}
	return container, nil
}

// Connect opens the device session. An unpaired device prints the pairing
// code and writes it to qrPath, then blocks until the phone scans it.
func (w *WhatsmeowProvider) Connect(ctx context.Context, qrPath string) error {
	container, err := w.initStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to init store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return fmt.Errorf("failed to get device: %w", err)
	}

	w.client = whatsmeow.NewClient(deviceStore, waLog.Stdout("Client", "INFO", true))

	if w.client.Store.ID != nil {
		if err := w.client.Connect(); err != nil {
			return fmt.Errorf("failed to reconnect: %w", err)
		}
		log.Info().Msg("✅ Reconnected to WhatsApp")
		return nil
	}

	qrChan, _ := w.client.GetQRChannel(ctx)
	if err := w.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	for evt := range qrChan {
		switch evt.Event {
		case "code":
			log.Info().Str("code", evt.Code).Msg("🔗 Scan this QR code in WhatsApp")
			if err := qrcode.WriteFile(evt.Code, qrcode.Medium, 256, qrPath); err != nil {
				log.Warn().Err(err).Msg("⚠️ Failed to write QR image")
			} else {
				log.Info().Str("path", qrPath).Msg("🖼️ QR code saved")
			}
		case "success":
			log.Info().Msg("✅ Device paired")
			return nil
		case "timeout":
			return fmt.Errorf("QR code timeout")
		}
	}
	return nil
}

func (w *WhatsmeowProvider) Disconnect() {
	if w.client != nil {
		w.client.Disconnect()
		log.Info().Msg("🔌 Whatsmeow client disconnected")
	}
}

func (w *WhatsmeowProvider) IsConnected() bool {
	return w.client != nil && w.client.IsConnected()
}

func (w *WhatsmeowProvider) SendText(ctx context.Context, _ string, phone, text string) error {
	if w.client == nil {
		return fmt.Errorf("client not initialized")
	}

	jid := types.NewJID(phone, types.DefaultUserServer)
	msg := &waProto.Message{
		Conversation: proto.String(text),
	}

	if _, err := w.client.SendMessage(ctx, jid, msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// OnMessage forwards every decoded message event to handler.
func (w *WhatsmeowProvider) OnMessage(instance string, handler func(InboundEvent)) error {
	if w.client == nil {
		return fmt.Errorf("client not initialized")
	}
	w.client.AddEventHandler(func(evt interface{}) {
		if msg, ok := evt.(*events.Message); ok {
			handler(FromWhatsmeow(msg, instance))
		}
	})
	return nil
}

// FromWhatsmeow maps a whatsmeow message event onto an InboundEvent.
// Group chats are reported as our own echo so they never get a reply.
func FromWhatsmeow(evt *events.Message, instance string) InboundEvent {
	ev := InboundEvent{
		Event:     EventMessagesUpsert,
		Instance:  instance,
		MessageID: string(evt.Info.ID),
		Phone:     evt.Info.Sender.User,
		Name:      evt.Info.PushName,
		FromMe:    evt.Info.IsFromMe || evt.Info.IsGroup,
	}
	if ev.Name == "" {
		ev.Name = DefaultContactName
	}

	if m := evt.Message; m != nil {
		ev.Text = m.GetConversation()
		if ev.Text == "" {
			ev.Text = m.GetExtendedTextMessage().GetText()
		}
	}
	return ev
}

// StartKeepAlive announces presence every interval until ctx is done.
func (w *WhatsmeowProvider) StartKeepAlive(ctx context.Context, interval time.Duration) {
	if w.client == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("🔄 Keep-alive started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("🛑 Keep-alive stopped")
			return
		case <-ticker.C:
			if !w.IsConnected() {
				continue
			}
			if err := w.client.SendPresence(ctx, types.PresenceAvailable); err != nil {
				log.Warn().Err(err).Msg("⚠️ Keep-alive ping failed")
			} else {
				log.Debug().Msg("💓 Keep-alive ping sent")
			}
		}
	}
}
