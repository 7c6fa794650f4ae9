// internal/core/whatsapp/evolution.go
package whatsapp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"
)

// EvolutionClient talks to a self-hosted Evolution API server.
type EvolutionClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewEvolutionClient(baseURL, apiKey string) *EvolutionClient {
	return &EvolutionClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (e *EvolutionClient) GetProviderName() string {
	return "Evolution"
}

// EvolutionError is a non-2xx answer from the Evolution API.
type EvolutionError struct {
	StatusCode int
	Body       string
}

func (e *EvolutionError) Error() string {
	return fmt.Sprintf("evolution API returned status %d: %s", e.StatusCode, e.Body)
}

func (e *EvolutionClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, e.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return &EvolutionError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (e *EvolutionClient) SendText(ctx context.Context, instance, phone, text string) error {
	payload := map[string]string{
		"number": phone,
		"text":   text,
	}
	if err := e.do(ctx, http.MethodPost, "/message/sendText/"+instance, payload, nil); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (e *EvolutionClient) createInstance(ctx context.Context, instance string) error {
	payload := map[string]any{
		"instanceName": instance,
		"qrcode":       true,
		"integration":  "WHATSAPP-BAILEYS",
	}
	return e.do(ctx, http.MethodPost, "/instance/create", payload, nil)
}

type connectionState struct {
	Instance struct {
		InstanceName string `json:"instanceName"`
		State        string `json:"state"`
		Owner        string `json:"owner"`
	} `json:"instance"`
}

func (e *EvolutionClient) State(ctx context.Context, instance string) (string, string, error) {
	var out connectionState
	if err := e.do(ctx, http.MethodGet, "/instance/connectionState/"+instance, nil, &out); err != nil {
		return "", "", err
	}
	return out.Instance.State, PhoneFromJID(out.Instance.Owner), nil
}

type connectResponse struct {
	Base64 string `json:"base64"`
	Code   string `json:"code"`
	QRCode struct {
		Base64 string `json:"base64"`
	} `json:"qrcode"`
	Instance struct {
		State string `json:"state"`
	} `json:"instance"`
}

// Connect creates the instance when the server does not know it and returns
// the pairing QR. Evolution sends either a PNG data URL or the raw pairing
// code; the latter is rendered locally.
func (e *EvolutionClient) Connect(ctx context.Context, instance string) ([]byte, string, error) {
	if _, _, err := e.State(ctx, instance); err != nil {
		log.Info().Str("instance", instance).Err(err).Msg("ℹ️ Evolution instance not found, creating it")
		if err := e.createInstance(ctx, instance); err != nil {
			return nil, "", fmt.Errorf("create instance: %w", err)
		}
	}

	var out connectResponse
	if err := e.do(ctx, http.MethodGet, "/instance/connect/"+instance, nil, &out); err != nil {
		return nil, "", err
	}

	state := out.Instance.State
	if state == "" {
		state = "connecting"
	}

	encoded := out.Base64
	if encoded == "" {
		encoded = out.QRCode.Base64
	}
	if encoded != "" {
		if i := strings.Index(encoded, ","); strings.HasPrefix(encoded, "data:") && i >= 0 {
			encoded = encoded[i+1:]
		}
		png, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("decode QR: %w", err)
		}
		return png, state, nil
	}

	if out.Code != "" {
		png, err := qrcode.Encode(out.Code, qrcode.Medium, 256)
		if err != nil {
			return nil, "", fmt.Errorf("failed to generate QR: %w", err)
		}
		return png, state, nil
	}

	if state == StateOpen {
		return nil, state, nil
	}
	return nil, state, fmt.Errorf("evolution API returned no QR code for %s", instance)
}

func (e *EvolutionClient) SetWebhook(ctx context.Context, instance, url string) error {
	payload := map[string]any{
		"webhook": map[string]any{
			"enabled":         true,
			"url":             url,
			"webhookByEvents": false,
			"webhookBase64":   false,
			"events":          []string{"MESSAGES_UPSERT", "MESSAGES_UPDATE", "CONNECTION_UPDATE", "QRCODE_UPDATED"},
		},
	}
	return e.do(ctx, http.MethodPost, "/webhook/set/"+instance, payload, nil)
}

// EvolutionWebhook is the body Evolution posts for every subscribed event.
type EvolutionWebhook struct {
	Event    string `json:"event"`
	Instance string `json:"instance"`
	Data     struct {
		Key struct {
			RemoteJID string `json:"remoteJid"`
			FromMe    bool   `json:"fromMe"`
			ID        string `json:"id"`
		} `json:"key"`
		PushName string `json:"pushName"`
		Message  *struct {
			Conversation        string `json:"conversation"`
			ExtendedTextMessage *struct {
				Text string `json:"text"`
			} `json:"extendedTextMessage"`
		} `json:"message"`
	} `json:"data"`
}

// ToEvent flattens the webhook into an InboundEvent.
// isGroupJID reports whether jid addresses a group chat.
func isGroupJID(jid string) bool {
	return strings.HasSuffix(jid, "@g.us")
}

func (w *EvolutionWebhook) ToEvent() InboundEvent {
	ev := InboundEvent{
		Event:     w.Event,
		Instance:  w.Instance,
		MessageID: w.Data.Key.ID,
		Phone:     PhoneFromJID(w.Data.Key.RemoteJID),
		Name:      w.Data.PushName,
		FromMe:    w.Data.Key.FromMe || isGroupJID(w.Data.Key.RemoteJID),
	}
	if ev.Name == "" {
		ev.Name = DefaultContactName
	}

	if m := w.Data.Message; m != nil {
		ev.Text = m.Conversation
		if ev.Text == "" && m.ExtendedTextMessage != nil {
			ev.Text = m.ExtendedTextMessage.Text
		}
	}
	return ev
}
