// Package realtime listens to the account's ActionCable stream and reports
// events that can change the conversation list.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/coder/websocket"
)

// DefaultPingTimeout is how long a read may go without any frame, server
// pings included, before the connection is treated as dead. ActionCable
// servers ping every ~3s.
var DefaultPingTimeout = 15 * time.Second

// ErrPingTimeout is returned when no frames are received within the ping timeout.
var ErrPingTimeout = errors.New("ping timeout: no frames received")

// maxReadSize caps a single frame at 1 MB.
const maxReadSize = 1 << 20

type frame struct {
	Type       string          `json:"type,omitempty"`
	Identifier string          `json:"identifier,omitempty"`
	Message    json.RawMessage `json:"message,omitempty"`
	Command    string          `json:"command,omitempty"`
	Data       string          `json:"data,omitempty"`
	Reconnect  *bool           `json:"reconnect,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}

// ChannelID identifies a channel subscription. It is JSON-encoded into the
// identifier string.
type ChannelID struct {
	Channel     string `json:"channel"`
	PubsubToken string `json:"pubsub_token"`
	AccountID   int    `json:"account_id"`
	UserID      int    `json:"user_id,omitempty"`
}

// Event is one broadcast from the account stream, or a terminal read error.
type Event struct {
	Name           string
	ConversationID int
	Err            error
}

// envelope is the broadcast payload inside a frame's message field.
type envelope struct {
	Event string `json:"event"`
	Data  struct {
		ID             int `json:"id"`
		ConversationID int `json:"conversation_id"`
	} `json:"data"`
}

func parseEvent(raw json.RawMessage) (Event, bool) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
		return Event{}, false
	}
	id := env.Data.ConversationID
	if id == 0 && env.Event != "message.created" && env.Event != "message.updated" {
		id = env.Data.ID
	}
	return Event{Name: env.Event, ConversationID: id}, true
}

// CableURL converts an API base URL to its ActionCable WebSocket URL.
func CableURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported base URL scheme %q", u.Scheme)
	}
	u.Path = "/cable"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// Conn is an ActionCable WebSocket connection.
type Conn struct {
	conn       *websocket.Conn
	identifier string
}

// Connect dials the ActionCable endpoint and waits for the welcome frame.
func Connect(ctx context.Context, cableURL string) (*Conn, error) {
	conn, _, err := websocket.Dial(ctx, cableURL, &websocket.DialOptions{
		Subprotocols: []string{"actioncable-v1-json"},
	})
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	conn.SetReadLimit(maxReadSize)

	_, data, err := conn.Read(ctx)
	if err != nil {
		_ = conn.CloseNow()
		return nil, fmt.Errorf("read welcome: %w", err)
	}
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		_ = conn.CloseNow()
		return nil, fmt.Errorf("parse welcome: %w", err)
	}
	if f.Type != "welcome" {
		_ = conn.CloseNow()
		return nil, fmt.Errorf("expected welcome, got %q (reason: %s)", f.Type, f.Reason)
	}
	return &Conn{conn: conn}, nil
}

// Close gracefully closes the connection.
func (c *Conn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}

// Subscribe sends a subscribe command and waits for confirmation, skipping
// pings that arrive in between.
func (c *Conn) Subscribe(ctx context.Context, id ChannelID) error {
	idJSON, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("marshal identifier: %w", err)
	}
	identifier := string(idJSON)

	data, _ := json.Marshal(frame{Command: "subscribe", Identifier: identifier})
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}

	for {
		_, resp, err := c.conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("read subscription response: %w", err)
		}
		var f frame
		if err := json.Unmarshal(resp, &f); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
		switch f.Type {
		case "confirm_subscription":
			c.identifier = identifier
			return nil
		case "reject_subscription":
			return fmt.Errorf("subscription rejected (check pubsub_token)")
		case "ping":
			continue
		default:
			return fmt.Errorf("unexpected response type: %q", f.Type)
		}
	}
}

// StartPresence sends update_presence actions every interval until ctx is
// done. onError, if set, is called once on the first write failure.
func (c *Conn) StartPresence(ctx context.Context, interval time.Duration, onError func(error)) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				data, _ := json.Marshal(frame{
					Command:    "message",
					Identifier: c.identifier,
					Data:       `{"action":"update_presence"}`,
				})
				if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
					if onError != nil && ctx.Err() == nil {
						onError(fmt.Errorf("presence write: %w", err))
					}
					return
				}
			}
		}
	}()
}

// Listen starts the read loop with DefaultPingTimeout.
func (c *Conn) Listen(ctx context.Context) <-chan Event {
	return c.ListenWithTimeout(ctx, DefaultPingTimeout)
}

// ListenWithTimeout returns a channel of broadcast events. Pings and
// subscription frames are consumed silently. The channel receives one final
// Event with Err set and closes when the connection drops, the server sends
// disconnect, or no frame arrives within pingTimeout (0 disables the check).
func (c *Conn) ListenWithTimeout(ctx context.Context, pingTimeout time.Duration) <-chan Event {
	ch := make(chan Event, 64)
	go func() {
		defer close(ch)
		emit := func(ev Event) bool {
			select {
			case ch <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for {
			readCtx := ctx
			var readCancel context.CancelFunc
			if pingTimeout > 0 {
				readCtx, readCancel = context.WithTimeout(ctx, pingTimeout)
			}
			_, data, err := c.conn.Read(readCtx)
			if readCancel != nil {
				readCancel()
			}

			if err != nil {
				if pingTimeout > 0 && ctx.Err() == nil && readCtx.Err() != nil {
					err = ErrPingTimeout
				}
				emit(Event{Err: err})
				return
			}

			var f frame
			if err := json.Unmarshal(data, &f); err != nil {
				continue
			}
			switch {
			case f.Type == "ping", f.Type == "confirm_subscription", f.Type == "reject_subscription":
				continue
			case f.Type == "disconnect":
				reconnect := f.Reconnect != nil && *f.Reconnect
				emit(Event{Err: fmt.Errorf("disconnect (reason=%s, reconnect=%v)", f.Reason, reconnect)})
				return
			case len(f.Message) > 0:
				ev, ok := parseEvent(f.Message)
				if !ok {
					continue
				}
				if !emit(ev) {
					return
				}
			}
		}
	}()
	return ch
}
