package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	forecast "github.com/goliatone/forecast-dashboard/components/forecast"
	"github.com/gorilla/websocket"
)

const heartbeatInterval = 30 * time.Second

var _ forecast.RealtimeSource = (*Client)(nil)

// phoenixMessage is the channel frame format used by the realtime endpoint.
type phoenixMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref"`
}

type changePayload struct {
	Type      string         `json:"type"`
	Record    map[string]any `json:"record"`
	OldRecord map[string]any `json:"old_record"`
}

// Subscribe opens the realtime websocket and dispatches table changes to the
// handlers until the context is cancelled or the returned stop function runs.
// Dial or join failures return an error; callers degrade to manual refresh.
func (c *Client) Subscribe(ctx context.Context, handlers forecast.ChangeHandlers) (func(), error) {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) +
		"/realtime/v1/websocket?apikey=" + c.apiKey + "&vsn=1.0.0"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("supabase: dial realtime: %w", err)
	}

	topic := "realtime:public:" + c.table
	join := phoenixMessage{Topic: topic, Event: "phx_join", Payload: json.RawMessage(`{}`), Ref: "1"}
	if err := conn.WriteJSON(join); err != nil {
		conn.Close()
		return nil, fmt.Errorf("supabase: join channel: %w", err)
	}

	done := make(chan struct{})
	go c.heartbeat(conn, done)
	go c.readLoop(conn, topic, handlers, done)

	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			conn.Close()
		})
	}
	return stop, nil
}

func (c *Client) heartbeat(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	ref := 2
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			msg := phoenixMessage{
				Topic:   "phoenix",
				Event:   "heartbeat",
				Payload: json.RawMessage(`{}`),
				Ref:     fmt.Sprintf("%d", ref),
			}
			ref++
			if err := conn.WriteJSON(msg); err != nil {
				c.logger.WithError(err).Warn("supabase: realtime heartbeat failed")
				return
			}
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn, topic string, handlers forecast.ChangeHandlers, done <-chan struct{}) {
	for {
		var msg phoenixMessage
		if err := conn.ReadJSON(&msg); err != nil {
			select {
			case <-done:
			default:
				c.logger.WithError(err).Warn("supabase: realtime connection closed")
			}
			return
		}
		if msg.Topic != topic {
			continue
		}
		switch msg.Event {
		case "INSERT":
			if row, ok := decodeRecord(msg.Payload, false); ok && handlers.OnInsert != nil {
				handlers.OnInsert(row)
			}
		case "UPDATE":
			if row, ok := decodeRecord(msg.Payload, false); ok && handlers.OnUpdate != nil {
				handlers.OnUpdate(row)
			}
		case "DELETE":
			if row, ok := decodeRecord(msg.Payload, true); ok && handlers.OnDelete != nil {
				handlers.OnDelete(row.ID)
			}
		}
	}
}

// decodeRecord lifts the row out of a change payload. Deletes only carry the
// old record.
func decodeRecord(payload json.RawMessage, old bool) (forecast.Submission, bool) {
	var change changePayload
	if err := json.Unmarshal(payload, &change); err != nil {
		return forecast.Submission{}, false
	}
	record := change.Record
	if old {
		record = change.OldRecord
	}
	if len(record) == 0 {
		return forecast.Submission{}, false
	}
	data, err := json.Marshal(record)
	if err != nil {
		return forecast.Submission{}, false
	}
	var row forecast.Submission
	if err := json.Unmarshal(data, &row); err != nil {
		return forecast.Submission{}, false
	}
	return row, true
}
