// Package openai implements internal/provider.Session against OpenAI's
// Realtime API over a plain WebSocket connection, grounded on the
// dial/session.update/read-pump shape of the teacher's
// internal/core/model/openai package, generalized from that package's
// WebRTC transport to the JSON-event WebSocket transport this spec's
// provider leg uses.
package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/Gahroot/the-tribunal-sub000/internal/provider"
	"github.com/Gahroot/the-tribunal-sub000/pkg/logger"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "wss://api.openai.com/v1/realtime"
	defaultModel   = "gpt-realtime"
	dialTimeout    = 10 * time.Second
)

// Dialer opens a new OpenAI Realtime session.
type Dialer struct {
	APIKey  string
	BaseURL string // override for tests; defaults to defaultBaseURL
	Model   string
}

// Dial opens the WebSocket connection and starts the read pump. The
// returned Session implements internal/provider.Session.
func (d Dialer) Dial(ctx context.Context) (provider.Session, error) {
	base := d.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	model := d.Model
	if model == "" {
		model = defaultModel
	}

	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("openai provider: invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("model", model)
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+d.APIKey)

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("openai provider: dial: %w", err)
	}

	s := &session{
		conn:   conn,
		events: make(chan provider.Event, 64),
	}
	go s.readPump()
	return s, nil
}

// session is the live connection to one OpenAI Realtime call.
type session struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	events  chan provider.Event

	closeOnce sync.Once
}

func (s *session) send(v interface{}) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *session) Events() <-chan provider.Event { return s.events }

func (s *session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.conn.Close()
		close(s.events)
	})
	return err
}

func (s *session) readPump() {
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			logger.Base().Debug("openai provider: read pump closing", zap.Error(err))
			return
		}
		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			continue
		}
		if ev, ok := decodeEvent(envelope.Type, raw); ok {
			select {
			case s.events <- ev:
			default:
				logger.Base().Warn("openai provider: event channel full, dropping event", zap.String("type", envelope.Type))
			}
		}
	}
}

func (s *session) Configure(ctx context.Context, cfg provider.SessionConfig) error {
	return s.send(buildSessionUpdate(cfg))
}

func (s *session) SendAudio(ctx context.Context, pcm []byte) error {
	return s.send(map[string]interface{}{
		"type":  "input_audio_buffer.append",
		"audio": base64.StdEncoding.EncodeToString(pcm),
	})
}

func (s *session) SubmitToolResult(ctx context.Context, callID string, result []byte) error {
	if err := s.send(map[string]interface{}{
		"type": "conversation.item.create",
		"item": map[string]interface{}{
			"type":    "function_call_output",
			"call_id": callID,
			"output":  string(result),
		},
	}); err != nil {
		return err
	}
	return s.send(map[string]interface{}{"type": "response.create"})
}

func (s *session) InjectContext(ctx context.Context, role, content string) error {
	contentType := "input_text"
	if role == "assistant" {
		contentType = "text"
	}
	if err := s.send(map[string]interface{}{
		"type": "conversation.item.create",
		"item": map[string]interface{}{
			"type": "message",
			"role": role,
			"content": []map[string]interface{}{
				{"type": contentType, "text": content},
			},
		},
	}); err != nil {
		return err
	}
	return s.send(map[string]interface{}{"type": "response.create"})
}

func (s *session) Cancel(ctx context.Context) error {
	return s.send(map[string]interface{}{"type": "response.cancel"})
}
