// Package media implements the carrier-facing media WebSocket endpoint:
// a gorilla/websocket server accepting the carrier's bidirectional
// μ-law media stream on /voice/stream/{call_id}, decoding its
// {event, media:{payload}} JSON text frames and feeding them to the
// call's *session.Session, and satisfying session.CarrierAudioSink for
// the egress direction. Grounded on the Twilio/Telnyx media-streams
// event wire shape (connected/start/media/stop) seen across the voice
// telephony examples in the pack, and on the teacher's upgrade-then-
// dedicated-read-loop-goroutine server pattern.
package media

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/Gahroot/the-tribunal-sub000/internal/session"
	"github.com/Gahroot/the-tribunal-sub000/pkg/logger"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// inboundFrame is the carrier's media-stream wire message.
type inboundFrame struct {
	Event string `json:"event"`
	Media *struct {
		Payload string `json:"payload"`
	} `json:"media,omitempty"`
}

// outboundFrame is the frame shape sent back to the carrier for egress
// audio.
type outboundFrame struct {
	Event string      `json:"event"`
	Media outboundPCM `json:"media"`
}

type outboundPCM struct {
	Payload string `json:"payload"`
}

// SessionFactory provisions and starts the Session for a call once its
// media WebSocket connects, since only then does the bridge have a real
// audio sink to hand the Session's Config.Carrier field. Populated by
// the call-control webhook handler, which holds the agent/prompt-version
// selection made at call-answer time.
type SessionFactory interface {
	Provision(ctx context.Context, callControlID string, carrier session.CarrierAudioSink) (sess *session.Session, providerFormatHz int, err error)
}

// TokenVerifier checks the short-lived token the webhook handler embeds in
// the stream URL it hands the carrier, so an arbitrary third party can't
// open a media session for an arbitrary call control id. Optional: a nil
// TokenVerifier skips the check, which is fine for tests and for carrier
// setups that authenticate the media connection another way (mTLS, IP
// allowlist).
type TokenVerifier interface {
	Verify(token string) (callControlID string, err error)
}

// Handler upgrades incoming carrier media connections and bridges them
// to a freshly provisioned Session.
type Handler struct {
	factory  SessionFactory
	verifier TokenVerifier
}

// NewHandler creates a media Handler backed by factory.
func NewHandler(factory SessionFactory) *Handler {
	return &Handler{factory: factory}
}

// WithTokenVerifier sets the token verifier used to authenticate incoming
// media connections before upgrading them.
func (h *Handler) WithTokenVerifier(v TokenVerifier) *Handler {
	h.verifier = v
	return h
}

// Register wires the handler onto router at /voice/stream/{call_id}.
func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/voice/stream/{call_id}", h.serveWS)
}

func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	callControlID := mux.Vars(r)["call_id"]

	if h.verifier != nil {
		tokenCallControlID, err := h.verifier.Verify(r.URL.Query().Get("token"))
		if err != nil || tokenCallControlID != callControlID {
			logger.Base().Warn("rejected media connection with invalid token", zap.String("call_control_id", callControlID))
			http.Error(w, "invalid or missing token", http.StatusUnauthorized)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Base().Warn("media websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	sink := newCarrierConn(conn)

	sess, providerFormat, err := h.factory.Provision(ctx, callControlID, sink)
	if err != nil {
		logger.Base().Error("failed to provision session for media connection",
			zap.String("call_control_id", callControlID), zap.Error(err))
		return
	}

	go sess.Run(ctx)
	defer sess.Finish(sess.State())

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Base().Warn("media websocket read error", zap.String("call_control_id", callControlID), zap.Error(err))
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			logger.Base().Warn("malformed media frame", zap.Error(err))
			continue
		}

		switch frame.Event {
		case "media":
			if frame.Media == nil {
				continue
			}
			if err := sess.IngestCarrierFrame(ctx, frame.Media.Payload, providerFormat); err != nil {
				logger.Base().Warn("failed to ingest carrier frame", zap.String("call_control_id", callControlID), zap.Error(err))
			}
		case "stop":
			return
		}
	}
}

// carrierConn implements session.CarrierAudioSink over one WebSocket
// connection. Writes are serialized with a mutex since gorilla/websocket
// connections are not safe for concurrent writers.
type carrierConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newCarrierConn(conn *websocket.Conn) *carrierConn {
	return &carrierConn{conn: conn}
}

// SendAudioFrame writes one base64-framed μ-law payload back to the
// carrier.
func (c *carrierConn) SendAudioFrame(ctx context.Context, ulawPCM []byte) error {
	frame := outboundFrame{
		Event: "media",
		Media: outboundPCM{Payload: base64.StdEncoding.EncodeToString(ulawPCM)},
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encode egress media frame: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hangup closes the media WebSocket. Ending the underlying call itself
// is the call-control webhook handler's job (carrier.Client.HangupCall);
// this only tears down the local media bridge.
func (c *carrierConn) Hangup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}
