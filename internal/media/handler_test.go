package media

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Gahroot/the-tribunal-sub000/internal/provider"
	"github.com/Gahroot/the-tribunal-sub000/internal/session"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

type fakeProvider struct {
	mu     sync.Mutex
	events chan provider.Event
	closed bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{events: make(chan provider.Event, 8)}
}

func (p *fakeProvider) Configure(ctx context.Context, cfg provider.SessionConfig) error { return nil }
func (p *fakeProvider) SendAudio(ctx context.Context, pcm []byte) error                 { return nil }
func (p *fakeProvider) SubmitToolResult(ctx context.Context, callID string, result []byte) error {
	return nil
}
func (p *fakeProvider) InjectContext(ctx context.Context, role, content string) error { return nil }
func (p *fakeProvider) Cancel(ctx context.Context) error                             { return nil }
func (p *fakeProvider) Events() <-chan provider.Event                                { return p.events }
func (p *fakeProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
	return nil
}

type fakeFactory struct {
	provisioned chan struct{}
}

func (f *fakeFactory) Provision(ctx context.Context, callControlID string, carrier session.CarrierAudioSink) (*session.Session, int, error) {
	sess := session.New(session.Config{
		CallControlID: callControlID,
		Carrier:       carrier,
		Provider:      newFakeProvider(),
		HybridMode:    true,
	})
	if f.provisioned != nil {
		close(f.provisioned)
	}
	return sess, 8000, nil
}

func TestMediaHandlerProvisionsSessionAndIngestsFrame(t *testing.T) {
	provisioned := make(chan struct{})
	handler := NewHandler(&fakeFactory{provisioned: provisioned})

	router := mux.NewRouter()
	handler.Register(router)
	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/voice/stream/call-1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	select {
	case <-provisioned:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session provisioning")
	}

	// "aGVsbG8=" base64-decodes to "hello"; content doesn't matter, we
	// only verify the frame doesn't crash the read loop.
	if err := conn.WriteJSON(map[string]interface{}{
		"event": "media",
		"media": map[string]string{"payload": "aGVsbG8="},
	}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if err := conn.WriteJSON(map[string]interface{}{"event": "stop"}); err != nil {
		t.Fatalf("write stop failed: %v", err)
	}

	// Give the server goroutine a moment to process "stop" and return,
	// closing the connection from its side.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, _ = conn.ReadMessage()
}

func TestMediaHandlerRejectsUnprovisionableCall(t *testing.T) {
	handler := NewHandler(&failingFactory{})
	router := mux.NewRouter()
	handler.Register(router)
	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/voice/stream/call-unknown"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected connection to be closed for an unprovisionable call")
	}
}

type failingFactory struct{}

func (f *failingFactory) Provision(ctx context.Context, callControlID string, carrier session.CarrierAudioSink) (*session.Session, int, error) {
	return nil, 0, errors.New("no such call: " + callControlID)
}
