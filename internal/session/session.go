// Package session implements the per-call coordinator: it opens the
// provider connection, relays audio in both directions, processes
// provider events, tracks the transcript, and handles barge-in and tool
// calls. This is the heart of the bridge — everything else (the media
// handler, the campaign dispatcher, the bandit selector) exists to set a
// Session up or to feed it its starting context.
package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Gahroot/the-tribunal-sub000/internal/domain"
	"github.com/Gahroot/the-tribunal-sub000/internal/ivr"
	"github.com/Gahroot/the-tribunal-sub000/internal/provider"
	"github.com/Gahroot/the-tribunal-sub000/internal/tool"
	"github.com/Gahroot/the-tribunal-sub000/pkg/logger"
	"go.uber.org/zap"
)

// CarrierAudioSink is the subset of the carrier media connection a
// Session needs to emit egress audio and end the call.
type CarrierAudioSink interface {
	SendAudioFrame(ctx context.Context, ulawPCM []byte) error
	Hangup(ctx context.Context) error
}

// DTMFScanner resets the DTMF handler's scan cursor at the start of each
// new provider response, per the session's event-processing contract.
type DTMFScanner interface {
	ResetScanPosition()
	ScanAndSend(ctx context.Context, transcript string) (string, error)
}

// Config bundles everything a Session needs at construction.
type Config struct {
	CallControlID string
	AgentID       string
	Direction     domain.SessionDirection

	Carrier  CarrierAudioSink
	Provider provider.Session
	IVR      *ivr.Detector
	DTMF     DTMFScanner
	Tools    *tool.Executor

	// HybridMode is true when TTS audio already arrives as carrier-ready
	// mu-law 8kHz, so the session must skip the 24->8kHz transcode.
	HybridMode bool
	// ProviderOutputHz is the sample rate of PCM16 audio deltas from the
	// provider when HybridMode is false (ignored when true, since hybrid
	// TTS emits carrier-native mu-law 8kHz directly).
	ProviderOutputHz int

	// OnTranscriptSaved persists the full transcript on the session's
	// anchor row when the session ends.
	OnTranscriptSaved func(entries domain.TranscriptEntries)
	// OnStateChange persists the state machine's state transitions.
	OnStateChange func(state domain.SessionState)
}

// Session coordinates one call end-to-end.
type Session struct {
	cfg Config

	mu    sync.Mutex
	state domain.SessionState

	transcript []domain.TranscriptEntry
	agentBuf   []byte // accumulates the current in-flight agent transcript line

	isInterrupted atomic.Bool
	egress        chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

// New creates a Session in the Initiated state.
func New(cfg Config) *Session {
	return &Session{
		cfg:    cfg,
		state:  domain.SessionInitiated,
		egress: make(chan []byte, 32),
		done:   make(chan struct{}),
	}
}

func (s *Session) setState(state domain.SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	if s.cfg.OnStateChange != nil {
		s.cfg.OnStateChange(state)
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start sends the provider its initial configuration and greeting, then
// transitions to Streaming once the event loop is ready to process
// responses. Run must be called (typically in its own goroutine)
// immediately after Start succeeds.
func (s *Session) Start(ctx context.Context, providerCfg provider.SessionConfig, greeting string) error {
	s.setState(domain.SessionAnswered)

	if err := s.cfg.Provider.Configure(ctx, providerCfg); err != nil {
		s.setState(domain.SessionFailed)
		return err
	}

	if greeting != "" {
		if err := s.cfg.Provider.InjectContext(ctx, "assistant", greeting); err != nil {
			logger.Base().Warn("failed to inject greeting", zap.Error(err), zap.String("call_control_id", s.cfg.CallControlID))
		}
	}

	s.setState(domain.SessionStreaming)
	go s.runEgress(ctx)
	return nil
}

// Run drives the single-consumer event loop over the provider's event
// channel until it closes or ctx is cancelled.
func (s *Session) Run(ctx context.Context) {
	defer s.finish()

	events := s.cfg.Provider.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.handleEvent(ctx, ev)
		}
	}
}

func (s *Session) handleEvent(ctx context.Context, ev provider.Event) {
	switch ev.Type {
	case provider.EventAudioDelta:
		s.handleAudioDelta(ev.AudioPCM)
	case provider.EventTranscriptDelta:
		s.handleTranscriptDelta(ev.Transcript)
	case provider.EventUserTranscriptDone:
		s.handleUserTranscriptDone(ctx, ev.Transcript)
	case provider.EventSpeechStarted:
		s.handleSpeechStarted(ctx)
	case provider.EventResponseCreated:
		s.handleResponseCreated()
	case provider.EventResponseDone:
		s.handleResponseDone()
	case provider.EventFunctionCall:
		s.handleFunctionCall(ctx, ev)
	case provider.EventError:
		logger.Base().Error("provider event error", zap.Error(ev.Err), zap.String("call_control_id", s.cfg.CallControlID))
	}
}

// handleAudioDelta transcodes and queues egress audio, dropping it while
// a barge-in interruption is in effect.
func (s *Session) handleAudioDelta(pcm []byte) {
	if s.isInterrupted.Load() {
		return
	}

	frame := pcm
	if !s.cfg.HybridMode {
		frame = s.encodeEgressFrame(pcm, s.cfg.ProviderOutputHz)
	}

	select {
	case s.egress <- frame:
	default:
		logger.Base().Warn("egress queue full, dropping audio frame", zap.String("call_control_id", s.cfg.CallControlID))
	}
}

func (s *Session) handleTranscriptDelta(delta string) {
	s.agentBuf = append(s.agentBuf, delta...)
	if s.cfg.IVR != nil {
		s.cfg.IVR.ProcessTranscript(string(s.agentBuf), true)
	}
	if s.cfg.DTMF != nil {
		if _, err := s.cfg.DTMF.ScanAndSend(context.Background(), string(s.agentBuf)); err != nil {
			logger.Base().Warn("dtmf scan failed", zap.Error(err))
		}
	}
}

func (s *Session) handleUserTranscriptDone(ctx context.Context, transcript string) {
	s.transcript = append(s.transcript, domain.TranscriptEntry{Role: "user", Text: transcript})
	if s.cfg.IVR != nil {
		s.cfg.IVR.ProcessTranscript(transcript, false)
	}
}

// handleSpeechStarted implements the barge-in contract: stop egress
// immediately (local drain, authoritative) and ask the provider to cancel
// in parallel.
func (s *Session) handleSpeechStarted(ctx context.Context) {
	s.isInterrupted.Store(true)
	s.drainEgress()
	if err := s.cfg.Provider.Cancel(ctx); err != nil {
		logger.Base().Warn("response cancel failed", zap.Error(err), zap.String("call_control_id", s.cfg.CallControlID))
	}
}

func (s *Session) drainEgress() {
	for {
		select {
		case <-s.egress:
		default:
			return
		}
	}
}

// handleResponseCreated clears the interruption so the new response's
// audio is not pre-emptively dropped, and resets the DTMF scan cursor.
func (s *Session) handleResponseCreated() {
	s.isInterrupted.Store(false)
	if s.cfg.DTMF != nil {
		s.cfg.DTMF.ResetScanPosition()
	}
}

func (s *Session) handleResponseDone() {
	if len(s.agentBuf) > 0 {
		s.transcript = append(s.transcript, domain.TranscriptEntry{Role: "agent", Text: string(s.agentBuf)})
		s.agentBuf = s.agentBuf[:0]
	}
}

func (s *Session) handleFunctionCall(ctx context.Context, ev provider.Event) {
	if s.cfg.Tools == nil {
		return
	}
	result := s.cfg.Tools.Execute(ctx, tool.Name(ev.FunctionName), ev.FunctionArgsJSON)
	payload, _ := encodeResult(result)
	if err := s.cfg.Provider.SubmitToolResult(ctx, ev.FunctionCallID, payload); err != nil {
		logger.Base().Error("failed to submit tool result", zap.Error(err), zap.String("call_control_id", s.cfg.CallControlID))
	}
}

// runEgress drains the egress queue to the carrier. Resampling and μ-law
// encoding happen before a frame reaches this queue in single-provider
// mode; in hybrid mode the TTS provider already emits carrier-ready audio.
func (s *Session) runEgress(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case frame, ok := <-s.egress:
			if !ok {
				return
			}
			if err := s.cfg.Carrier.SendAudioFrame(ctx, frame); err != nil {
				logger.Base().Error("failed to send audio frame to carrier", zap.Error(err))
			}
		}
	}
}

// Finish transitions the session to a terminal state, persists the
// transcript, and releases resources. Safe to call more than once.
func (s *Session) Finish(outcome domain.SessionState) {
	s.finishWithState(outcome)
}

func (s *Session) finish() {
	s.finishWithState(domain.SessionCompleted)
}

func (s *Session) finishWithState(outcome domain.SessionState) {
	s.closeOnce.Do(func() {
		close(s.done)
		s.setState(outcome)
		if s.cfg.OnTranscriptSaved != nil {
			s.cfg.OnTranscriptSaved(append(domain.TranscriptEntries(nil), s.transcript...))
		}
		if err := s.cfg.Provider.Close(); err != nil {
			logger.Base().Warn("error closing provider session", zap.Error(err))
		}
	})
}
