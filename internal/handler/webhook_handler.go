package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/Gahroot/the-tribunal-sub000/internal/auth"
	"github.com/Gahroot/the-tribunal-sub000/internal/bandit"
	"github.com/Gahroot/the-tribunal-sub000/internal/carrier"
	"github.com/Gahroot/the-tribunal-sub000/internal/domain"
	"github.com/Gahroot/the-tribunal-sub000/internal/dtmf"
	"github.com/Gahroot/the-tribunal-sub000/internal/ivr"
	"github.com/Gahroot/the-tribunal-sub000/internal/prompts"
	"github.com/Gahroot/the-tribunal-sub000/internal/provider"
	"github.com/Gahroot/the-tribunal-sub000/internal/provider/openai"
	"github.com/Gahroot/the-tribunal-sub000/internal/registry"
	"github.com/Gahroot/the-tribunal-sub000/internal/repository"
	"github.com/Gahroot/the-tribunal-sub000/internal/session"
	"github.com/Gahroot/the-tribunal-sub000/internal/tool"
	"github.com/Gahroot/the-tribunal-sub000/pkg/logger"
	redispkg "github.com/Gahroot/the-tribunal-sub000/pkg/redis"
	"go.uber.org/zap"
)

// carrierEvent is the subset of the Telnyx Call Control webhook envelope
// the bridge acts on.
type carrierEvent struct {
	Data struct {
		EventType string `json:"event_type"`
		Payload   struct {
			CallControlID string `json:"call_control_id"`
			Direction     string `json:"direction"`
			From          string `json:"from"`
			To            string `json:"to"`
			Digit         string `json:"digit"`
		} `json:"payload"`
	} `json:"data"`
}

// callPlan is what gets decided at answer time and consulted again once
// the media WebSocket connects, possibly on a different pod — so it is
// cached in Redis rather than kept only in process memory.
type callPlan struct {
	AgentID         string `json:"agent_id"`
	PromptVersionID string `json:"prompt_version_id"`
	SystemPrompt    string `json:"system_prompt"`
	Greeting        string `json:"greeting"`
	Temperature     float64 `json:"temperature"`
	VoiceProvider   string `json:"voice_provider"`
	VoiceID         string `json:"voice_id"`
	TurnDetection   string `json:"turn_detection_mode"`
	SilenceMs       int    `json:"silence_duration_ms"`
	EnabledTools    []string `json:"enabled_tools"`
	IVREnabled      bool   `json:"ivr_enabled"`
	IVRGoal         string `json:"ivr_goal"`
	CalendarEventTypeID string `json:"calendar_event_type_id"`
	Direction       domain.SessionDirection `json:"direction"`
}

const callPlanTTL = 30 * time.Minute

// WebhookHandler receives carrier call-control webhooks, performs agent
// and bandit-arm selection, answers and starts the media stream, and
// implements media.SessionFactory so it can hand the media handler a
// running Session once the carrier's WebSocket connects.
type WebhookHandler struct {
	repos      repository.Manager
	carrier    *carrier.Client
	calendar   tool.CalendarClient
	redis      redispkg.RedisServiceInterface
	registry   *registry.Registry
	openaiDialer openai.Dialer
	bandit     *bandit.Statistics
	tokens     *auth.Issuer
	publicBaseURL string
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(
	repos repository.Manager,
	carrierClient *carrier.Client,
	calendarClient tool.CalendarClient,
	redis redispkg.RedisServiceInterface,
	reg *registry.Registry,
	openaiDialer openai.Dialer,
	tokens *auth.Issuer,
	publicBaseURL string,
) *WebhookHandler {
	return &WebhookHandler{
		repos:         repos,
		carrier:       carrierClient,
		calendar:      calendarClient,
		redis:         redis,
		registry:      reg,
		openaiDialer:  openaiDialer,
		bandit:        bandit.NewStatistics(rand.NewSource(time.Now().UnixNano())),
		tokens:        tokens,
		publicBaseURL: publicBaseURL,
	}
}

// Verify implements media.TokenVerifier.
func (h *WebhookHandler) Verify(token string) (string, error) {
	claims, err := h.tokens.Verify(token)
	if err != nil {
		return "", err
	}
	return claims.CallControlID, nil
}

// ServeWebhook handles POST /voice/webhook.
func (h *WebhookHandler) ServeWebhook(w http.ResponseWriter, r *http.Request) {
	var event carrierEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "malformed webhook payload", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	callControlID := event.Data.Payload.CallControlID

	switch event.Data.EventType {
	case "call.initiated":
		if event.Data.Payload.Direction == "incoming" {
			if err := h.handleInboundInitiated(ctx, callControlID); err != nil {
				logger.Base().Error("failed to handle inbound call", zap.String("call_control_id", callControlID), zap.Error(err))
			}
		}
	case "call.answered":
		if err := h.carrier.StartStreaming(ctx, callControlID, h.streamURL(callControlID)); err != nil {
			logger.Base().Error("failed to start media stream", zap.String("call_control_id", callControlID), zap.Error(err))
		}
	case "call.hangup":
		if err := h.registry.Unregister(ctx, callControlID); err != nil {
			logger.Base().Warn("failed to unregister session", zap.String("call_control_id", callControlID), zap.Error(err))
		}
		if err := h.repos.Session().UpdateState(ctx, callControlID, domain.SessionCompleted); err != nil {
			logger.Base().Warn("failed to mark session completed", zap.String("call_control_id", callControlID), zap.Error(err))
		}
	case "call.dtmf.received":
		// Inbound DTMF from the caller is informational only in this
		// bridge; the agent drives IVR navigation via its own tags, not
		// the caller's keypad.
	}

	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) handleInboundInitiated(ctx context.Context, callControlID string) error {
	agents, err := h.repos.Agent().GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load agents: %w", err)
	}
	if len(agents) == 0 {
		return fmt.Errorf("no agent configured to answer call %s", callControlID)
	}
	agent := agents[0]

	plan, err := h.selectPlan(ctx, agent, domain.DirectionInbound)
	if err != nil {
		return err
	}

	if err := h.storePlan(ctx, callControlID, plan); err != nil {
		return err
	}

	if err := h.repos.Session().Create(ctx, &domain.VoiceConversation{
		CallControlID:   callControlID,
		AgentID:         plan.AgentID,
		PromptVersionID: plan.PromptVersionID,
		Direction:       domain.DirectionInbound,
		State:           domain.SessionInitiated,
	}); err != nil {
		return fmt.Errorf("create session row: %w", err)
	}

	if err := h.registry.Register(ctx, registry.Entry{
		CallControlID: callControlID,
		AgentID:       plan.AgentID,
		Direction:     string(domain.DirectionInbound),
	}); err != nil {
		logger.Base().Warn("failed to register session ownership", zap.Error(err))
	}

	return h.carrier.AnswerCall(ctx, callControlID)
}

// PlanOutboundCall selects an agent/arm for a campaign-initiated call and
// caches the plan under callControlID before the carrier's answered
// webhook can arrive. Called by the campaign dispatcher immediately after
// OutboundDial returns a call control id.
func (h *WebhookHandler) PlanOutboundCall(ctx context.Context, callControlID, agentID string) error {
	agent, err := h.repos.Agent().GetByID(ctx, agentID)
	if err != nil {
		return fmt.Errorf("load agent: %w", err)
	}

	plan, err := h.selectPlan(ctx, agent, domain.DirectionOutbound)
	if err != nil {
		return err
	}
	if err := h.storePlan(ctx, callControlID, plan); err != nil {
		return err
	}

	return h.repos.Session().Create(ctx, &domain.VoiceConversation{
		CallControlID:   callControlID,
		AgentID:         plan.AgentID,
		PromptVersionID: plan.PromptVersionID,
		Direction:       domain.DirectionOutbound,
		State:           domain.SessionInitiated,
	})
}

// selectPlan runs the Thompson-sampling bandit arm selection over the
// agent's active prompt versions, falling back to the agent's own base
// prompt when it has none yet.
func (h *WebhookHandler) selectPlan(ctx context.Context, agent *domain.Agent, direction domain.SessionDirection) (*callPlan, error) {
	versions, err := h.repos.PromptVersion().GetActiveByAgentID(ctx, agent.ID)
	if err != nil {
		return nil, fmt.Errorf("load prompt versions: %w", err)
	}

	plan := &callPlan{
		AgentID:       agent.ID,
		Temperature:   agent.Temperature,
		VoiceProvider: string(agent.VoiceProvider),
		VoiceID:       agent.VoiceID,
		TurnDetection: agent.TurnDetectionMode,
		SilenceMs:     agent.SilenceDurationMs,
		EnabledTools:  []string(agent.EnabledTools),
		IVREnabled:    agent.IVREnabled,
		Direction:     direction,
	}
	if agent.CalendarEventTypeID != nil {
		plan.CalendarEventTypeID = *agent.CalendarEventTypeID
	}
	if agent.IVRGoal != nil {
		plan.IVRGoal = *agent.IVRGoal
	}

	systemPrompt := agent.BaseSystemPrompt
	greeting := ""
	if agent.InitialGreeting != nil {
		greeting = *agent.InitialGreeting
	}

	if len(versions) > 0 {
		arms := make([]bandit.Arm, len(versions))
		byID := make(map[string]*domain.PromptVersion, len(versions))
		for i, v := range versions {
			arms[i] = bandit.Arm{
				ID:                 v.ID,
				Alpha:              v.BanditAlpha,
				Beta:               v.BanditBeta,
				RewardCount:        v.RewardCount,
				TotalCalls:         v.TotalCalls,
				SuccessfulCalls:    v.SuccessfulCalls,
				BookedAppointments: v.BookedAppointments,
			}
			byID[v.ID] = v
		}
		selectedID := h.bandit.SelectArm(arms)
		if selected, ok := byID[selectedID]; ok {
			plan.PromptVersionID = selected.ID
			systemPrompt = selected.SystemPrompt
			plan.Temperature = selected.Temperature
			if selected.InitialGreeting != nil {
				greeting = *selected.InitialGreeting
			}
		}
	}

	plan.SystemPrompt = prompts.Assemble(agent, systemPrompt, prompts.CallContext{Direction: direction})
	plan.Greeting = greeting
	return plan, nil
}

func (h *WebhookHandler) storePlan(ctx context.Context, callControlID string, plan *callPlan) error {
	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("encode call plan: %w", err)
	}
	key := h.redis.GenerateKey(redispkg.CallPlan, callControlID)
	return h.redis.SetValue(ctx, key, string(data), callPlanTTL)
}

func (h *WebhookHandler) streamURL(callControlID string) string {
	url := h.publicBaseURL + "/voice/stream/" + callControlID
	token, err := h.tokens.Issue(auth.SessionClaims{CallControlID: callControlID})
	if err != nil {
		logger.Base().Warn("failed to mint media stream token", zap.String("call_control_id", callControlID), zap.Error(err))
		return url
	}
	return url + "?token=" + token
}

// Provision implements media.SessionFactory: it loads the cached call
// plan, dials the provider, and assembles a running Session bound to the
// carrier's media sink.
func (h *WebhookHandler) Provision(ctx context.Context, callControlID string, carrierSink session.CarrierAudioSink) (*session.Session, int, error) {
	key := h.redis.GenerateKey(redispkg.CallPlan, callControlID)
	raw, err := h.redis.GetValue(ctx, key)
	if err != nil {
		return nil, 0, fmt.Errorf("load call plan for %s: %w", callControlID, err)
	}
	var plan callPlan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return nil, 0, fmt.Errorf("decode call plan: %w", err)
	}

	providerSession, err := h.openaiDialer.Dial(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("dial provider: %w", err)
	}

	hybrid := domain.VoiceProvider(plan.VoiceProvider) == domain.VoiceProviderHybrid
	outputHz := 24000
	outputEncoding := "pcm16"
	if hybrid {
		outputHz = 8000
		outputEncoding = "ulaw"
	}

	var ivrDetector *ivr.Detector
	if plan.IVREnabled {
		ivrDetector = ivr.NewDetector(ivr.DefaultConfig)
	}

	dtmfHandler := dtmf.NewHandler(h.carrier, callControlID)
	toolExecutor := tool.NewExecutor(h.calendar, plan.CalendarEventTypeID, "UTC", dtmfHandler)
	toolExecutor.OnBookingOutcome = func(outcome string) {
		if err := h.repos.Session().SetBookingOutcome(ctx, callControlID, outcome); err != nil {
			logger.Base().Warn("failed to persist booking outcome", zap.String("call_control_id", callControlID), zap.Error(err))
		}
	}

	sess := session.New(session.Config{
		CallControlID:    callControlID,
		AgentID:          plan.AgentID,
		Direction:        plan.Direction,
		Carrier:          carrierSink,
		Provider:         providerSession,
		IVR:              ivrDetector,
		DTMF:             dtmfHandler,
		Tools:            toolExecutor,
		HybridMode:       hybrid,
		ProviderOutputHz: outputHz,
		OnTranscriptSaved: func(entries domain.TranscriptEntries) {
			if err := h.repos.Session().Finish(ctx, callControlID, entries, domain.SessionCompleted); err != nil {
				logger.Base().Warn("failed to persist transcript", zap.String("call_control_id", callControlID), zap.Error(err))
			}
		},
		OnStateChange: func(state domain.SessionState) {
			if err := h.repos.Session().UpdateState(ctx, callControlID, state); err != nil {
				logger.Base().Warn("failed to persist session state", zap.String("call_control_id", callControlID), zap.Error(err))
			}
		},
	})

	if err := sess.Start(ctx, provider.SessionConfig{
		SystemPrompt:      plan.SystemPrompt,
		Greeting:          plan.Greeting,
		InputFormat:       provider.AudioFormat{SampleRateHz: 24000, Encoding: "pcm16"},
		OutputFormat:      provider.AudioFormat{SampleRateHz: outputHz, Encoding: outputEncoding},
		TurnDetectionMode: plan.TurnDetection,
		SilenceDurationMs: plan.SilenceMs,
		Temperature:       plan.Temperature,
		Voice:             plan.VoiceID,
		ToolSchemas:       toolSchemas(plan.EnabledTools),
	}, plan.Greeting); err != nil {
		providerSession.Close()
		return nil, 0, fmt.Errorf("start session: %w", err)
	}

	return sess, 8000, nil
}
