package event

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Gahroot/the-tribunal-sub000/pkg/logger"
	"go.uber.org/zap"
)

// LifecyclePhase represents the current phase of a session
type LifecyclePhase int

const (
	PhaseCreated LifecyclePhase = iota
	PhaseInitializing
	PhaseReady
	PhaseTerminating
	PhaseTerminated
)

// String returns the string representation of the lifecycle phase
func (p LifecyclePhase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseInitializing:
		return "initializing"
	case PhaseReady:
		return "ready"
	case PhaseTerminating:
		return "terminating"
	case PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// ConnectionState represents the state of a session in its lifecycle
type ConnectionState struct {
	ID              string                 `json:"id"`
	CallID          string                 `json:"call_id,omitempty"`
	AgentID         string                 `json:"agent_id,omitempty"`
	Phase           LifecyclePhase         `json:"phase"`
	Dependencies    []string               `json:"dependencies"`
	ReadyConditions map[string]bool        `json:"ready_conditions"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// ConnectionLifecycle manages the lifecycle of voice sessions, tracking
// dependency readiness between the carrier leg and the provider leg before
// a session is considered fully bridged.
type ConnectionLifecycle struct {
	eventBus    EventBus
	connections map[string]*ConnectionState
	mutex       sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

// Dependency keys for session readiness
const (
	DepCarrierStreamReady  = "carrier_stream_ready"
	DepCarrierCallAnswered = "carrier_call_answered"
	DepProviderConnected   = "provider_connected"
	DepProviderAudioReady  = "provider_audio_ready"
	DepProviderGreetingSent = "provider_greeting_sent"
)

// NewConnectionLifecycle creates a new session lifecycle manager
func NewConnectionLifecycle(eventBus EventBus) *ConnectionLifecycle {
	ctx, cancel := context.WithCancel(context.Background())

	lifecycle := &ConnectionLifecycle{
		eventBus:    eventBus,
		connections: make(map[string]*ConnectionState),
		ctx:         ctx,
		cancel:      cancel,
	}

	lifecycle.setupEventSubscriptions()

	return lifecycle
}

// RegisterConnection registers a new session with its dependencies
func (cl *ConnectionLifecycle) RegisterConnection(connectionID, callID, agentID string, dependencies []string) error {
	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	if _, exists := cl.connections[connectionID]; exists {
		return fmt.Errorf("connection %s already registered", connectionID)
	}

	readyConditions := make(map[string]bool)
	for _, dep := range dependencies {
		readyConditions[dep] = false
	}

	state := &ConnectionState{
		ID:              connectionID,
		CallID:          callID,
		AgentID:         agentID,
		Phase:           PhaseCreated,
		Dependencies:    dependencies,
		ReadyConditions: readyConditions,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
		Metadata:        make(map[string]interface{}),
	}

	cl.connections[connectionID] = state

	logger.Base().Info("Registered connection", zap.String("connection_id", connectionID), zap.Strings("dependencies", dependencies))
	event := NewConnectionEvent(ConnectionCreated, connectionID).
		WithCallID(callID).
		WithAgentID(agentID).
		WithData(&SessionEventData{
			ConnectionID: connectionID,
			CallID:       callID,
			AgentID:      agentID,
		})

	return cl.eventBus.PublishEvent(event)
}

// UpdateConnectionPhase updates the phase of a session
func (cl *ConnectionLifecycle) UpdateConnectionPhase(connectionID string, phase LifecyclePhase) error {
	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	state, exists := cl.connections[connectionID]
	if !exists {
		return fmt.Errorf("connection %s not found", connectionID)
	}

	oldPhase := state.Phase
	state.Phase = phase
	state.UpdatedAt = time.Now()

	logger.Base().Info("Connection phase changed", zap.Int("old_phase", int(oldPhase)), zap.String("connection_id", connectionID), zap.Int("new_phase", int(phase)))
	var eventType EventType
	switch phase {
	case PhaseReady:
		eventType = ConnectionReady
	case PhaseTerminated:
		eventType = ConnectionTerminated
	default:
		return nil // Don't publish events for intermediate phases
	}

	event := NewConnectionEvent(eventType, connectionID).
		WithCallID(state.CallID).
		WithAgentID(state.AgentID)

	return cl.eventBus.PublishEvent(event)
}

// MarkDependencyReady marks a dependency as ready and checks if the session is ready
func (cl *ConnectionLifecycle) MarkDependencyReady(connectionID, dependency string) error {
	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	state, exists := cl.connections[connectionID]
	if !exists {
		return fmt.Errorf("connection %s not found", connectionID)
	}

	if state.Phase >= PhaseReady {
		logger.Base().Info("Connection already ready, ignoring dependency", zap.String("connection_id", connectionID), zap.String("dependency", dependency))
		return nil
	}

	if _, exists := state.ReadyConditions[dependency]; exists {
		state.ReadyConditions[dependency] = true
		state.UpdatedAt = time.Now()

		logger.Base().Info("Dependency ready", zap.String("connection_id", connectionID), zap.String("dependency", dependency))
		if cl.areAllDependenciesReady(state) {
			logger.Base().Info("All dependencies ready for connection", zap.String("connection_id", connectionID))
			state.Phase = PhaseReady

			event := NewConnectionEvent(ConnectionReady, connectionID).
				WithCallID(state.CallID).
				WithAgentID(state.AgentID)

			return cl.eventBus.PublishEvent(event)
		}
	} else {
		logger.Base().Warn("Unknown dependency for connection", zap.String("connection_id", connectionID), zap.String("dependency", dependency))
	}

	return nil
}

// GetConnectionState returns the current state of a session
func (cl *ConnectionLifecycle) GetConnectionState(connectionID string) (*ConnectionState, error) {
	cl.mutex.RLock()
	defer cl.mutex.RUnlock()

	state, exists := cl.connections[connectionID]
	if !exists {
		return nil, fmt.Errorf("connection %s not found", connectionID)
	}

	stateCopy := *state
	stateCopy.ReadyConditions = make(map[string]bool)
	for k, v := range state.ReadyConditions {
		stateCopy.ReadyConditions[k] = v
	}
	stateCopy.Metadata = make(map[string]interface{})
	for k, v := range state.Metadata {
		stateCopy.Metadata[k] = v
	}

	return &stateCopy, nil
}

// TerminateConnection marks a session as terminated and cleans up
func (cl *ConnectionLifecycle) TerminateConnection(connectionID string) error {
	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	state, exists := cl.connections[connectionID]
	if !exists {
		return fmt.Errorf("connection %s not found", connectionID)
	}

	if state.Phase == PhaseTerminated {
		logger.Base().Info("Connection already terminated", zap.String("connection_id", connectionID))
		return nil
	}

	state.Phase = PhaseTerminated
	state.UpdatedAt = time.Now()

	logger.Base().Info("Connection terminated", zap.String("connection_id", connectionID))
	event := NewConnectionEvent(ConnectionTerminated, connectionID).
		WithCallID(state.CallID).
		WithAgentID(state.AgentID)

	if err := cl.eventBus.PublishEvent(event); err != nil {
		logger.Base().Error("Failed to publish termination event", zap.String("connection_id", connectionID), zap.Error(err))
	}

	// Clean up after a delay to allow event processing
	go func() {
		time.Sleep(5 * time.Second)
		cl.cleanupConnection(connectionID)
	}()

	return nil
}

// GetAllConnections returns all current sessions
func (cl *ConnectionLifecycle) GetAllConnections() map[string]*ConnectionState {
	cl.mutex.RLock()
	defer cl.mutex.RUnlock()

	result := make(map[string]*ConnectionState)
	for id, state := range cl.connections {
		stateCopy := *state
		result[id] = &stateCopy
	}

	return result
}

// Close closes the lifecycle manager
func (cl *ConnectionLifecycle) Close() error {
	cl.cancel()

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	cl.connections = make(map[string]*ConnectionState)

	logger.Base().Info("connection lifecycle manager closed")
	return nil
}

// setupEventSubscriptions sets up event subscriptions for lifecycle management
func (cl *ConnectionLifecycle) setupEventSubscriptions() {
	cl.eventBus.Subscribe(CarrierStreamReady, func(event *ConnectionEvent) {
		if data, ok := event.GetCarrierData(); ok {
			cl.MarkDependencyReady(data.ConnectionID, DepCarrierStreamReady)
		}
	})

	cl.eventBus.Subscribe(CarrierCallAnswered, func(event *ConnectionEvent) {
		if data, ok := event.GetCarrierData(); ok {
			cl.MarkDependencyReady(data.ConnectionID, DepCarrierCallAnswered)
		}
	})

	cl.eventBus.Subscribe(ProviderConnectionInit, func(event *ConnectionEvent) {
		if data, ok := event.GetProviderData(); ok {
			cl.MarkDependencyReady(data.ConnectionID, DepProviderConnected)
		}
	})

	cl.eventBus.Subscribe(ProviderAudioReady, func(event *ConnectionEvent) {
		if data, ok := event.GetProviderData(); ok {
			cl.MarkDependencyReady(data.ConnectionID, DepProviderAudioReady)
		}
	})

	cl.eventBus.Subscribe(ProviderGreetingSent, func(event *ConnectionEvent) {
		if data, ok := event.GetProviderData(); ok {
			cl.MarkDependencyReady(data.ConnectionID, DepProviderGreetingSent)
		}
	})

	logger.Base().Info("Event subscriptions set up for lifecycle management")
}

// areAllDependenciesReady checks if all dependencies for a session are ready
func (cl *ConnectionLifecycle) areAllDependenciesReady(state *ConnectionState) bool {
	for _, ready := range state.ReadyConditions {
		if !ready {
			return false
		}
	}
	return true
}

// cleanupConnection removes a session from the lifecycle manager
func (cl *ConnectionLifecycle) cleanupConnection(connectionID string) {
	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	delete(cl.connections, connectionID)
	logger.Base().Info("Cleaned up connection from lifecycle", zap.String("connection_id", connectionID))
}
