// Package prompts assembles the system prompt sent to the AI provider at
// session start, in the fixed, deterministic order the provider expects:
// date context, identity, the agent's base prompt, per-call context,
// realism cues, search-tool guidance, IVR/DTMF navigation guidance,
// booking instructions, and inbound/outbound telephony guidance.
package prompts

import (
	"strings"
	"time"

	"github.com/Gahroot/the-tribunal-sub000/internal/domain"
)

// CallContext carries the per-call facts the prompt needs beyond the
// agent's own static configuration.
type CallContext struct {
	ContactName    string
	CompanyName    string
	OfferDetails   string
	Direction      domain.SessionDirection
	IVRNavigation  string // empty when IVR navigation is not active
	SupportsRealism bool
	Now            time.Time
}

// joinBlocks concatenates non-empty prompt sections with a blank line
// between them, the same joiner pattern used throughout this package.
func joinBlocks(blocks ...string) string {
	nonEmpty := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if strings.TrimSpace(b) != "" {
			nonEmpty = append(nonEmpty, strings.TrimSpace(b))
		}
	}
	return strings.Join(nonEmpty, "\n\n")
}

// Assemble builds the full system prompt for a session in the required
// order. systemPrompt carries the bandit-selected prompt text;
// agentConfig supplies the agent's display name for the identity clause.
func Assemble(agentConfig *domain.Agent, systemPrompt string, ctx CallContext) string {
	if ctx.Now.IsZero() {
		ctx.Now = time.Now()
	}

	return joinBlocks(
		datePreamble(ctx.Now),
		identityClause(agentConfig.DisplayName),
		systemPrompt,
		perCallContext(ctx),
		realismCues(ctx.SupportsRealism),
		searchToolGuidance(),
		ctx.IVRNavigation,
		bookingInstructions(ctx.Now),
		telephonyGuidance(ctx.Direction),
	)
}

func datePreamble(now time.Time) string {
	return "Today's date is " + now.Format("Monday, January 2, 2006") + "."
}

func identityClause(agentName string) string {
	if agentName == "" {
		return ""
	}
	return "You are " + agentName + ". Always stay in character as " + agentName + " and never reveal you are an AI system."
}

func perCallContext(ctx CallContext) string {
	var parts []string
	if ctx.ContactName != "" {
		parts = append(parts, "You are speaking with "+ctx.ContactName+".")
	}
	if ctx.CompanyName != "" {
		parts = append(parts, "The company is "+ctx.CompanyName+".")
	}
	if ctx.OfferDetails != "" {
		parts = append(parts, "Offer context: "+ctx.OfferDetails)
	}
	return strings.Join(parts, " ")
}

func realismCues(supported bool) string {
	if !supported {
		return ""
	}
	return "Use natural speech disfluencies sparingly (occasional \"um\", brief pauses) to sound human, without overdoing it."
}

func searchToolGuidance() string {
	return "If the caller asks something you do not know, say so plainly rather than inventing an answer."
}

func bookingInstructions(now time.Time) string {
	return "When booking an appointment, always use check_availability first and offer ONLY the times it returns; do not invent times. " +
		"The current date is " + now.Format("2006-01-02") + " — resolve any relative date the caller gives (\"tomorrow\", \"next Tuesday\") against it."
}

func telephonyGuidance(direction domain.SessionDirection) string {
	if direction == domain.DirectionOutbound {
		return "This is an outbound call you initiated. Open with a brief pattern-interrupt: introduce yourself, name that this is a sales call, and ask permission to continue before pitching anything."
	}
	return "This is an inbound call. Greet the caller naturally using the configured greeting before proceeding."
}
