// Package campaign implements the outbound dispatch loop: for every
// running Campaign, claim a batch of pending contacts and either place
// a voice call or send an SMS, honoring the campaign's sending window,
// the contact's opt-out flag, a per-number send-rate cap, and a
// per-campaign aggregate send-rate cap; then scan for due follow-ups and
// retire the campaign once nothing is left to do. Grounded on the
// teacher's pkg/redis rate/opt-out-set primitives (CampaignCooldown,
// OptOutSet key types already defined for this purpose), on the
// claim-a-row-for-exclusive-work shape
// internal/repository.CampaignContactRepository.NextBatch reuses from
// the teacher's session ownership pattern, and on
// original_source/backend/app/workers/campaign_worker.py's
// _process_initial_messages/_process_follow_ups/_check_completion scan
// order and template-rendering semantics.
package campaign

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Gahroot/the-tribunal-sub000/internal/carrier"
	"github.com/Gahroot/the-tribunal-sub000/internal/domain"
	"github.com/Gahroot/the-tribunal-sub000/internal/errs"
	"github.com/Gahroot/the-tribunal-sub000/internal/repository"
	"github.com/Gahroot/the-tribunal-sub000/internal/sms"
	"github.com/Gahroot/the-tribunal-sub000/pkg/logger"
	redispkg "github.com/Gahroot/the-tribunal-sub000/pkg/redis"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Dialer places outbound voice calls. Satisfied by *internal/carrier.Client.
type Dialer interface {
	OutboundDial(ctx context.Context, req carrier.OutboundDialRequest) (*carrier.OutboundDialResult, error)
}

// Sender sends outbound SMS messages. Satisfied by *internal/sms.Client.
type Sender interface {
	Send(ctx context.Context, req sms.SendRequest) (*sms.SendResult, error)
}

// RateLimiter enforces the per-number send cadence, the per-campaign
// aggregate send cadence, and the durable opt-out set, backed by Redis
// so the caps hold across pods.
type RateLimiter interface {
	AllowSend(ctx context.Context, phone string, perMinute int) (bool, error)
	// AllowCampaignSend reports whether campaignID is still under its
	// aggregate messages-per-minute cap, independent of any individual
	// number's own cadence.
	AllowCampaignSend(ctx context.Context, campaignID string, perMinute int) (bool, error)
	IsOptedOut(ctx context.Context, phone string) (bool, error)
}

// Planner caches the agent/bandit-arm selection for a just-placed call so
// it is ready when the carrier's media WebSocket connects. Satisfied by
// *internal/handler.WebhookHandler; nil is valid and simply skips planning
// (useful in tests and for SMS-only deployments with no voice leg wired up).
type Planner interface {
	PlanOutboundCall(ctx context.Context, callControlID, agentID string) error
}

// Config controls dispatch batch size and polling cadence.
type Config struct {
	PollInterval      time.Duration
	BatchSize         int
	PublicBaseURL     string
	DefaultFromNumber string
	// MaxDispatchPerSecond caps the combined call/SMS placement rate across
	// all campaigns, protecting the carrier and SMS provider APIs from a
	// thundering herd when a large batch comes due at once. Zero disables
	// the cap (dispatch as fast as the per-number Redis cooldown allows).
	MaxDispatchPerSecond float64
}

// Dispatcher runs the polling loop described in the package doc.
type Dispatcher struct {
	repos    repository.Manager
	dialer   Dialer
	sender   Sender
	limiter  RateLimiter
	planner  Planner
	cfg      Config
	now      func() time.Time
	throttle *rate.Limiter
}

// New creates a Dispatcher. planner may be nil.
func New(repos repository.Manager, dialer Dialer, sender Sender, limiter RateLimiter, planner Planner, cfg Config) *Dispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 25
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}

	var throttle *rate.Limiter
	if cfg.MaxDispatchPerSecond > 0 {
		throttle = rate.NewLimiter(rate.Limit(cfg.MaxDispatchPerSecond), 1)
	}

	return &Dispatcher{repos: repos, dialer: dialer, sender: sender, limiter: limiter, planner: planner, cfg: cfg, now: time.Now, throttle: throttle}
}

// Run polls on cfg.PollInterval until ctx is canceled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.tick(ctx); err != nil {
				logger.Base().Error("campaign dispatch tick failed", zap.Error(err))
			}
		}
	}
}

func (d *Dispatcher) tick(ctx context.Context) error {
	campaigns, err := d.repos.Campaign().GetRunning(ctx)
	if err != nil {
		return fmt.Errorf("list running campaigns: %w", err)
	}

	for _, c := range campaigns {
		if !c.WithinSendingWindow(d.now()) {
			continue
		}
		if err := d.dispatchCampaign(ctx, c); err != nil {
			logger.Base().Error("campaign batch dispatch failed",
				zap.String("campaign_id", c.ID), zap.Error(err))
		}
	}
	return nil
}

func (d *Dispatcher) dispatchCampaign(ctx context.Context, c *domain.Campaign) error {
	batch, err := d.repos.CampaignContact().NextBatch(ctx, c.ID, d.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("claim batch: %w", err)
	}
	for _, cc := range batch {
		if err := d.dispatchContact(ctx, c, cc); err != nil {
			logger.Base().Warn("campaign contact dispatch failed",
				zap.String("campaign_contact_id", cc.ID), zap.Error(err))
		}
	}

	followUps, err := d.repos.CampaignContact().FollowUpDue(ctx, c.ID, d.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("claim follow-up batch: %w", err)
	}
	for _, cc := range followUps {
		if err := d.dispatchFollowUp(ctx, c, cc); err != nil {
			logger.Base().Warn("campaign follow-up dispatch failed",
				zap.String("campaign_contact_id", cc.ID), zap.Error(err))
		}
	}

	return d.checkCompletion(ctx, c)
}

// checkCompletion retires c to CampaignCompleted once it has no pending
// enrollments and no follow-up still scheduled.
func (d *Dispatcher) checkCompletion(ctx context.Context, c *domain.Campaign) error {
	outstanding, err := d.repos.CampaignContact().HasOutstandingWork(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("check campaign completion: %w", err)
	}
	if outstanding {
		return nil
	}
	return d.repos.Campaign().UpdateStatus(ctx, c.ID, domain.CampaignCompleted)
}

func (d *Dispatcher) dispatchContact(ctx context.Context, c *domain.Campaign, cc *domain.CampaignContact) error {
	contact, err := d.repos.Contact().GetByID(ctx, cc.ContactID)
	if err != nil {
		return fmt.Errorf("load contact: %w", err)
	}

	optedOut, err := d.limiter.IsOptedOut(ctx, contact.Phone)
	if err != nil {
		return fmt.Errorf("check opt-out: %w", err)
	}
	if optedOut || contact.OptedOut {
		return d.repos.CampaignContact().UpdateStatus(ctx, cc.ID, domain.ContactOptedOut)
	}

	if !d.checkRateLimits(ctx, c, contact.Phone) {
		return nil // leave pending; picked up again next tick
	}

	switch c.Type {
	case domain.CampaignTypeSMS:
		return d.sendSMS(ctx, c, cc, contact)
	case domain.CampaignTypeVoiceSMSFallback:
		return d.placeCall(ctx, c, cc, contact)
	default:
		return errs.New(errs.KindInvalidInput, "campaign.dispatch", fmt.Errorf("unknown campaign type %q", c.Type))
	}
}

func (d *Dispatcher) dispatchFollowUp(ctx context.Context, c *domain.Campaign, cc *domain.CampaignContact) error {
	if c.FollowUpMessageTemplate == "" {
		return nil
	}

	contact, err := d.repos.Contact().GetByID(ctx, cc.ContactID)
	if err != nil {
		return fmt.Errorf("load contact: %w", err)
	}

	optedOut, err := d.limiter.IsOptedOut(ctx, contact.Phone)
	if err != nil {
		return fmt.Errorf("check opt-out: %w", err)
	}
	if optedOut || contact.OptedOut {
		return d.repos.CampaignContact().UpdateStatus(ctx, cc.ID, domain.ContactOptedOut)
	}

	if !d.checkRateLimits(ctx, c, contact.Phone) {
		return nil
	}

	body := renderTemplate(c.FollowUpMessageTemplate, contact, c)
	if _, err := d.sender.Send(ctx, sms.SendRequest{To: contact.Phone, From: d.cfg.DefaultFromNumber, Body: body}); err != nil {
		_ = d.repos.CampaignContact().MarkFailed(ctx, cc.ID, err.Error())
		return fmt.Errorf("send follow-up sms: %w", err)
	}

	var next *time.Time
	if cc.FollowUpsSent+1 < c.MaxFollowUps {
		t := d.now().Add(time.Duration(c.FollowUpDelayHours) * time.Hour)
		next = &t
	}
	if err := d.repos.CampaignContact().RecordFollowUp(ctx, cc.ID, next); err != nil {
		return fmt.Errorf("record follow-up: %w", err)
	}
	if next == nil {
		return d.repos.CampaignContact().UpdateStatus(ctx, cc.ID, domain.ContactCompleted)
	}
	return nil
}

// checkRateLimits enforces the per-number cooldown, the campaign's
// aggregate messages-per-minute cap, and the dispatcher-wide throughput
// throttle, in that order, cheapest check first.
func (d *Dispatcher) checkRateLimits(ctx context.Context, c *domain.Campaign, phone string) bool {
	allowed, err := d.limiter.AllowSend(ctx, phone, c.PerNumberPerMinute)
	if err != nil || !allowed {
		return false
	}

	campaignAllowed, err := d.limiter.AllowCampaignSend(ctx, c.ID, c.MessagesPerMinute)
	if err != nil || !campaignAllowed {
		return false
	}

	if d.throttle != nil {
		if err := d.throttle.Wait(ctx); err != nil {
			return false
		}
	}
	return true
}

func (d *Dispatcher) sendSMS(ctx context.Context, c *domain.Campaign, cc *domain.CampaignContact, contact *domain.Contact) error {
	body := renderTemplate(c.MessageTemplate, contact, c)
	if _, err := d.sender.Send(ctx, sms.SendRequest{To: contact.Phone, From: d.cfg.DefaultFromNumber, Body: body}); err != nil {
		_ = d.repos.CampaignContact().MarkFailed(ctx, cc.ID, err.Error())
		return fmt.Errorf("send sms: %w", err)
	}

	var next *time.Time
	if c.MaxFollowUps > 0 && c.FollowUpMessageTemplate != "" {
		t := d.now().Add(time.Duration(c.FollowUpDelayHours) * time.Hour)
		next = &t
	}
	return d.repos.CampaignContact().RecordSend(ctx, cc.ID, next)
}

// placeholderPattern matches {word} tokens; the inner name is looked up
// case-insensitively in the substitution map, and left untouched if not
// found there.
var placeholderPattern = regexp.MustCompile(`\{[A-Za-z_]+\}`)

// renderTemplate does case-insensitive literal substitution of contact
// and offer placeholders into template. Unknown placeholders pass
// through unchanged.
func renderTemplate(template string, contact *domain.Contact, c *domain.Campaign) string {
	fields := contact.TemplateFields()
	if c.OfferName != nil {
		fields["offer_name"] = *c.OfferName
		fields["offer_discount"] = c.OfferDiscountText()
		if c.OfferDescription != nil {
			fields["offer_description"] = *c.OfferDescription
		}
		if c.OfferTerms != nil {
			fields["offer_terms"] = *c.OfferTerms
		}
	}

	return placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		name := strings.ToLower(token[1 : len(token)-1])
		if value, ok := fields[name]; ok {
			return value
		}
		return token
	})
}

func (d *Dispatcher) placeCall(ctx context.Context, c *domain.Campaign, cc *domain.CampaignContact, contact *domain.Contact) error {
	result, err := d.dialer.OutboundDial(ctx, carrier.OutboundDialRequest{
		To:         contact.Phone,
		From:       d.cfg.DefaultFromNumber,
		WebhookURL: d.cfg.PublicBaseURL + "/voice/webhook",
	})
	if err != nil {
		_ = d.repos.CampaignContact().UpdateStatus(ctx, cc.ID, domain.ContactCallFailed)
		return fmt.Errorf("place call: %w", err)
	}

	if d.planner != nil && c.AgentID != nil {
		if err := d.planner.PlanOutboundCall(ctx, result.CallControlID, *c.AgentID); err != nil {
			logger.Base().Warn("failed to plan outbound call", zap.String("call_control_id", result.CallControlID), zap.Error(err))
		}
	}

	return d.repos.CampaignContact().RecordAttempt(ctx, cc.ID, result.CallControlID)
}

// RedisRateLimiter implements RateLimiter against go-redis, using the
// teacher's CampaignCooldown/OptOutSet key types and Incr/SAdd/SIsMember
// primitives unchanged in shape.
type RedisRateLimiter struct {
	redis redispkg.RedisServiceInterface
}

// NewRedisRateLimiter creates a RedisRateLimiter over redis.
func NewRedisRateLimiter(redis redispkg.RedisServiceInterface) *RedisRateLimiter {
	return &RedisRateLimiter{redis: redis}
}

// AllowSend increments phone's per-minute counter and reports whether it
// is still under perMinute.
func (r *RedisRateLimiter) AllowSend(ctx context.Context, phone string, perMinute int) (bool, error) {
	key := r.redis.GenerateKey(redispkg.CampaignCooldown, phone)
	count, err := r.redis.Incr(ctx, key, time.Minute)
	if err != nil {
		return false, fmt.Errorf("incr send rate counter: %w", err)
	}
	return count <= int64(perMinute), nil
}

// AllowCampaignSend increments campaignID's aggregate per-minute counter
// and reports whether it is still under perMinute, independent of any
// individual number's own cadence.
func (r *RedisRateLimiter) AllowCampaignSend(ctx context.Context, campaignID string, perMinute int) (bool, error) {
	key := r.redis.GenerateKey(redispkg.CampaignThroughput, campaignID)
	count, err := r.redis.Incr(ctx, key, time.Minute)
	if err != nil {
		return false, fmt.Errorf("incr campaign throughput counter: %w", err)
	}
	return count <= int64(perMinute), nil
}

// IsOptedOut checks the durable cross-campaign opt-out set.
func (r *RedisRateLimiter) IsOptedOut(ctx context.Context, phone string) (bool, error) {
	key := r.redis.GenerateKey(redispkg.OptOutSet, "global")
	return r.redis.SIsMember(ctx, key, phone)
}

// MarkOptedOut adds phone to the durable opt-out set that IsOptedOut
// checks.
func (r *RedisRateLimiter) MarkOptedOut(ctx context.Context, phone string) error {
	key := r.redis.GenerateKey(redispkg.OptOutSet, "global")
	return r.redis.SAdd(ctx, key, phone)
}
