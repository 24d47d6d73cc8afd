package campaign

import (
	"context"
	"testing"
	"time"

	"github.com/Gahroot/the-tribunal-sub000/internal/carrier"
	"github.com/Gahroot/the-tribunal-sub000/internal/domain"
	"github.com/Gahroot/the-tribunal-sub000/internal/repository"
	"github.com/Gahroot/the-tribunal-sub000/internal/sms"
)

type fakeCampaignRepo struct {
	running  []*domain.Campaign
	statuses map[string]domain.CampaignStatus
}

func (f *fakeCampaignRepo) Create(ctx context.Context, req *domain.CreateCampaignRequest) (*domain.Campaign, error) {
	return nil, nil
}
func (f *fakeCampaignRepo) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	return nil, nil
}
func (f *fakeCampaignRepo) GetRunning(ctx context.Context) ([]*domain.Campaign, error) {
	return f.running, nil
}
func (f *fakeCampaignRepo) UpdateStatus(ctx context.Context, id string, status domain.CampaignStatus) error {
	if f.statuses == nil {
		f.statuses = map[string]domain.CampaignStatus{}
	}
	f.statuses[id] = status
	return nil
}

type fakeCampaignContactRepo struct {
	batch       []*domain.CampaignContact
	followUps   []*domain.CampaignContact
	outstanding bool
	statuses    map[string]domain.CampaignContactStatus
	attempts    map[string]string
	lastErrors  map[string]string
	nextFollowUps map[string]*time.Time
}

func newFakeCampaignContactRepo() *fakeCampaignContactRepo {
	return &fakeCampaignContactRepo{
		statuses:   map[string]domain.CampaignContactStatus{},
		attempts:   map[string]string{},
		lastErrors: map[string]string{},
		nextFollowUps: map[string]*time.Time{},
	}
}

func (f *fakeCampaignContactRepo) Enroll(ctx context.Context, campaignID, contactID string) (*domain.CampaignContact, error) {
	return nil, nil
}
func (f *fakeCampaignContactRepo) NextBatch(ctx context.Context, campaignID string, limit int) ([]*domain.CampaignContact, error) {
	return f.batch, nil
}
func (f *fakeCampaignContactRepo) FollowUpDue(ctx context.Context, campaignID string, limit int) ([]*domain.CampaignContact, error) {
	return f.followUps, nil
}
func (f *fakeCampaignContactRepo) UpdateStatus(ctx context.Context, id string, status domain.CampaignContactStatus) error {
	f.statuses[id] = status
	return nil
}
func (f *fakeCampaignContactRepo) RecordAttempt(ctx context.Context, id, callControlID string) error {
	f.statuses[id] = domain.ContactCalling
	f.attempts[id] = callControlID
	return nil
}
func (f *fakeCampaignContactRepo) RecordSend(ctx context.Context, id string, nextFollowUpAt *time.Time) error {
	f.statuses[id] = domain.ContactSent
	f.nextFollowUps[id] = nextFollowUpAt
	return nil
}
func (f *fakeCampaignContactRepo) RecordFollowUp(ctx context.Context, id string, nextFollowUpAt *time.Time) error {
	return nil
}
func (f *fakeCampaignContactRepo) MarkFailed(ctx context.Context, id string, reason string) error {
	f.statuses[id] = domain.ContactFailed
	f.lastErrors[id] = reason
	return nil
}
func (f *fakeCampaignContactRepo) HasOutstandingWork(ctx context.Context, campaignID string) (bool, error) {
	return f.outstanding, nil
}

type fakeContactRepo struct {
	byID map[string]*domain.Contact
}

func (f *fakeContactRepo) Create(ctx context.Context, req *domain.CreateContactRequest) (*domain.Contact, error) {
	return nil, nil
}
func (f *fakeContactRepo) GetByID(ctx context.Context, id string) (*domain.Contact, error) {
	return f.byID[id], nil
}
func (f *fakeContactRepo) GetByWorkspaceAndPhone(ctx context.Context, workspace, phone string) (*domain.Contact, error) {
	return nil, nil
}
func (f *fakeContactRepo) MarkOptedOut(ctx context.Context, id string) error { return nil }
func (f *fakeContactRepo) IsOptedOut(ctx context.Context, workspace, phone string) (bool, error) {
	return false, nil
}

type fakeManager struct {
	campaign        *fakeCampaignRepo
	campaignContact *fakeCampaignContactRepo
	contact         *fakeContactRepo
}

func (m *fakeManager) Agent() repository.AgentRepository                     { return nil }
func (m *fakeManager) PromptVersion() repository.PromptVersionRepository     { return nil }
func (m *fakeManager) Session() repository.SessionRepository                 { return nil }
func (m *fakeManager) Contact() repository.ContactRepository                 { return m.contact }
func (m *fakeManager) Campaign() repository.CampaignRepository               { return m.campaign }
func (m *fakeManager) CampaignContact() repository.CampaignContactRepository { return m.campaignContact }
func (m *fakeManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos repository.Manager) error) error {
	return fn(ctx, m)
}
func (m *fakeManager) Ping(ctx context.Context) error { return nil }
func (m *fakeManager) Close() error                   { return nil }

type fakeDialer struct {
	calls   []carrier.OutboundDialRequest
	result  *carrier.OutboundDialResult
	failErr error
}

func (f *fakeDialer) OutboundDial(ctx context.Context, req carrier.OutboundDialRequest) (*carrier.OutboundDialResult, error) {
	f.calls = append(f.calls, req)
	if f.failErr != nil {
		return nil, f.failErr
	}
	return f.result, nil
}

type fakeSender struct {
	calls []sms.SendRequest
}

func (f *fakeSender) Send(ctx context.Context, req sms.SendRequest) (*sms.SendResult, error) {
	f.calls = append(f.calls, req)
	return &sms.SendResult{MessageID: "msg-1"}, nil
}

type fakeLimiter struct {
	optedOut map[string]bool
	allow    bool
}

func (f *fakeLimiter) AllowSend(ctx context.Context, phone string, perMinute int) (bool, error) {
	return f.allow, nil
}
func (f *fakeLimiter) AllowCampaignSend(ctx context.Context, campaignID string, perMinute int) (bool, error) {
	return f.allow, nil
}
func (f *fakeLimiter) IsOptedOut(ctx context.Context, phone string) (bool, error) {
	return f.optedOut[phone], nil
}

func runningSMSCampaign() *domain.Campaign {
	return &domain.Campaign{
		ID:                     "camp-1",
		Type:                   domain.CampaignTypeSMS,
		Status:                 domain.CampaignRunning,
		MessageTemplate:        "hi there",
		SendingWindowStartHour: 0,
		SendingWindowEndHour:   24,
		Timezone:               "UTC",
		PerNumberPerMinute:     3,
	}
}

func TestDispatchSendsSMSAndMarksSent(t *testing.T) {
	campaign := runningSMSCampaign()
	ccRepo := newFakeCampaignContactRepo()
	contact := &domain.Contact{ID: "contact-1", Phone: "+15550001111"}
	mgr := &fakeManager{
		campaign:        &fakeCampaignRepo{running: []*domain.Campaign{campaign}},
		campaignContact: ccRepo,
		contact:         &fakeContactRepo{byID: map[string]*domain.Contact{"contact-1": contact}},
	}
	ccRepo.batch = []*domain.CampaignContact{{ID: "cc-1", CampaignID: "camp-1", ContactID: "contact-1"}}

	sender := &fakeSender{}
	limiter := &fakeLimiter{optedOut: map[string]bool{}, allow: true}
	d := New(mgr, &fakeDialer{}, sender, limiter, nil, Config{})

	if err := d.tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sender.calls) != 1 {
		t.Fatalf("expected exactly one sms send, got %d", len(sender.calls))
	}
	if sender.calls[0].To != "+15550001111" {
		t.Errorf("expected sms sent to contact phone, got %q", sender.calls[0].To)
	}
	if ccRepo.statuses["cc-1"] != domain.ContactSent {
		t.Errorf("expected status sent, got %q", ccRepo.statuses["cc-1"])
	}
}

func TestDispatchSkipsOptedOutContact(t *testing.T) {
	campaign := runningSMSCampaign()
	ccRepo := newFakeCampaignContactRepo()
	contact := &domain.Contact{ID: "contact-1", Phone: "+15550001111"}
	mgr := &fakeManager{
		campaign:        &fakeCampaignRepo{running: []*domain.Campaign{campaign}},
		campaignContact: ccRepo,
		contact:         &fakeContactRepo{byID: map[string]*domain.Contact{"contact-1": contact}},
	}
	ccRepo.batch = []*domain.CampaignContact{{ID: "cc-1", CampaignID: "camp-1", ContactID: "contact-1"}}

	sender := &fakeSender{}
	limiter := &fakeLimiter{optedOut: map[string]bool{"+15550001111": true}, allow: true}
	d := New(mgr, &fakeDialer{}, sender, limiter, nil, Config{})

	if err := d.tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sender.calls) != 0 {
		t.Fatalf("expected no sms sent to opted-out contact, got %d", len(sender.calls))
	}
	if ccRepo.statuses["cc-1"] != domain.ContactOptedOut {
		t.Errorf("expected status opted_out, got %q", ccRepo.statuses["cc-1"])
	}
}

func TestDispatchLeavesContactPendingWhenRateLimited(t *testing.T) {
	campaign := runningSMSCampaign()
	ccRepo := newFakeCampaignContactRepo()
	contact := &domain.Contact{ID: "contact-1", Phone: "+15550001111"}
	mgr := &fakeManager{
		campaign:        &fakeCampaignRepo{running: []*domain.Campaign{campaign}},
		campaignContact: ccRepo,
		contact:         &fakeContactRepo{byID: map[string]*domain.Contact{"contact-1": contact}},
	}
	ccRepo.batch = []*domain.CampaignContact{{ID: "cc-1", CampaignID: "camp-1", ContactID: "contact-1"}}

	sender := &fakeSender{}
	limiter := &fakeLimiter{optedOut: map[string]bool{}, allow: false}
	d := New(mgr, &fakeDialer{}, sender, limiter, nil, Config{})

	if err := d.tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.calls) != 0 {
		t.Fatalf("expected no send while rate limited, got %d", len(sender.calls))
	}
	if _, ok := ccRepo.statuses["cc-1"]; ok {
		t.Errorf("expected contact status untouched while rate limited, got %q", ccRepo.statuses["cc-1"])
	}
}

func TestDispatchPlacesCallForVoiceCampaign(t *testing.T) {
	campaign := runningSMSCampaign()
	campaign.Type = domain.CampaignTypeVoiceSMSFallback
	ccRepo := newFakeCampaignContactRepo()
	contact := &domain.Contact{ID: "contact-1", Phone: "+15550001111"}
	mgr := &fakeManager{
		campaign:        &fakeCampaignRepo{running: []*domain.Campaign{campaign}},
		campaignContact: ccRepo,
		contact:         &fakeContactRepo{byID: map[string]*domain.Contact{"contact-1": contact}},
	}
	ccRepo.batch = []*domain.CampaignContact{{ID: "cc-1", CampaignID: "camp-1", ContactID: "contact-1"}}

	dialer := &fakeDialer{result: &carrier.OutboundDialResult{CallControlID: "call-99"}}
	limiter := &fakeLimiter{optedOut: map[string]bool{}, allow: true}
	d := New(mgr, dialer, &fakeSender{}, limiter, nil, Config{PublicBaseURL: "https://bridge.example.com"})

	if err := d.tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(dialer.calls) != 1 {
		t.Fatalf("expected exactly one outbound dial, got %d", len(dialer.calls))
	}
	if dialer.calls[0].WebhookURL != "https://bridge.example.com/voice/webhook" {
		t.Errorf("unexpected webhook url: %q", dialer.calls[0].WebhookURL)
	}
	if ccRepo.attempts["cc-1"] != "call-99" {
		t.Errorf("expected recorded call control id call-99, got %q", ccRepo.attempts["cc-1"])
	}
}

func TestDispatchRendersTemplatePlaceholders(t *testing.T) {
	campaign := runningSMSCampaign()
	campaign.MessageTemplate = "Hi {first_name} {last_name} from {company_name}, offer: {offer_discount}. Unknown: {not_a_field}."
	offerName := "Summer Sale"
	discountType := "percentage"
	discountValue := 20.0
	campaign.OfferName = &offerName
	campaign.OfferDiscountType = &discountType
	campaign.OfferDiscountValue = &discountValue

	ccRepo := newFakeCampaignContactRepo()
	company := "Acme Corp"
	contact := &domain.Contact{ID: "contact-1", Phone: "+15550001111", Name: "Jane Doe", CompanyName: &company}
	mgr := &fakeManager{
		campaign:        &fakeCampaignRepo{running: []*domain.Campaign{campaign}},
		campaignContact: ccRepo,
		contact:         &fakeContactRepo{byID: map[string]*domain.Contact{"contact-1": contact}},
	}
	ccRepo.batch = []*domain.CampaignContact{{ID: "cc-1", CampaignID: "camp-1", ContactID: "contact-1"}}

	sender := &fakeSender{}
	limiter := &fakeLimiter{optedOut: map[string]bool{}, allow: true}
	d := New(mgr, &fakeDialer{}, sender, limiter, nil, Config{})

	if err := d.tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sender.calls) != 1 {
		t.Fatalf("expected exactly one sms send, got %d", len(sender.calls))
	}
	want := "Hi Jane Doe from Acme Corp, offer: 20% off. Unknown: {not_a_field}."
	if sender.calls[0].Body != want {
		t.Errorf("unexpected rendered body:\n got: %q\nwant: %q", sender.calls[0].Body, want)
	}
}

func TestDispatchSchedulesFollowUpAfterInitialSend(t *testing.T) {
	campaign := runningSMSCampaign()
	campaign.FollowUpMessageTemplate = "just checking in, {first_name}"
	campaign.MaxFollowUps = 2
	campaign.FollowUpDelayHours = 24

	ccRepo := newFakeCampaignContactRepo()
	contact := &domain.Contact{ID: "contact-1", Phone: "+15550001111", Name: "Jane Doe"}
	mgr := &fakeManager{
		campaign:        &fakeCampaignRepo{running: []*domain.Campaign{campaign}},
		campaignContact: ccRepo,
		contact:         &fakeContactRepo{byID: map[string]*domain.Contact{"contact-1": contact}},
	}
	ccRepo.batch = []*domain.CampaignContact{{ID: "cc-1", CampaignID: "camp-1", ContactID: "contact-1"}}

	sender := &fakeSender{}
	limiter := &fakeLimiter{optedOut: map[string]bool{}, allow: true}
	d := New(mgr, &fakeDialer{}, sender, limiter, nil, Config{})

	if err := d.tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ccRepo.statuses["cc-1"] != domain.ContactSent {
		t.Fatalf("expected status sent after initial send, got %q", ccRepo.statuses["cc-1"])
	}
	next := ccRepo.nextFollowUps["cc-1"]
	if next == nil {
		t.Fatal("expected a follow-up to be scheduled after the initial send")
	}
	if delay := time.Until(*next); delay < 23*time.Hour || delay > 25*time.Hour {
		t.Errorf("expected follow-up scheduled ~24h out, got %v", delay)
	}
}

func TestDispatchSendsDueFollowUpAndTerminatesChain(t *testing.T) {
	campaign := runningSMSCampaign()
	campaign.FollowUpMessageTemplate = "just checking in, {first_name}"
	campaign.MaxFollowUps = 1
	campaign.FollowUpDelayHours = 24

	ccRepo := newFakeCampaignContactRepo()
	contact := &domain.Contact{ID: "contact-1", Phone: "+15550001111", Name: "Jane Doe"}
	mgr := &fakeManager{
		campaign:        &fakeCampaignRepo{running: []*domain.Campaign{campaign}},
		campaignContact: ccRepo,
		contact:         &fakeContactRepo{byID: map[string]*domain.Contact{"contact-1": contact}},
	}
	due := time.Now().Add(-time.Minute)
	ccRepo.followUps = []*domain.CampaignContact{
		{ID: "cc-1", CampaignID: "camp-1", ContactID: "contact-1", Status: domain.ContactSent, FollowUpsSent: 0, NextFollowUpAt: &due},
	}

	sender := &fakeSender{}
	limiter := &fakeLimiter{optedOut: map[string]bool{}, allow: true}
	d := New(mgr, &fakeDialer{}, sender, limiter, nil, Config{})

	if err := d.tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sender.calls) != 1 {
		t.Fatalf("expected exactly one follow-up sms send, got %d", len(sender.calls))
	}
	// MaxFollowUps is 1 and FollowUpsSent was 0, so this follow-up exhausts
	// the chain and the contact should transition to completed.
	if ccRepo.statuses["cc-1"] != domain.ContactCompleted {
		t.Errorf("expected status completed after exhausting follow-up chain, got %q", ccRepo.statuses["cc-1"])
	}
}

func TestDispatchMarksCampaignCompletedWhenNoOutstandingWork(t *testing.T) {
	campaign := runningSMSCampaign()
	ccRepo := newFakeCampaignContactRepo()
	ccRepo.outstanding = false
	campaignRepo := &fakeCampaignRepo{running: []*domain.Campaign{campaign}}
	mgr := &fakeManager{
		campaign:        campaignRepo,
		campaignContact: ccRepo,
		contact:         &fakeContactRepo{byID: map[string]*domain.Contact{}},
	}

	sender := &fakeSender{}
	limiter := &fakeLimiter{optedOut: map[string]bool{}, allow: true}
	d := New(mgr, &fakeDialer{}, sender, limiter, nil, Config{})

	if err := d.tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if campaignRepo.statuses["camp-1"] != domain.CampaignCompleted {
		t.Errorf("expected campaign marked completed, got %q", campaignRepo.statuses["camp-1"])
	}
}

func TestDispatchLeavesCampaignRunningWithOutstandingWork(t *testing.T) {
	campaign := runningSMSCampaign()
	ccRepo := newFakeCampaignContactRepo()
	ccRepo.outstanding = true
	campaignRepo := &fakeCampaignRepo{running: []*domain.Campaign{campaign}}
	mgr := &fakeManager{
		campaign:        campaignRepo,
		campaignContact: ccRepo,
		contact:         &fakeContactRepo{byID: map[string]*domain.Contact{}},
	}

	sender := &fakeSender{}
	limiter := &fakeLimiter{optedOut: map[string]bool{}, allow: true}
	d := New(mgr, &fakeDialer{}, sender, limiter, nil, Config{})

	if err := d.tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := campaignRepo.statuses["camp-1"]; ok {
		t.Errorf("expected campaign status untouched while work is outstanding, got %q", campaignRepo.statuses["camp-1"])
	}
}

func TestDispatchSkipsCampaignOutsideSendingWindow(t *testing.T) {
	campaign := runningSMSCampaign()
	campaign.SendingWindowStartHour = 9
	campaign.SendingWindowEndHour = 10
	ccRepo := newFakeCampaignContactRepo()
	mgr := &fakeManager{
		campaign:        &fakeCampaignRepo{running: []*domain.Campaign{campaign}},
		campaignContact: ccRepo,
		contact:         &fakeContactRepo{byID: map[string]*domain.Contact{}},
	}
	ccRepo.batch = []*domain.CampaignContact{{ID: "cc-1", CampaignID: "camp-1", ContactID: "contact-1"}}

	sender := &fakeSender{}
	d := New(mgr, &fakeDialer{}, sender, &fakeLimiter{optedOut: map[string]bool{}, allow: true}, nil, Config{})
	d.now = func() time.Time { return time.Date(2026, 1, 1, 2, 0, 0, 0, time.UTC) }

	if err := d.tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.calls) != 0 {
		t.Fatalf("expected no dispatch outside sending window, got %d sends", len(sender.calls))
	}
}
