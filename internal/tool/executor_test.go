package tool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gahroot/the-tribunal-sub000/internal/calendar"
)

type fakeCalendar struct {
	slots       []calendar.Slot
	bookErr     error
	availErr    error
	bookingCall calendar.CreateBookingRequest
}

func (f *fakeCalendar) GetAvailability(ctx context.Context, eventTypeID string, startDate, endDate time.Time, timezone string) ([]calendar.Slot, error) {
	if f.availErr != nil {
		return nil, f.availErr
	}
	return f.slots, nil
}

func (f *fakeCalendar) CreateBooking(ctx context.Context, req calendar.CreateBookingRequest) (*calendar.Booking, error) {
	f.bookingCall = req
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	return &calendar.Booking{ID: "1", UID: "booking-uid"}, nil
}

type fakeDTMF struct {
	sent string
	err  error
}

func (f *fakeDTMF) ScanAndSend(ctx context.Context, transcript string) (string, error) {
	return f.sent, f.err
}

func TestCheckAvailabilitySuccess(t *testing.T) {
	cal := &fakeCalendar{slots: []calendar.Slot{{ISO: "2026-08-01T14:00:00.000Z", Time: "14:00", DisplayTime: "2:00 PM"}}}
	e := NewExecutor(cal, "evt-1", "UTC", &fakeDTMF{})

	res := e.Execute(context.Background(), NameCheckAvailability, `{"start_date":"2026-08-01"}`)
	if !res.Success || len(res.Slots) != 1 {
		t.Fatalf("expected success with one slot, got %+v", res)
	}
}

func TestCheckAvailabilityBadDate(t *testing.T) {
	e := NewExecutor(&fakeCalendar{}, "evt-1", "UTC", &fakeDTMF{})
	res := e.Execute(context.Background(), NameCheckAvailability, `{"start_date":"not-a-date"}`)
	if res.Success {
		t.Fatal("expected failure for malformed date")
	}
}

func TestBookAppointmentSlotGone(t *testing.T) {
	cal := &fakeCalendar{slots: []calendar.Slot{{ISO: "2026-08-01T15:00:00.000Z", Time: "15:00"}}}
	e := NewExecutor(cal, "evt-1", "UTC", &fakeDTMF{})

	res := e.Execute(context.Background(), NameBookAppointment, `{"date":"2026-08-01","time":"14:00","email":"a@b.com"}`)
	if res.Success {
		t.Fatal("expected failure when requested slot is no longer available")
	}
	if len(res.AlternativeSlots) != 1 {
		t.Fatalf("expected 1 alternative slot, got %d", len(res.AlternativeSlots))
	}
}

func TestBookAppointmentSuccessRecordsOutcome(t *testing.T) {
	cal := &fakeCalendar{slots: []calendar.Slot{{ISO: "2026-08-01T14:00:00.000Z", Time: "14:00"}}}
	e := NewExecutor(cal, "evt-1", "UTC", &fakeDTMF{})

	var recordedOutcome string
	e.OnBookingOutcome = func(outcome string) { recordedOutcome = outcome }

	res := e.Execute(context.Background(), NameBookAppointment, `{"date":"2026-08-01","time":"14:00","email":"a@b.com"}`)
	if !res.Success || res.BookingUID != "booking-uid" {
		t.Fatalf("expected successful booking, got %+v", res)
	}
	if recordedOutcome != "success" {
		t.Fatalf("expected outcome 'success' to be recorded, got %q", recordedOutcome)
	}
}

func TestBookAppointmentCreateFailureRecordsOutcome(t *testing.T) {
	cal := &fakeCalendar{
		slots:   []calendar.Slot{{ISO: "2026-08-01T14:00:00.000Z", Time: "14:00"}},
		bookErr: errors.New("provider error"),
	}
	e := NewExecutor(cal, "evt-1", "UTC", &fakeDTMF{})

	var recordedOutcome string
	e.OnBookingOutcome = func(outcome string) { recordedOutcome = outcome }

	res := e.Execute(context.Background(), NameBookAppointment, `{"date":"2026-08-01","time":"14:00","email":"a@b.com"}`)
	if res.Success {
		t.Fatal("expected failure when create booking errors")
	}
	if recordedOutcome != "failed" {
		t.Fatalf("expected outcome 'failed', got %q", recordedOutcome)
	}
}

func TestSendDTMFRejectsInvalidCharset(t *testing.T) {
	e := NewExecutor(&fakeCalendar{}, "evt-1", "UTC", &fakeDTMF{})
	res := e.Execute(context.Background(), NameSendDTMF, `{"digits":"1x2"}`)
	if res.Success {
		t.Fatal("expected failure for invalid charset")
	}
}

func TestSendDTMFSuccess(t *testing.T) {
	e := NewExecutor(&fakeCalendar{}, "evt-1", "UTC", &fakeDTMF{sent: "1"})
	res := e.Execute(context.Background(), NameSendDTMF, `{"digits":"1"}`)
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
}

func TestUnknownToolName(t *testing.T) {
	e := NewExecutor(&fakeCalendar{}, "evt-1", "UTC", &fakeDTMF{})
	res := e.Execute(context.Background(), Name("not_a_tool"), `{}`)
	if res.Success {
		t.Fatal("expected failure for unknown tool")
	}
}
