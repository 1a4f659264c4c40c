package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"
)

const trainer = "coach@example.com"

var (
	hourService = Service{ID: "personal-training", Label: "Personal Training", DurationMinutes: 60, BufferMinutes: 10}
	halfService = Service{ID: "intro-call", Label: "Intro Call", DurationMinutes: 30}
)

func newTestEngine(gw *fakeGateway, now time.Time, opts ...Option) *Engine {
	opts = append([]Option{WithClock(func() time.Time { return now })}, opts...)
	return NewEngine(newMemStore(trainer), gw, "primary", testLoc, opts...)
}

func TestGetAvailableSlots_BufferAroundBusyEvent(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, testLoc)
	gw := &fakeGateway{events: []CalendarEvent{
		{Summary: "Available", Start: at(day, 9, 0), End: at(day, 12, 0)},
		{Summary: "Physio", Start: at(day, 10, 0), End: at(day, 10, 30)},
	}}
	e := newTestEngine(gw, day.AddDate(0, 0, -1))

	slots, err := e.GetAvailableSlots(context.Background(), trainer, day, hourService)
	if err != nil {
		t.Fatalf("GetAvailableSlots: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d: %+v", len(slots), slots)
	}
	if !slots[0].Start.Equal(at(day, 11, 0)) || !slots[0].End.Equal(at(day, 12, 0)) {
		t.Fatalf("expected 11:00-12:00, got %s-%s", slots[0].Start.Format(OffsetLayout), slots[0].End.Format(OffsetLayout))
	}

	if len(gw.listed) != 1 || !gw.listed[0][0].Equal(day) || !gw.listed[0][1].Equal(day.AddDate(0, 0, 1)) {
		t.Fatalf("expected events listed for the local day, got %+v", gw.listed)
	}
}

func TestGenerateSlots_BufferExclusion(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, testLoc)
	windows := []Window{{Start: at(day, 6, 0), End: at(day, 16, 0)}}
	busy := []Interval{{Start: at(day, 10, 0), End: at(day, 11, 0)}}
	svc := Service{ID: "s", DurationMinutes: 20, BufferMinutes: 10}

	slots := GenerateSlots(windows, busy, svc, day.AddDate(0, 0, -1))
	if len(slots) == 0 {
		t.Fatal("expected some slots")
	}
	for _, s := range slots {
		if s.End.After(at(day, 9, 50)) && s.Start.Before(at(day, 11, 10)) {
			t.Fatalf("slot %s-%s violates the buffer", s.Start.Format("15:04"), s.End.Format("15:04"))
		}
	}
	// 09:20-09:40 ends before 09:50; 11:20-11:40 starts after 11:10.
	var sawBefore, sawAfter bool
	for _, s := range slots {
		if s.Start.Equal(at(day, 9, 20)) {
			sawBefore = true
		}
		if s.Start.Equal(at(day, 11, 20)) {
			sawAfter = true
		}
	}
	if !sawBefore || !sawAfter {
		t.Fatalf("expected slots adjacent to the buffer, got %+v", slots)
	}
}

func TestGenerateSlots_ExactDurationWindow(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, testLoc)
	windows := []Window{{Start: at(day, 9, 15), End: at(day, 10, 15)}}

	slots := GenerateSlots(windows, nil, hourService, day.AddDate(0, 0, -1))
	if len(slots) != 1 || !slots[0].Start.Equal(at(day, 9, 15)) || !slots[0].End.Equal(at(day, 10, 15)) {
		t.Fatalf("expected the window itself as the only slot, got %+v", slots)
	}
}

func TestGenerateSlots_UnalignedWindowRoundsUp(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, testLoc)
	windows := []Window{{Start: at(day, 9, 10), End: at(day, 12, 0)}}

	slots := GenerateSlots(windows, nil, hourService, day.AddDate(0, 0, -1))
	if len(slots) != 2 || !slots[0].Start.Equal(at(day, 10, 0)) || !slots[1].Start.Equal(at(day, 11, 0)) {
		t.Fatalf("expected 10:00 and 11:00, got %+v", slots)
	}
}

func TestGenerateSlots_DefaultWindowBounds(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, testLoc)
	windows, busy := BuildWindows(nil, day, day.AddDate(0, 0, 1))

	slots := GenerateSlots(windows, busy, halfService, day.AddDate(0, 0, -1))
	if len(slots) != 18 {
		t.Fatalf("expected 18 half-hour slots, got %d", len(slots))
	}
	for _, s := range slots {
		if s.Start.Before(at(day, 9, 0)) || s.End.After(at(day, 18, 0)) {
			t.Fatalf("slot %s-%s outside default hours", s.Start.Format("15:04"), s.End.Format("15:04"))
		}
	}
}

func TestGenerateSlots_TodaySkipsPast(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, testLoc)
	now := at(day, 10, 20).Add(15 * time.Second)
	windows := []Window{
		{Start: at(day, 8, 0), End: at(day, 9, 0)},
		{Start: at(day, 9, 0), End: at(day, 18, 0)},
	}

	slots := GenerateSlots(windows, nil, hourService, now)
	if len(slots) != 7 {
		t.Fatalf("expected 7 slots from 11:00, got %d: %+v", len(slots), slots)
	}
	if !slots[0].Start.Equal(at(day, 11, 0)) {
		t.Fatalf("expected first slot at 11:00, got %s", slots[0].Start.Format("15:04"))
	}
	for _, s := range slots {
		if !s.Start.After(now) {
			t.Fatalf("slot at %s is not after now", s.Start.Format("15:04"))
		}
	}
}

func TestGenerateSlots_TodayAlignedNowIsExcluded(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, testLoc)
	windows := []Window{{Start: at(day, 9, 0), End: at(day, 13, 0)}}

	slots := GenerateSlots(windows, nil, hourService, at(day, 11, 0))
	if len(slots) != 1 || !slots[0].Start.Equal(at(day, 12, 0)) {
		t.Fatalf("expected only 12:00, got %+v", slots)
	}
}

func TestGenerateSlots_OverlappingWindowsNotMerged(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, testLoc)
	windows := []Window{
		{Start: at(day, 14, 0), End: at(day, 16, 0)},
		{Start: at(day, 9, 0), End: at(day, 10, 0)},
		{Start: at(day, 14, 0), End: at(day, 16, 0)},
	}

	slots := GenerateSlots(windows, nil, hourService, day.AddDate(0, 0, -1))
	want := []time.Time{at(day, 14, 0), at(day, 15, 0), at(day, 9, 0), at(day, 14, 0), at(day, 15, 0)}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d", len(want), len(slots))
	}
	for i, s := range slots {
		if !s.Start.Equal(want[i]) {
			t.Fatalf("slot %d: expected %s, got %s", i, want[i].Format("15:04"), s.Start.Format("15:04"))
		}
	}
}

func TestGetAvailableSlots_NotAuthenticated(t *testing.T) {
	gw := &fakeGateway{}
	e := NewEngine(newMemStore(), gw, "", testLoc)

	_, err := e.GetAvailableSlots(context.Background(), trainer, time.Now(), hourService)
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if len(gw.listed) != 0 {
		t.Fatal("gateway must not be called without a credential")
	}
}

func TestGetAvailableSlots_GatewayErrors(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, testLoc)
	cases := []struct {
		listErr error
		want    error
		code    string
	}{
		{errors.New("connection reset"), ErrCalendarUnavailable, "CalendarUnavailable"},
		{ErrCalendarAPIDisabled, ErrCalendarAPIDisabled, "CalendarApiDisabled"},
		{ErrAuthExpired, ErrAuthExpired, "AuthExpired"},
	}
	for _, tc := range cases {
		e := newTestEngine(&fakeGateway{listErr: tc.listErr}, day)
		slots, err := e.GetAvailableSlots(context.Background(), trainer, day, hourService)
		if !errors.Is(err, tc.want) {
			t.Fatalf("expected %v, got %v", tc.want, err)
		}
		if slots != nil {
			t.Fatalf("expected no partial results, got %+v", slots)
		}
		if code := ErrorCode(err); code != tc.code {
			t.Fatalf("expected code %s, got %s", tc.code, code)
		}
	}
}

func TestSlotJSONUsesNumericOffset(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, testLoc)
	b, err := Slot{Start: at(day, 9, 0), End: at(day, 10, 0)}.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	want := `{"start":"2025-06-01T09:00:00+03:00","end":"2025-06-01T10:00:00+03:00"}`
	if string(b) != want {
		t.Fatalf("expected %s, got %s", want, b)
	}

	b, err = Slot{Start: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC), End: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"start":"2025-06-01T09:00:00+00:00","end":"2025-06-01T10:00:00+00:00"}` {
		t.Fatalf("expected +00:00 offset for UTC, got %s", b)
	}
}
