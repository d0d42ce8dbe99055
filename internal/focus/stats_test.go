package focus

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/sadopc/flow/internal/clock"
	"github.com/sadopc/flow/internal/store"
)

func newTestStats(t *testing.T, user string) (*Stats, *fakeGateway, *clock.FakeClock) {
	t.Helper()
	gw := newFakeGateway()
	clk := clock.Fake(epoch)
	return NewStats(gw, fixedUser(user), clk, discardLogger()), gw, clk
}

func day(offset int) string {
	return store.DateKey(epoch.AddDate(0, 0, offset))
}

func stat(date string, secs int64) store.DailyStat {
	return store.DailyStat{Date: date, TotalFocusSeconds: secs, SessionCount: 1}
}

// ============================================================
// Daily stats
// ============================================================

func TestFetchDailyStatsRangeReplace(t *testing.T) {
	s, gw, _ := newTestStats(t, "user-1")
	ctx := context.Background()

	// d1..d7 from the first answer.
	var first []store.DailyStat
	for i := 1; i <= 7; i++ {
		first = append(first, stat(day(i), 100))
	}
	gw.setDaily(first...)
	if err := s.FetchDailyStats(ctx, day(1), day(7)); err != nil {
		t.Fatal(err)
	}

	// d4..d10 from the second answer, with new values.
	var second []store.DailyStat
	for i := 4; i <= 10; i++ {
		second = append(second, stat(day(i), 200))
	}
	gw.setDaily(second...)
	if err := s.FetchDailyStats(ctx, day(4), day(10)); err != nil {
		t.Fatal(err)
	}

	got := s.DailyStats()
	if len(got) != 10 {
		t.Fatalf("expected one entry per date d1..d10, got %d: %+v", len(got), got)
	}
	seen := make(map[string]bool)
	for _, d := range got {
		if seen[d.Date] {
			t.Fatalf("duplicate date %s", d.Date)
		}
		seen[d.Date] = true
	}
	for i, d := range got {
		want := int64(100)
		if i >= 3 {
			want = 200
		}
		if d.TotalFocusSeconds != want {
			t.Fatalf("%s total = %d, want %d", d.Date, d.TotalFocusSeconds, want)
		}
	}
}

func TestFetchDailyStatsDropsMissingDates(t *testing.T) {
	s, gw, _ := newTestStats(t, "user-1")
	ctx := context.Background()

	gw.setDaily(stat(day(-2), 300), stat(day(-1), 300), stat(day(0), 300))
	s.FetchDailyStats(ctx, day(-2), day(0))

	gw.setDaily(stat(day(0), 300))
	if err := s.FetchDailyStats(ctx, day(-2), day(0)); err != nil {
		t.Fatal(err)
	}
	got := s.DailyStats()
	if len(got) != 1 || got[0].Date != day(0) {
		t.Fatalf("expected only today left, got %+v", got)
	}
}

func TestFetchDailyStatsIdempotent(t *testing.T) {
	s, gw, _ := newTestStats(t, "user-1")
	ctx := context.Background()
	gw.setDaily(stat(day(-3), 600), stat(day(-1), 1200))

	s.FetchDailyStats(ctx, day(-7), day(0))
	first := s.DailyStats()
	s.FetchDailyStats(ctx, day(-7), day(0))
	second := s.DailyStats()

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("cache changed across identical fetches:\n%+v\n%+v", first, second)
	}
}

func TestFetchDailyStatsStaleResponseIgnored(t *testing.T) {
	s, gw, _ := newTestStats(t, "user-1")
	ctx := context.Background()

	gw.setDaily(stat(day(0), 100))
	entered := make(chan struct{})
	release := make(chan struct{})
	gw.beforeDaily = func(start, end string) {
		if start == day(-1) {
			close(entered)
			<-release
		}
	}

	// The older fetch reads 100 and stalls.
	done := make(chan error, 1)
	go func() { done <- s.FetchDailyStats(ctx, day(-1), day(0)) }()
	<-entered

	// A newer fetch lands first with 500.
	gw.setDaily(stat(day(0), 500))
	if err := s.FetchDailyStats(ctx, day(0), day(0)); err != nil {
		t.Fatal(err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	if got := s.TodayFocusSeconds(); got != 500 {
		t.Fatalf("today = %d, want 500 from the newer fetch", got)
	}
}

func TestFetchFailureKeepsStaleData(t *testing.T) {
	s, gw, _ := newTestStats(t, "user-1")
	ctx := context.Background()
	gw.setDaily(stat(day(0), 900))
	gw.userStats = store.UserStats{TotalSessions: 3}
	s.FetchDailyStats(ctx, day(0), day(0))
	s.FetchUserStats(ctx)

	gw.setFail("GetDailyStats", errBoom)
	gw.setFail("GetUserStats", errBoom)
	gw.setDaily()
	if err := s.FetchDailyStats(ctx, day(0), day(0)); !errors.Is(err, errBoom) {
		t.Fatalf("expected wrapped failure, got %v", err)
	}
	if err := s.FetchUserStats(ctx); !errors.Is(err, errBoom) {
		t.Fatalf("expected wrapped failure, got %v", err)
	}

	if s.TodayFocusSeconds() != 900 || s.Summary().TotalSessions != 3 {
		t.Fatal("failed fetch discarded cached values")
	}
	if !errors.Is(s.Err(), errBoom) {
		t.Fatalf("Err() = %v, want the failure", s.Err())
	}
	s.ClearError()
	if s.Err() != nil {
		t.Fatal("ClearError left an error")
	}

	gw.setFail("GetDailyStats", nil)
	gw.setFail("GetUserStats", errBoom)
	s.FetchUserStats(ctx)
	if err := s.FetchDailyStats(ctx, day(0), day(0)); err != nil {
		t.Fatal(err)
	}
	if s.Err() != nil {
		t.Fatalf("successful fetch left Err() = %v", s.Err())
	}
}

func TestStatsWithoutUserSkipGateway(t *testing.T) {
	s, gw, _ := newTestStats(t, "")
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"GetDailyStats", "GetUserStats", "GetHeatmapData"} {
		if n := gw.count(name); n != 0 {
			t.Fatalf("%s called %d times while signed out", name, n)
		}
	}
}

func TestStatsCloseDiscardsLateResults(t *testing.T) {
	s, gw, _ := newTestStats(t, "user-1")
	gw.setDaily(stat(day(0), 100))
	entered := make(chan struct{})
	release := make(chan struct{})
	gw.beforeDaily = func(start, end string) {
		close(entered)
		<-release
	}

	done := make(chan error, 1)
	go func() { done <- s.FetchDailyStats(context.Background(), day(0), day(0)) }()
	<-entered
	s.Close()
	close(release)
	<-done

	if got := s.TodayFocusSeconds(); got != 0 {
		t.Fatalf("late result written after close: %d", got)
	}
	if err := s.FetchUserStats(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

// ============================================================
// Derived reads
// ============================================================

func TestWeekDataSparse(t *testing.T) {
	s, gw, _ := newTestStats(t, "user-1")
	gw.setDaily(
		stat(day(-6), 600),
		stat(day(-3), 89),
		stat(day(0), 90),
		stat(day(-9), 6000),
	)
	s.FetchDailyStats(context.Background(), day(-10), day(0))

	got := s.WeekData()
	want := [WeekDays]int{10, 0, 0, 1, 0, 0, 2}
	if got != want {
		t.Fatalf("WeekData = %v, want %v", got, want)
	}
}

func TestWeekDataEmpty(t *testing.T) {
	s, _, _ := newTestStats(t, "user-1")
	if got := s.WeekData(); got != [WeekDays]int{} {
		t.Fatalf("WeekData = %v, want zeros", got)
	}
}

func TestTodayFollowsLocalMidnight(t *testing.T) {
	s, gw, clk := newTestStats(t, "user-1")
	late := time.Date(2026, 3, 14, 23, 59, 0, 0, time.Local)
	clk.Set(late)

	gw.setDaily(store.DailyStat{Date: "2026-03-14", TotalFocusSeconds: 1800, SessionCount: 2})
	s.FetchDailyStats(context.Background(), "2026-03-14", "2026-03-14")
	if s.TodayFocusSeconds() != 1800 || s.TodaySessionCount() != 2 {
		t.Fatalf("today before midnight = %d/%d", s.TodayFocusSeconds(), s.TodaySessionCount())
	}

	clk.Advance(2 * time.Minute)
	if s.TodayFocusSeconds() != 0 || s.TodaySessionCount() != 0 {
		t.Fatal("yesterday's totals still read as today after local midnight")
	}
	if got := s.WeekData(); got[WeekDays-2] != 30 || got[WeekDays-1] != 0 {
		t.Fatalf("WeekData after midnight = %v", got)
	}
}

func TestHeatmapReplacedAndSorted(t *testing.T) {
	s, gw, _ := newTestStats(t, "user-1")
	ctx := context.Background()
	gw.heatmap = []store.HeatmapPoint{{Date: day(-1), Value: 5}, {Date: day(-5), Value: 7}, {Date: day(-1), Value: 9}}
	if err := s.FetchHeatmapData(ctx); err != nil {
		t.Fatal(err)
	}
	got := s.Heatmap()
	want := []store.HeatmapPoint{{Date: day(-5), Value: 7}, {Date: day(-1), Value: 9}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("heatmap = %+v, want %+v", got, want)
	}

	gw.heatmap = []store.HeatmapPoint{{Date: day(0), Value: 1}}
	s.FetchHeatmapData(ctx)
	if got := s.Heatmap(); len(got) != 1 || got[0].Date != day(0) {
		t.Fatalf("heatmap not replaced wholesale: %+v", got)
	}
}

// ============================================================
// Event handling
// ============================================================

func TestStatsHandle(t *testing.T) {
	s, gw, _ := newTestStats(t, "user-1")
	ctx := context.Background()

	if err := s.Handle(ctx, SessionPersisted{UserID: "user-1"}); err != nil {
		t.Fatal(err)
	}
	if gw.count("GetDailyStats") != 1 || gw.count("GetUserStats") != 1 || gw.count("GetHeatmapData") != 1 {
		t.Fatalf("session refresh calls: %v", gw.calls)
	}

	if err := s.Handle(ctx, TaskToggled{UserID: "user-1"}); err != nil {
		t.Fatal(err)
	}
	if gw.count("GetUserStats") != 2 || gw.count("GetDailyStats") != 1 {
		t.Fatalf("toggle refresh calls: %v", gw.calls)
	}
}

func TestRefreshWindow(t *testing.T) {
	s, gw, _ := newTestStats(t, "user-1")
	var gotStart, gotEnd string
	gw.beforeDaily = func(start, end string) { gotStart, gotEnd = start, end }
	s.Refresh(context.Background())
	if gotStart != day(-WeekDays) || gotEnd != day(0) {
		t.Fatalf("refresh window = [%s, %s], want [%s, %s]", gotStart, gotEnd, day(-WeekDays), day(0))
	}
}
