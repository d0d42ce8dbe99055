package focus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sadopc/flow/internal/clock"
	"github.com/sadopc/flow/internal/store"
)

// WeekDays is the length of the trailing window behind WeekData.
const WeekDays = 7

// Stats caches the user's per-day totals, summary and heatmap. Reads
// never touch the gateway; a failed fetch keeps the previous values.
//
// Each fetch takes a sequence number when it is issued. A result only
// overwrites a date (or the summary, or the heatmap) that no newer
// fetch has written, so an older response arriving late cannot clobber
// fresher data.
type Stats struct {
	gw     Gateway
	users  UserSource
	clock  clock.Clock
	logger *slog.Logger

	mu         sync.Mutex
	seq        uint64
	daily      map[string]store.DailyStat
	dailySeq   map[string]uint64
	summary    store.UserStats
	summarySeq uint64
	heatmap    []store.HeatmapPoint
	heatmapSeq uint64
	err        error
	closed     bool
}

func NewStats(gw Gateway, users UserSource, c clock.Clock, logger *slog.Logger) *Stats {
	return &Stats{
		gw:       gw,
		users:    users,
		clock:    c,
		logger:   logger,
		daily:    make(map[string]store.DailyStat),
		dailySeq: make(map[string]uint64),
	}
}

// FetchDailyStats replaces the cached days in [start, end] with the
// gateway's answer. Days the answer omits are dropped and read as zero.
func (s *Stats) FetchDailyStats(ctx context.Context, start, end string) error {
	userID := s.users.UserID()
	if userID == "" {
		return nil
	}
	seq, ok := s.issue()
	if !ok {
		return ErrClosed
	}

	rows, err := s.gw.GetDailyStats(ctx, userID, start, end)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if err != nil {
		return s.failLocked(fmt.Errorf("fetch daily stats: %w", err))
	}

	fresh := make(map[string]store.DailyStat, len(rows))
	for _, r := range rows {
		fresh[r.Date] = r
	}
	for _, date := range datesBetween(start, end) {
		if s.dailySeq[date] > seq {
			continue
		}
		s.dailySeq[date] = seq
		if r, ok := fresh[date]; ok {
			s.daily[date] = r
		} else {
			delete(s.daily, date)
		}
	}
	s.err = nil
	return nil
}

// FetchUserStats replaces the summary.
func (s *Stats) FetchUserStats(ctx context.Context) error {
	userID := s.users.UserID()
	if userID == "" {
		return nil
	}
	seq, ok := s.issue()
	if !ok {
		return ErrClosed
	}

	us, err := s.gw.GetUserStats(ctx, userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if err != nil {
		return s.failLocked(fmt.Errorf("fetch user stats: %w", err))
	}
	if seq > s.summarySeq {
		s.summary = *us
		s.summarySeq = seq
	}
	s.err = nil
	return nil
}

// FetchHeatmapData replaces the yearly heatmap.
func (s *Stats) FetchHeatmapData(ctx context.Context) error {
	userID := s.users.UserID()
	if userID == "" {
		return nil
	}
	seq, ok := s.issue()
	if !ok {
		return ErrClosed
	}

	points, err := s.gw.GetHeatmapData(ctx, userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if err != nil {
		return s.failLocked(fmt.Errorf("fetch heatmap: %w", err))
	}
	if seq > s.heatmapSeq {
		s.heatmap = dedupeHeatmap(points)
		s.heatmapSeq = seq
	}
	s.err = nil
	return nil
}

// Refresh reloads the last week of daily totals, the summary and the
// heatmap. It runs after every persisted session.
func (s *Stats) Refresh(ctx context.Context) error {
	now := s.clock.Now()
	return errors.Join(
		s.FetchDailyStats(ctx, store.DateKey(now.AddDate(0, 0, -WeekDays)), store.DateKey(now)),
		s.FetchUserStats(ctx),
		s.FetchHeatmapData(ctx),
	)
}

// TodayFocusSeconds is the cached total for the local calendar day.
func (s *Stats) TodayFocusSeconds() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.daily[store.DateKey(s.clock.Now())].TotalFocusSeconds
}

func (s *Stats) TodaySessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.daily[store.DateKey(s.clock.Now())].SessionCount
}

// WeekData returns focus minutes for the last WeekDays local days,
// oldest first and ending today. Missing days are zero.
func (s *Stats) WeekData() [WeekDays]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var week [WeekDays]int
	now := s.clock.Now()
	for i := range week {
		date := store.DateKey(now.AddDate(0, 0, i-(WeekDays-1)))
		week[i] = int(math.Round(float64(s.daily[date].TotalFocusSeconds) / 60))
	}
	return week
}

// DailyStats returns the cached days in date order.
func (s *Stats) DailyStats() []store.DailyStat {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]store.DailyStat, 0, len(s.daily))
	for _, d := range s.daily {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func (s *Stats) Summary() store.UserStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// Heatmap returns the cached heatmap in date order.
func (s *Stats) Heatmap() []store.HeatmapPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.HeatmapPoint, len(s.heatmap))
	copy(out, s.heatmap)
	return out
}

// Err is the last fetch failure, cleared by the next successful fetch.
func (s *Stats) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Stats) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = nil
}

// Handle is the Bus subscriber.
func (s *Stats) Handle(ctx context.Context, ev Event) error {
	switch ev.(type) {
	case SessionPersisted:
		return s.Refresh(ctx)
	case TaskToggled:
		return s.FetchUserStats(ctx)
	}
	return nil
}

// Reset drops every cached value, for sign-out.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.daily = make(map[string]store.DailyStat)
	s.dailySeq = make(map[string]uint64)
	s.summary = store.UserStats{}
	s.heatmap = nil
	s.err = nil
}

// Close discards every result that arrives afterwards.
func (s *Stats) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *Stats) issue() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, false
	}
	s.seq++
	return s.seq, true
}

func (s *Stats) failLocked(err error) error {
	s.err = err
	s.logger.Warn("stats fetch failed", "error", err)
	return err
}

// datesBetween lists every calendar date from start to end inclusive.
func datesBetween(start, end string) []string {
	from, err := time.Parse(store.DateLayout, start)
	if err != nil {
		return nil
	}
	to, err := time.Parse(store.DateLayout, end)
	if err != nil {
		return nil
	}
	var dates []string
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(store.DateLayout))
	}
	return dates
}

// dedupeHeatmap sorts points by date, keeping the last value seen for a date.
func dedupeHeatmap(points []store.HeatmapPoint) []store.HeatmapPoint {
	byDate := make(map[string]int64, len(points))
	for _, p := range points {
		byDate[p.Date] = p.Value
	}
	out := make([]store.HeatmapPoint, 0, len(byDate))
	for d, v := range byDate {
		out = append(out, store.HeatmapPoint{Date: d, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
