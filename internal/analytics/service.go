// Package analytics owns the per-visitor sales dashboard state: the
// last successfully fetched snapshot, the active filters and the
// loading flag. The snapshot is retained solely so CSV export never
// refetches.
package analytics

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	apperrors "orderfront/internal/errors"
	"orderfront/internal/models"
	"orderfront/internal/notify"
)

// Date filter values understood by the backend. FilterCustom is a
// client-side sentinel: it never reaches the backend, the literal date
// does.
const (
	FilterToday     = "today"
	FilterYesterday = "yesterday"
	FilterLast7Days = "last_7_days"
	FilterCustom    = "custom"

	CategoryAll = "all"
)

// ErrNoSnapshot means export was requested before any successful load.
var ErrNoSnapshot = stderrors.New("no analytics snapshot loaded")

var customDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Backend is the slice of the backend API the analytics module needs.
type Backend interface {
	Analytics(ctx context.Context, dateFilter, categoryFilter string) (*models.AnalyticsSnapshot, error)
}

// Notifier publishes transient notifications to a session.
type Notifier interface {
	Notify(sessionID string, level notify.Level, message string) string
}

// State is one visitor's analytics state container.
type State struct {
	Snapshot       *models.AnalyticsSnapshot
	DateFilter     string
	CategoryFilter string
	FilterError    string
	Loading        bool
}

// CategoryShare is one slice of the category pie chart.
type CategoryShare struct {
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
}

type Service struct {
	mu       sync.RWMutex
	states   map[string]*State
	backend  Backend
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(backend Backend, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		states:   make(map[string]*State),
		backend:  backend,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// ResolveDateFilter applies the custom-date rules: a custom filter
// with an invalid literal falls back to today with a format-error
// message; an absent literal (cancelled prompt) falls back silently.
func ResolveDateFilter(dateFilter, customDate string) (resolved, formatError string) {
	if dateFilter == "" {
		return FilterToday, ""
	}
	if dateFilter != FilterCustom {
		return dateFilter, ""
	}
	if customDate == "" {
		return FilterToday, ""
	}
	if !validCustomDate(customDate) {
		return FilterToday, "無效的日期格式，應為 YYYY-MM-DD"
	}
	return customDate, ""
}

func validCustomDate(s string) bool {
	if !customDatePattern.MatchString(s) {
		return false
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// Load fetches a fresh snapshot for the given filters and replaces the
// retained one wholesale. Any error aborts the update, keeps the prior
// snapshot and surfaces the message as a danger notification. The
// loading flag is always cleared, success or not. There is no request
// supersession: a slow earlier response can overwrite a newer one.
func (s *Service) Load(ctx context.Context, sessionID, dateFilter, customDate, categoryFilter string) error {
	resolved, formatErr := ResolveDateFilter(dateFilter, customDate)
	if formatErr != "" {
		s.notifier.Notify(sessionID, notify.LevelWarning, formatErr)
	}
	if categoryFilter == "" {
		categoryFilter = CategoryAll
	}

	s.mu.Lock()
	st := s.state(sessionID)
	st.Loading = true
	st.FilterError = formatErr
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		st.Loading = false
		s.mu.Unlock()
	}()

	snapshot, err := s.backend.Analytics(ctx, resolved, categoryFilter)
	if err != nil {
		s.logger.Error("load analytics failed",
			"session_id", sessionID,
			"date", resolved,
			"category", categoryFilter,
			"error", err,
		)
		s.notifier.Notify(sessionID, notify.LevelDanger, errorText(err))
		return err
	}

	s.mu.Lock()
	st.Snapshot = snapshot
	st.DateFilter = resolved
	st.CategoryFilter = categoryFilter
	s.mu.Unlock()

	s.logger.Debug("analytics loaded",
		"session_id", sessionID,
		"date", resolved,
		"category", categoryFilter,
		"rows", len(snapshot.Items),
	)
	return nil
}

func errorText(err error) string {
	var appErr *apperrors.AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return "獲取分析數據失敗"
}

// Current returns a copy of the session's analytics state for
// rendering.
func (s *Service) Current(sessionID string) State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[sessionID]
	if !ok {
		return State{}
	}
	return *st
}

// Categories lists the categories present in the current result set,
// first-seen order. Categories absent from the latest filtered data
// disappear from the selector.
func (s *Service) Categories(sessionID string) []string {
	snapshot := s.snapshot(sessionID)
	if snapshot == nil {
		return nil
	}

	var categories []string
	seen := make(map[string]bool)
	for _, item := range snapshot.Items {
		if !seen[item.Category] {
			seen[item.Category] = true
			categories = append(categories, item.Category)
		}
	}
	return categories
}

// CategoryShares recomputes per-category quantity totals for the pie
// chart, first-seen category order.
func (s *Service) CategoryShares(sessionID string) []CategoryShare {
	snapshot := s.snapshot(sessionID)
	if snapshot == nil {
		return nil
	}

	var shares []CategoryShare
	index := make(map[string]int)
	for _, item := range snapshot.Items {
		i, ok := index[item.Category]
		if !ok {
			i = len(shares)
			index[item.Category] = i
			shares = append(shares, CategoryShare{Category: item.Category})
		}
		shares[i].Quantity += item.Quantity
	}
	return shares
}

// CSVHeader is the fixed export header row.
const CSVHeader = "名稱,類別,數量,總價,日期"

// ExportCSV serializes the retained snapshot. No snapshot yet is a
// warning to the visitor, not an error condition. Field values are
// joined without quoting or escaping; embedded commas in item names
// corrupt the row. Known limitation carried over from the source
// format.
func (s *Service) ExportCSV(sessionID string) (filename string, data []byte, err error) {
	snapshot := s.snapshot(sessionID)
	if snapshot == nil {
		s.notifier.Notify(sessionID, notify.LevelWarning, "尚無可匯出的資料，請先載入分析數據")
		return "", nil, ErrNoSnapshot
	}

	var buf bytes.Buffer
	buf.WriteString(CSVHeader)
	buf.WriteByte('\n')
	for _, item := range snapshot.Items {
		fmt.Fprintf(&buf, "%s,%s,%d,%.2f,%s\n",
			item.Name, item.Category, item.Quantity, item.TotalPrice, item.Date)
	}

	filename = fmt.Sprintf("sales_data_%s.csv", s.now().Format("2006-01-02"))
	return filename, buf.Bytes(), nil
}

// Sessions reports how many analytics sessions hold state.
func (s *Service) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}

func (s *Service) snapshot(sessionID string) *models.AnalyticsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[sessionID]
	if !ok {
		return nil
	}
	return st.Snapshot
}

// state must be called with the write lock held.
func (s *Service) state(sessionID string) *State {
	if st, ok := s.states[sessionID]; ok {
		return st
	}
	st := &State{}
	s.states[sessionID] = st
	return st
}
