// Package worker maintains the day-book: a CSV journal of every ledger
// event consumed from AMQP, plus an end-of-day summary file.
package worker

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"cashpoint/internal/amqp"
	"cashpoint/internal/core"
)

var journalHeader = []string{"timestamp", "event_id", "kind", "title", "type", "amount", "date"}

// DayBook appends consumed ledger events to one journal file per day
// and renders summary reports from them.
type DayBook struct {
	mu  sync.Mutex
	dir string
}

func NewDayBook(dir string) (*DayBook, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	return &DayBook{dir: dir}, nil
}

// HandleEvent is the AMQP consumer callback. A reset event closes the
// day: the summary is written before the reset row is journaled, so the
// report reflects the books as they stood.
func (b *DayBook) HandleEvent(ev *amqp.LedgerEvent) error {
	day, err := core.ParseDate(ev.Date)
	if err != nil {
		return fmt.Errorf("event %s has unusable date %q: %w", ev.EventID, ev.Date, err)
	}

	if ev.Kind == amqp.KindReset {
		if err := b.Summarize(day); err != nil {
			slog.Error("Failed to write day summary", "error", err, "date", ev.Date)
		}
	}

	if err := b.Append(ev, day); err != nil {
		return err
	}

	slog.Info("Journaled ledger event",
		"event_id", ev.EventID,
		"event_kind", ev.Kind,
		"date", ev.Date)
	return nil
}

// Append writes one event row to the journal file for day.
func (b *DayBook) Append(ev *amqp.LedgerEvent, day core.Date) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	path := b.journalPath(day)
	fresh := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fresh = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open journal %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(journalHeader); err != nil {
			return fmt.Errorf("write journal header: %w", err)
		}
	}
	row := []string{
		ev.Timestamp.Format(time.RFC3339),
		ev.EventID,
		ev.Kind,
		ev.Title,
		ev.Type,
		strconv.FormatInt(ev.Amount, 10),
		ev.Date,
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write journal row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush journal: %w", err)
	}
	return nil
}

// daySummary accumulates the journal rows of one day.
type daySummary struct {
	totalByKind  map[string]int64
	countByKind  map[string]int
	totalByTitle map[string]int64
	rows         int
}

// Summarize folds the day's journal into a sectioned summary CSV.
// Missing journals are not an error: a day without activity simply has
// no report.
func (b *DayBook) Summarize(day core.Date) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	f, err := os.Open(b.journalPath(day))
	if os.IsNotExist(err) {
		slog.Info("No journal for day, skipping summary", "date", day.String())
		return nil
	}
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}

	sum := daySummary{
		totalByKind:  make(map[string]int64),
		countByKind:  make(map[string]int),
		totalByTitle: make(map[string]int64),
	}
	for i, rec := range records {
		if i == 0 || len(rec) != len(journalHeader) {
			continue
		}
		kind, title := rec[2], rec[3]
		amount, err := strconv.ParseInt(rec[5], 10, 64)
		if err != nil {
			slog.Warn("Skipping journal row with bad amount", "row", i, "amount", rec[5])
			continue
		}
		sum.rows++
		sum.countByKind[kind]++
		sum.totalByKind[kind] += amount
		if title != "" {
			sum.totalByTitle[title] += amount
		}
	}

	out, err := os.Create(b.summaryPath(day))
	if err != nil {
		return fmt.Errorf("create summary: %w", err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	header := [][]string{
		{"Daily Cash Point Report"},
		{"Day", day.String()},
		{"Generated", time.Now().Format("2006-01-02 15:04:05")},
		{},
		{"SUMMARY"},
		{"Events", strconv.Itoa(sum.rows)},
	}
	for _, row := range header {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write summary header: %w", err)
		}
	}

	if err := w.Write([]string{}); err != nil {
		return err
	}
	if err := w.Write([]string{"BY KIND"}); err != nil {
		return err
	}
	if err := w.Write([]string{"Kind", "Events", "Amount"}); err != nil {
		return err
	}
	for _, kind := range []string{amqp.KindTransaction, amqp.KindAdjustment, amqp.KindCreditSale, amqp.KindRecharge, amqp.KindReset} {
		if sum.countByKind[kind] == 0 {
			continue
		}
		row := []string{
			kind,
			strconv.Itoa(sum.countByKind[kind]),
			strconv.FormatInt(sum.totalByKind[kind], 10),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	if len(sum.totalByTitle) > 0 {
		if err := w.Write([]string{}); err != nil {
			return err
		}
		if err := w.Write([]string{"BY SERVICE"}); err != nil {
			return err
		}
		if err := w.Write([]string{"Service", "Amount"}); err != nil {
			return err
		}
		for _, title := range orderedTitles(sum.totalByTitle) {
			row := []string{title, strconv.FormatInt(sum.totalByTitle[title], 10)}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush summary: %w", err)
	}

	slog.Info("Wrote day summary", "date", day.String(), "events", sum.rows)
	return nil
}

// SummarizeYesterday is the cron entry point: the schedule fires just
// after midnight, closing the day that ended.
func (b *DayBook) SummarizeYesterday() {
	now := time.Now().AddDate(0, 0, -1)
	day := core.NewDate(now.Year(), int(now.Month()), now.Day())
	if err := b.Summarize(day); err != nil {
		slog.Error("Scheduled summary failed", "error", err, "date", day.String())
	}
}

func (b *DayBook) journalPath(day core.Date) string {
	return filepath.Join(b.dir, "journal-"+day.Format("2006-01-02")+".csv")
}

func (b *DayBook) summaryPath(day core.Date) string {
	return filepath.Join(b.dir, "summary-"+day.Format("2006-01-02")+".csv")
}

func orderedTitles(totals map[string]int64) []string {
	titles := make([]string, 0, len(totals))
	for t := range totals {
		titles = append(titles, t)
	}
	sort.Strings(titles)
	return titles
}
