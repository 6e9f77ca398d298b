// Package ledger persists the URLs that have already been posted, as
// one "url|unix_timestamp" line per entry. Lines without a timestamp
// come from older deployments and never expire.
package ledger

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Path          string
	RetentionDays int
	MaxEntries    int
}

// Store is the posted-URL ledger. Every I/O failure degrades: Load
// returns an empty set, Record and Purge become no-ops. The worst case
// is re-posting an item, never an aborted run.
type Store struct {
	path       string
	retention  time.Duration
	maxEntries int
	logger     *slog.Logger
	now        func() time.Time
}

func New(cfg Config, logger *slog.Logger) *Store {
	return &Store{
		path:       cfg.Path,
		retention:  time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		maxEntries: cfg.MaxEntries,
		logger:     logger,
		now:        time.Now,
	}
}

// Load returns the set of live (non-expired) posted URLs and purges
// the file when the live set exceeds the cap.
func (s *Store) Load() map[string]struct{} {
	f, err := os.Open(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("failed to open ledger, treating as empty", "error", err)
		}
		return map[string]struct{}{}
	}
	defer f.Close()

	live := make(map[string]struct{})
	cutoff := s.now().Add(-s.retention).Unix()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		url, ts, ok := parseLine(line)
		if !ok || ts >= float64(cutoff) {
			live[url] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		s.logger.Error("failed to read ledger", "error", err)
	}

	if len(live) > s.maxEntries {
		s.logger.Info("ledger exceeded max size, purging",
			"live", len(live),
			"max", s.maxEntries,
		)
		s.Purge()
	}

	return live
}

// Record appends the URL with the current timestamp.
func (s *Store) Record(url string) {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		s.logger.Error("failed to open ledger for append", "error", err)
		return
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s|%d\n", url, s.now().Unix()); err != nil {
		s.logger.Error("failed to record posted url", "url", url, "error", err)
	}
}

// Purge rewrites the file keeping only the newest maxEntries entries.
// Entries without a parseable timestamp sort as oldest.
func (s *Store) Purge() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("failed to read ledger for purge", "error", err)
		}
		return
	}

	type entry struct {
		url string
		ts  float64
	}

	var entries []entry
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		url, ts, ok := parseLine(line)
		if !ok {
			entries = append(entries, entry{url: line, ts: 0})
			continue
		}
		entries = append(entries, entry{url: url, ts: ts})
	}

	total := len(entries)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ts > entries[j].ts
	})
	if len(entries) > s.maxEntries {
		entries = entries[:s.maxEntries]
	}

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s|%d\n", e.url, int64(e.ts))
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		s.logger.Error("failed to write purged ledger", "error", err)
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.logger.Error("failed to replace ledger", "error", err)
		_ = os.Remove(tmp)
		return
	}

	s.logger.Info("ledger purge complete", "kept", len(entries), "total", total)
}

// parseLine splits a ledger line into URL and timestamp. ok is false
// for legacy URL-only lines and unparseable timestamps; url is still
// valid in that case.
func parseLine(line string) (url string, ts float64, ok bool) {
	idx := strings.LastIndex(line, "|")
	if idx < 0 {
		return line, 0, false
	}

	url = line[:idx]
	ts, err := strconv.ParseFloat(line[idx+1:], 64)
	if err != nil {
		return line, 0, false
	}

	return url, ts, true
}
