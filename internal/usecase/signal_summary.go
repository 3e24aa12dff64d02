package usecase

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vitos/cs2_market_watch/internal/domain"
)

// SignalSummary keeps the latest signal per item for the markdown digest.
type SignalSummary struct {
	mu      sync.Mutex
	signals map[string]domain.Signal
	timeNow func() time.Time
}

func NewSignalSummary() *SignalSummary {
	return &SignalSummary{
		signals: make(map[string]domain.Signal),
		timeNow: time.Now,
	}
}

func (s *SignalSummary) Add(sig domain.Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals[sig.ItemID] = sig
}

func (s *SignalSummary) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.signals)
}

var markdownReplacer = strings.NewReplacer(
	"|", " ", "*", " ", "`", " ", "_", " ", "{", " ", "}", " ", "[", " ", "]", " ",
	"(", " ", ")", " ", "#", " ", "+", " ", "-", " ", ".", " ", "!", " ",
)

func cleanItemName(name string) string {
	return strings.Join(strings.Fields(markdownReplacer.Replace(name)), " ")
}

// Markdown renders the table. Rows are ordered by item id.
func (s *SignalSummary) Markdown() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.signals))
	for id := range s.signals {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var sb strings.Builder
	sb.WriteString("# Signal summary\n\n")
	fmt.Fprintf(&sb, "Generated: %s\n\n", s.timeNow().Format(reportTimeLayout))
	sb.WriteString("| Item ID | Name | Signal | Price | Open | Close | Middle | Upper | Lower | Volume | Time |\n")
	sb.WriteString("|---|---|---|---|---|---|---|---|---|---|---|\n")
	for _, id := range ids {
		sig := s.signals[id]
		fmt.Fprintf(&sb, "| %s | %s | %s | %.2f | %.2f | %.2f | %.2f | %.2f | %.2f | %.0f | %s |\n",
			id, cleanItemName(sig.ItemName), sig.Type, sig.Price, sig.Open, sig.Close,
			sig.Details["middle_band"], sig.Details["upper_band"], sig.Details["lower_band"],
			sig.Volume, sig.Time.Format(reportTimeLayout))
	}
	return sb.String()
}

// Save writes the markdown under dir and returns the path. Nothing is written
// when there are no signals.
func (s *SignalSummary) Save(dir string) (string, error) {
	if s.Len() == 0 {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create signals dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("signals_%s.md", s.timeNow().Format("20060102_150405")))
	if err := os.WriteFile(path, []byte(s.Markdown()), 0o644); err != nil {
		return "", fmt.Errorf("write signal summary: %w", err)
	}
	return path, nil
}
