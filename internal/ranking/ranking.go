// Package ranking orders thread candidates for the hot, new and top listings.
package ranking

import (
	"errors"
	"math"
	"sort"
	"strings"
	"time"
)

type Mode string

const (
	ModeHot Mode = "hot"
	ModeNew Mode = "new"
	ModeTop Mode = "top"
)

type Period string

const (
	PeriodAll   Period = ""
	PeriodDay   Period = "24h"
	PeriodWeek  Period = "7d"
	PeriodMonth Period = "30d"
)

// hotDecay is the number of seconds of age worth one order of magnitude of score.
const hotDecay = 45000.0

var (
	ErrInvalidMode   = errors.New("sort must be hot, new or top")
	ErrInvalidPeriod = errors.New("period must be 24h, 7d or 30d")
)

type Candidate struct {
	ID        string
	Score     int
	CreatedAt time.Time
	Pinned    bool
}

func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case "", ModeHot:
		return ModeHot, nil
	case ModeNew:
		return ModeNew, nil
	case ModeTop:
		return ModeTop, nil
	default:
		return "", ErrInvalidMode
	}
}

func ParsePeriod(value string) (Period, error) {
	switch Period(strings.ToLower(strings.TrimSpace(value))) {
	case PeriodAll:
		return PeriodAll, nil
	case PeriodDay:
		return PeriodDay, nil
	case PeriodWeek:
		return PeriodWeek, nil
	case PeriodMonth:
		return PeriodMonth, nil
	default:
		return "", ErrInvalidPeriod
	}
}

// Duration returns the lookback for the period, zero meaning unbounded.
func (p Period) Duration() time.Duration {
	switch p {
	case PeriodDay:
		return 24 * time.Hour
	case PeriodWeek:
		return 7 * 24 * time.Hour
	case PeriodMonth:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// Cutoff is the oldest creation time still inside the period. The zero time means no cutoff.
func (p Period) Cutoff(now time.Time) time.Time {
	d := p.Duration()
	if d == 0 {
		return time.Time{}
	}
	return now.Add(-d)
}

// HotScore is sign(s)*log10(max(|s|,1)) + epochSeconds/45000.
func HotScore(score int, createdAt time.Time) float64 {
	abs := math.Abs(float64(score))
	order := math.Log10(math.Max(abs, 1))
	sign := 0.0
	switch {
	case score > 0:
		sign = 1
	case score < 0:
		sign = -1
	}
	seconds := float64(createdAt.UnixMilli()) / 1000
	return sign*order + seconds/hotDecay
}

// Rank returns a new slice ordered for mode. Pinned candidates always come first;
// within each group the mode decides, and ties keep their input order.
// For ModeTop a non-empty period drops candidates created before now minus the period.
func Rank(cands []Candidate, mode Mode, period Period, now time.Time) []Candidate {
	out := make([]Candidate, 0, len(cands))
	cutoff := time.Time{}
	if mode == ModeTop {
		cutoff = period.Cutoff(now)
	}
	for _, c := range cands {
		if !cutoff.IsZero() && c.CreatedAt.Before(cutoff) {
			continue
		}
		out = append(out, c)
	}

	var hot []float64
	if mode == ModeHot {
		hot = make([]float64, len(out))
		for i, c := range out {
			hot[i] = HotScore(c.Score, c.CreatedAt)
		}
	}

	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ca, cb := out[idx[a]], out[idx[b]]
		if ca.Pinned != cb.Pinned {
			return ca.Pinned
		}
		switch mode {
		case ModeNew:
			return ca.CreatedAt.After(cb.CreatedAt)
		case ModeTop:
			return ca.Score > cb.Score
		default:
			return hot[idx[a]] > hot[idx[b]]
		}
	})

	ranked := make([]Candidate, len(out))
	for i, j := range idx {
		ranked[i] = out[j]
	}
	return ranked
}

// CandidateWindow is how many recent threads hot and top listings rank per request.
func CandidateWindow(pageSize, max int) int {
	if pageSize < 1 {
		pageSize = 1
	}
	if n := 5 * pageSize; n < max {
		return n
	}
	return max
}

// Paginate slices items to 1-based page of size pageSize.
func Paginate[T any](items []T, page, pageSize int) []T {
	if page < 1 || pageSize < 1 {
		return []T{}
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
