package game

import (
	"sort"

	"github.com/ip-05/quizzus-client/internal/protocol"
)

// DefaultFloorPercent is shown for an option nobody picked, so empty bars
// still render with some height. Presentation heuristic, not protocol.
const DefaultFloorPercent = 10

// TallyCounts folds the per-user answers into per-option counts, indexed
// like the current question's options. Nil question means no tally.
func TallyCounts(s State) []int {
	if s.Question == nil {
		return nil
	}
	counts := make([]int, len(s.Question.Options))
	for _, opt := range s.Answers {
		if opt >= 0 && opt < len(counts) {
			counts[opt]++
		}
	}
	return counts
}

// TallyPercents scales counts against the most-picked option. An option at
// zero gets the floor value instead of a zero-height bar, including the
// all-zero case.
func TallyPercents(counts []int, floor float64) []float64 {
	max := 0
	for _, c := range counts {
		if c > max {
			max = c
		}
	}

	percents := make([]float64, len(counts))
	for i, c := range counts {
		if max == 0 {
			percents[i] = floor
			continue
		}
		p := float64(c) / float64(max) * 100
		if p == 0 {
			p = floor
		}
		percents[i] = p
	}
	return percents
}

// BuildLeaderboard resolves display names from the roster and returns the
// entries ordered for rendering.
func BuildLeaderboard(scores map[uint]float64, roster map[uint]protocol.User) []Entry {
	entries := make([]Entry, 0, len(scores))
	for id, points := range scores {
		e := Entry{UserID: id, Points: points}
		if u, ok := roster[id]; ok {
			e.Name = u.Name
		}
		entries = append(entries, e)
	}
	SortLeaderboard(entries)
	return entries
}

// SortLeaderboard orders by points descending, ties broken by name
// ascending. The order is total, so re-sorting is idempotent and
// rendering stays stable.
func SortLeaderboard(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].UserID < entries[j].UserID
	})
}
