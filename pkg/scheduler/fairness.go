package scheduler

import (
	"fmt"
	"math"
	"sort"

	"github.com/arnavshah/assignment-engine-go/pkg/models"
)

// Less orders two participants by fairness: fewer assignments first, then the
// older (or missing) last assignment, then the smaller ID.
func Less(a, b models.Participant, history models.History) bool {
	ca, cb := history[a.ID], history[b.ID]
	if ca.Count != cb.Count {
		return ca.Count < cb.Count
	}
	switch {
	case ca.LastAssigned == nil && cb.LastAssigned != nil:
		return true
	case ca.LastAssigned != nil && cb.LastAssigned == nil:
		return false
	case ca.LastAssigned != nil && cb.LastAssigned != nil && !ca.LastAssigned.Equal(*cb.LastAssigned):
		return ca.LastAssigned.Before(*cb.LastAssigned)
	}
	return a.ID < b.ID
}

// Rank returns a sorted copy of candidates. The input is not modified.
func Rank(candidates []models.Participant, history models.History) []models.Participant {
	ranked := make([]models.Participant, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return Less(ranked[i], ranked[j], history)
	})
	return ranked
}

// Explain describes why a participant ranked where it did
func Explain(p models.Participant, history models.History) string {
	c := history[p.ID]
	if c.Count == 0 && c.LastAssigned == nil {
		return "first assignment"
	}
	if c.LastAssigned == nil {
		return fmt.Sprintf("fair rotation (%d previous assignments)", c.Count)
	}
	return fmt.Sprintf("fair rotation (%d previous assignments, last %s)", c.Count, c.LastAssigned.Format("2006-01-02"))
}

// HistoryFromRoster seeds a history from the counters stored on participants
func HistoryFromRoster(roster []models.Participant) models.History {
	h := make(models.History, len(roster))
	for _, p := range roster {
		h[p.ID] = models.Counter{Count: p.AssignmentCount, LastAssigned: p.LastAssigned}
	}
	return h
}

// FairnessScore returns a percentage (0-100) representing how evenly
// assignments are spread over the active roster. 100% is perfectly fair
// (Standard Deviation = 0).
func FairnessScore(history models.History, roster []models.Participant) float64 {
	var counts []float64
	for _, p := range roster {
		if p.Active {
			counts = append(counts, float64(history[p.ID].Count))
		}
	}
	if len(counts) == 0 {
		return 100.0
	}

	var sum float64
	for _, c := range counts {
		sum += c
	}
	if sum == 0 {
		return 100.0
	}

	mean := sum / float64(len(counts))

	var varianceSum float64
	for _, c := range counts {
		diff := c - mean
		varianceSum += diff * diff
	}
	stdDev := math.Sqrt(varianceSum / float64(len(counts)))

	// 100% means SD is 0. 0% means SD is >= mean.
	score := (1.0 - (stdDev / mean)) * 100.0
	if score < 0 {
		return 0.0
	}
	return score
}
