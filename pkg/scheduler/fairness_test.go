package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/assignment-engine-go/pkg/models"
)

func ids(ps []models.Participant) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func TestRank(t *testing.T) {
	history := models.History{
		"a": {Count: 2, LastAssigned: daysBefore(10)},
		"b": {Count: 1, LastAssigned: daysBefore(10)},
		"c": {Count: 1, LastAssigned: daysBefore(40)},
		"d": {Count: 1},
		"e": {Count: 0},
		"f": {Count: 0},
	}
	candidates := []models.Participant{
		person("a", models.Male), person("b", models.Male), person("c", models.Male),
		person("d", models.Male), person("f", models.Male), person("e", models.Male),
	}

	ranked := Rank(candidates, history)
	assert.Equal(t, []string{"e", "f", "d", "c", "b", "a"}, ids(ranked))
	// input untouched
	assert.Equal(t, "a", candidates[0].ID)
}

func TestRank_LowerCountAlwaysWins(t *testing.T) {
	for _, last := range []int{1, 30, 365} {
		history := models.History{
			"z": {Count: 0, LastAssigned: daysBefore(1)},
			"a": {Count: 1, LastAssigned: daysBefore(last)},
		}
		ranked := Rank([]models.Participant{person("a", models.Male), person("z", models.Male)}, history)
		require.Len(t, ranked, 2)
		assert.Equal(t, "z", ranked[0].ID)
	}
}

func TestRank_Deterministic(t *testing.T) {
	history := models.History{}
	a := []models.Participant{person("c", models.Male), person("a", models.Male), person("b", models.Male)}
	b := []models.Participant{person("b", models.Male), person("c", models.Male), person("a", models.Male)}
	assert.Equal(t, ids(Rank(a, history)), ids(Rank(b, history)))
}

func TestExplain(t *testing.T) {
	history := models.History{"x": {Count: 3, LastAssigned: daysBefore(7)}}
	assert.Equal(t, "first assignment", Explain(person("new", models.Male), history))
	assert.Equal(t, "fair rotation (3 previous assignments, last 2026-10-12)", Explain(person("x", models.Male), history))
}

func TestFairnessScore(t *testing.T) {
	roster := []models.Participant{person("a", models.Male), person("b", models.Male)}

	assert.Equal(t, 100.0, FairnessScore(models.History{}, roster))
	assert.Equal(t, 100.0, FairnessScore(models.History{"a": {Count: 2}, "b": {Count: 2}}, roster))
	assert.Equal(t, 0.0, FairnessScore(models.History{"a": {Count: 4}}, roster))
	assert.InDelta(t, 66.67, FairnessScore(models.History{"a": {Count: 2}, "b": {Count: 1}}, roster), 0.01)
}
