package scheduler

import (
	"time"

	"github.com/arnavshah/assignment-engine-go/pkg/models"
)

var week = time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)

func person(id string, g models.Gender, caps ...models.Capability) models.Participant {
	return models.Participant{
		ID:           id,
		Name:         id,
		Active:       true,
		Gender:       g,
		Capabilities: caps,
		Privilege:    models.BaptizedPublisher,
	}
}

func withPrivilege(p models.Participant, priv models.Privilege) models.Participant {
	p.Privilege = priv
	return p
}

func part(id string, pos int, t models.PartType) models.Part {
	return models.Part{ID: id, Position: pos, Type: t, Minutes: 4}
}

func program(parts ...models.Part) models.Program {
	return models.Program{
		ID:        "prog-1",
		UnitID:    "unit-1",
		WeekStart: week,
		WeekEnd:   week.AddDate(0, 0, 6),
		Parts:     parts,
	}
}

func daysBefore(days int) *time.Time {
	t := week.AddDate(0, 0, -days)
	return &t
}

func byPart(res *Result) map[string]models.Assignment {
	out := make(map[string]models.Assignment, len(res.Assignments))
	for _, a := range res.Assignments {
		out[a.PartID] = a
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
