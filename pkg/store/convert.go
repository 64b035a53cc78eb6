package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arnavshah/assignment-engine-go/pkg/database"
	"github.com/arnavshah/assignment-engine-go/pkg/models"
)

// ErrUnitMismatch is returned when an import touches rows of another congregation.
var ErrUnitMismatch = errors.New("record belongs to another unit")

// UpsertParticipants inserts or updates roster rows of a unit. Fairness
// counters are owned by generation runs and are never overwritten here.
func (s *Store) UpsertParticipants(ctx context.Context, unitID string, roster []models.Participant) error {
	if len(roster) == 0 {
		return nil
	}
	rows := make([]database.Participant, 0, len(roster))
	ids := make([]string, 0, len(roster))
	for _, p := range roster {
		rows = append(rows, participantToRecord(unitID, p))
		ids = append(ids, p.ID)
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var foreign int64
		if err := tx.Model(&database.Participant{}).Where("id IN ? AND unit_id <> ?", ids, unitID).Count(&foreign).Error; err != nil {
			return fmt.Errorf("check participants: %w", err)
		}
		if foreign > 0 {
			return ErrUnitMismatch
		}

		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "active", "gender", "capabilities", "privilege",
				"minor", "guardian_id", "family_id", "updated_at",
			}),
		}).Create(&rows).Error
		if err != nil {
			return fmt.Errorf("upsert participants: %w", err)
		}
		return nil
	})
}

// ReplaceRelationships swaps the family links of a unit for rels
func (s *Store) ReplaceRelationships(ctx context.Context, unitID string, rels []models.FamilyRelationship) error {
	seen := make(map[database.FamilyLink]bool, len(rels))
	rows := make([]database.FamilyLink, 0, len(rels))
	for _, r := range rels {
		a, b := r.A, r.B
		if b < a {
			a, b = b, a
		}
		key := database.FamilyLink{A: a, B: b, Kind: string(r.Kind)}
		if seen[key] {
			continue
		}
		seen[key] = true
		key.UnitID = unitID
		rows = append(rows, key)
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("unit_id = ?", unitID).Delete(&database.FamilyLink{}).Error; err != nil {
			return fmt.Errorf("clear family links: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("write family links: %w", err)
		}
		return nil
	})
}

// UpsertProgram stores a program and replaces its parts. Assignments of parts
// that no longer exist are removed on the next generation run.
func (s *Store) UpsertProgram(ctx context.Context, program models.Program) error {
	rec := programToRecord(program)

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing database.Program
		err := tx.First(&existing, "id = ?", program.ID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
		case err != nil:
			return fmt.Errorf("load program: %w", err)
		case existing.UnitID != program.UnitID:
			return ErrUnitMismatch
		}

		parts := rec.Parts
		rec.Parts = nil
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"week_start", "week_end", "updated_at"}),
		}).Create(&rec).Error
		if err != nil {
			return fmt.Errorf("upsert program: %w", err)
		}

		if err := tx.Where("program_id = ?", program.ID).Delete(&database.Part{}).Error; err != nil {
			return fmt.Errorf("clear parts: %w", err)
		}
		if len(parts) == 0 {
			return nil
		}
		if err := tx.Create(&parts).Error; err != nil {
			return fmt.Errorf("write parts: %w", err)
		}
		return nil
	})
}

func programFromRecord(rec database.Program) models.Program {
	p := models.Program{
		ID:        rec.ID,
		UnitID:    rec.UnitID,
		WeekStart: rec.WeekStart,
		WeekEnd:   rec.WeekEnd,
		Parts:     make([]models.Part, 0, len(rec.Parts)),
	}
	for _, part := range rec.Parts {
		p.Parts = append(p.Parts, models.Part{
			ID:             part.ID,
			Position:       part.Position,
			Type:           models.PartType(part.Type),
			Title:          part.Title,
			RequiredGender: models.Gender(part.RequiredGender),
			Minutes:        part.Minutes,
		})
	}
	return p
}

func programToRecord(p models.Program) database.Program {
	rec := database.Program{
		ID:        p.ID,
		UnitID:    p.UnitID,
		WeekStart: p.WeekStart,
		WeekEnd:   p.WeekEnd,
	}
	for _, part := range p.Parts {
		rec.Parts = append(rec.Parts, database.Part{
			ID:             part.ID,
			ProgramID:      p.ID,
			Position:       part.Position,
			Type:           string(part.Type),
			Title:          part.Title,
			RequiredGender: string(part.RequiredGender),
			Minutes:        part.Minutes,
		})
	}
	return rec
}

func participantFromRecord(rec database.Participant) models.Participant {
	p := models.Participant{
		ID:              rec.ID,
		Name:            rec.Name,
		Active:          rec.Active,
		Gender:          models.Gender(rec.Gender),
		Privilege:       models.Privilege(rec.Privilege),
		Minor:           rec.Minor,
		GuardianID:      rec.GuardianID,
		FamilyID:        rec.FamilyID,
		AssignmentCount: rec.AssignmentCount,
		LastAssigned:    rec.LastAssigned,
	}
	for _, c := range rec.Capabilities {
		p.Capabilities = append(p.Capabilities, models.Capability(c))
	}
	return p
}

func participantToRecord(unitID string, p models.Participant) database.Participant {
	rec := database.Participant{
		ID:         p.ID,
		UnitID:     unitID,
		Name:       p.Name,
		Active:     p.Active,
		Gender:     string(p.Gender),
		Privilege:  string(p.Privilege),
		Minor:      p.Minor,
		GuardianID: p.GuardianID,
		FamilyID:   p.FamilyID,
	}
	rec.Capabilities = make([]string, 0, len(p.Capabilities))
	for _, c := range p.Capabilities {
		rec.Capabilities = append(rec.Capabilities, string(c))
	}
	return rec
}

func assignmentFromRecord(rec database.Assignment) models.Assignment {
	return models.Assignment{
		ID:          rec.ID,
		PartID:      rec.PartID,
		PrincipalID: rec.PrincipalID,
		AssistantID: rec.AssistantID,
		Status:      models.Status(rec.Status),
		Notes:       rec.Notes,
		ReviewState: models.ReviewState(rec.ReviewState),
	}
}

func assignmentToRecord(programID string, a models.Assignment) database.Assignment {
	review := a.ReviewState
	if review == "" {
		review = models.ReviewDraft
	}
	return database.Assignment{
		ID:          a.ID,
		ProgramID:   programID,
		PartID:      a.PartID,
		PrincipalID: a.PrincipalID,
		AssistantID: a.AssistantID,
		Status:      string(a.Status),
		Notes:       a.Notes,
		ReviewState: string(review),
	}
}
