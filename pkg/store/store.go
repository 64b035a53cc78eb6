// Package store is the persistence gateway of the assignment engine. It reads
// the roster, family links, history and program of a run and writes the run's
// results back in a single transaction.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arnavshah/assignment-engine-go/pkg/database"
	"github.com/arnavshah/assignment-engine-go/pkg/models"
	"github.com/arnavshah/assignment-engine-go/pkg/scheduler"
)

var (
	// ErrProgramNotFound is returned when the program does not exist for the unit.
	ErrProgramNotFound = errors.New("program not found")

	// ErrAssignmentNotFound is returned by Approve for an unknown assignment.
	ErrAssignmentNotFound = errors.New("assignment not found")
)

// History roles
const (
	RolePrincipal = "principal"
	RoleAssistant = "assistant"
)

// Snapshot is the read-only input of one generation run
type Snapshot struct {
	Program       models.Program
	Roster        []models.Participant
	Relationships []models.FamilyRelationship
	// History excludes the program being generated so that regenerating it
	// starts from the same fairness state.
	History  models.History
	Existing []models.Assignment
}

// Store reads and writes engine data through gorm
type Store struct {
	DB *gorm.DB
}

// New creates a store over db
func New(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// LoadProgram reads a program and its parts ordered by position
func (s *Store) LoadProgram(ctx context.Context, programID string) (models.Program, error) {
	var rec database.Program
	err := s.DB.WithContext(ctx).
		Preload("Parts", func(db *gorm.DB) *gorm.DB { return db.Order("position asc, id asc") }).
		First(&rec, "id = ?", programID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Program{}, ErrProgramNotFound
	}
	if err != nil {
		return models.Program{}, fmt.Errorf("load program %s: %w", programID, err)
	}
	return programFromRecord(rec), nil
}

// LoadSnapshot performs the single bulk read of a run
func (s *Store) LoadSnapshot(ctx context.Context, programID, unitID string) (*Snapshot, error) {
	program, err := s.LoadProgram(ctx, programID)
	if err != nil {
		return nil, err
	}
	if program.UnitID != unitID {
		return nil, ErrProgramNotFound
	}

	db := s.DB.WithContext(ctx)

	var people []database.Participant
	if err := db.Where("unit_id = ?", unitID).Order("id").Find(&people).Error; err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	var links []database.FamilyLink
	if err := db.Where("unit_id = ?", unitID).Find(&links).Error; err != nil {
		return nil, fmt.Errorf("load family links: %w", err)
	}
	var entries []database.HistoryEntry
	if err := db.Where("unit_id = ? AND program_id <> ?", unitID, programID).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	existing, err := s.Assignments(ctx, programID)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Program:  program,
		History:  historyFromEntries(entries),
		Existing: existing,
	}
	for _, p := range people {
		snap.Roster = append(snap.Roster, participantFromRecord(p))
	}
	for _, l := range links {
		snap.Relationships = append(snap.Relationships, models.FamilyRelationship{A: l.A, B: l.B, Kind: models.RelationKind(l.Kind)})
	}
	return snap, nil
}

// Assignments returns the persisted assignments of a program in part order
func (s *Store) Assignments(ctx context.Context, programID string) ([]models.Assignment, error) {
	var rows []database.Assignment
	err := s.DB.WithContext(ctx).
		Table("assignments").
		Select("assignments.*").
		Joins("LEFT JOIN program_parts ON program_parts.id = assignments.part_id").
		Where("assignments.program_id = ?", programID).
		Order("program_parts.position asc, assignments.part_id asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load assignments: %w", err)
	}
	out := make([]models.Assignment, 0, len(rows))
	for _, r := range rows {
		out = append(out, assignmentFromRecord(r))
	}
	return out, nil
}

// SaveRun writes the assignments and fairness counters of a run atomically.
// Assignments are upserted by part so regeneration never duplicates rows; the
// program's history rows are replaced and participant counters recomputed.
// Any failure rolls back the whole run.
func (s *Store) SaveRun(ctx context.Context, program models.Program, res *scheduler.Result) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		people, err := lockParticipants(tx, program.UnitID)
		if err != nil {
			return err
		}

		partIDs := make([]string, 0, len(res.Assignments))
		rows := make([]database.Assignment, 0, len(res.Assignments))
		for _, a := range res.Assignments {
			partIDs = append(partIDs, a.PartID)
			rows = append(rows, assignmentToRecord(program.ID, a))
		}

		if len(rows) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "part_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"principal_id", "assistant_id", "status", "notes", "review_state", "updated_at"}),
			}).Create(&rows).Error
			if err != nil {
				return fmt.Errorf("upsert assignments: %w", err)
			}
		}

		// parts removed from the program since the last run
		if err := tx.Where("program_id = ? AND part_id NOT IN ?", program.ID, partIDs).Delete(&database.Assignment{}).Error; err != nil {
			return fmt.Errorf("delete stale assignments: %w", err)
		}

		if err := tx.Where("program_id = ?", program.ID).Delete(&database.HistoryEntry{}).Error; err != nil {
			return fmt.Errorf("clear program history: %w", err)
		}
		entries := historyEntries(program, res.Assignments)
		if len(entries) > 0 {
			if err := tx.Create(&entries).Error; err != nil {
				return fmt.Errorf("write history: %w", err)
			}
		}

		return applyCounters(tx, program.UnitID, people)
	})
}

// lockParticipants loads the counters of a unit. On postgres the rows stay
// locked until the transaction ends so runs of one unit save one at a time;
// sqlite already serialises writers.
func lockParticipants(tx *gorm.DB, unitID string) ([]database.Participant, error) {
	q := tx.Select("id", "assignment_count", "last_assigned").Where("unit_id = ?", unitID).Order("id")
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var people []database.Participant
	if err := q.Find(&people).Error; err != nil {
		return nil, fmt.Errorf("load counters: %w", err)
	}
	return people, nil
}

// applyCounters recomputes the counters of the unit from every stored history
// row, including rows written by runs of other programs since this run's
// snapshot was taken. Participants without history are reset to zero.
func applyCounters(tx *gorm.DB, unitID string, people []database.Participant) error {
	var entries []database.HistoryEntry
	if err := tx.Where("unit_id = ?", unitID).Find(&entries).Error; err != nil {
		return fmt.Errorf("load unit history: %w", err)
	}
	history := historyFromEntries(entries)

	for _, p := range people {
		c := history[p.ID]
		if p.AssignmentCount == c.Count && sameTime(p.LastAssigned, c.LastAssigned) {
			continue
		}
		err := tx.Model(&database.Participant{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
			"assignment_count": c.Count,
			"last_assigned":    c.LastAssigned,
		}).Error
		if err != nil {
			return fmt.Errorf("update counters of %s: %w", p.ID, err)
		}
	}
	return nil
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// Approve marks an assignment of the unit as approved by an operator
func (s *Store) Approve(ctx context.Context, unitID, assignmentID string) (models.Assignment, error) {
	var row database.Assignment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Joins("JOIN programs ON programs.id = assignments.program_id").
			Where("assignments.id = ? AND programs.unit_id = ?", assignmentID, unitID).
			First(&row).Error
		if err != nil {
			return err
		}
		row.ReviewState = string(models.ReviewApproved)
		return tx.Model(&row).Update("review_state", row.ReviewState).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Assignment{}, ErrAssignmentNotFound
	}
	if err != nil {
		return models.Assignment{}, fmt.Errorf("approve assignment: %w", err)
	}
	return assignmentFromRecord(row), nil
}

func historyEntries(program models.Program, assignments []models.Assignment) []database.HistoryEntry {
	var out []database.HistoryEntry
	for _, a := range assignments {
		if a.Status != models.StatusAssigned {
			continue
		}
		roles := []struct {
			id   *string
			role string
		}{{a.PrincipalID, RolePrincipal}, {a.AssistantID, RoleAssistant}}
		for _, r := range roles {
			if r.id == nil {
				continue
			}
			out = append(out, database.HistoryEntry{
				UnitID:        program.UnitID,
				ProgramID:     program.ID,
				PartID:        a.PartID,
				ParticipantID: *r.id,
				Role:          r.role,
				WeekStart:     program.WeekStart,
			})
		}
	}
	return out
}

func historyFromEntries(entries []database.HistoryEntry) models.History {
	h := make(models.History)
	for _, e := range entries {
		c := h[e.ParticipantID]
		c.Count++
		if !e.WeekStart.IsZero() && (c.LastAssigned == nil || e.WeekStart.After(*c.LastAssigned)) {
			week := e.WeekStart
			c.LastAssigned = &week
		}
		h[e.ParticipantID] = c
	}
	return h
}
