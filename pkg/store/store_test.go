package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/arnavshah/assignment-engine-go/pkg/database"
	"github.com/arnavshah/assignment-engine-go/pkg/models"
	"github.com/arnavshah/assignment-engine-go/pkg/scheduler"
)

var week = time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open(database.Options{
		DataPath: fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return New(db)
}

func testRoster() []models.Participant {
	return []models.Participant{
		{ID: "b1", Name: "Brother One", Active: true, Gender: models.Male, Privilege: models.Elder,
			Capabilities: []models.Capability{models.CapChairman, models.CapReading}},
		{ID: "b2", Name: "Brother Two", Active: true, Gender: models.Male, Privilege: models.BaptizedPublisher,
			Capabilities: []models.Capability{models.CapReading}},
		{ID: "s1", Name: "Sister One", Active: true, Gender: models.Female, Privilege: models.BaptizedPublisher,
			Capabilities: []models.Capability{models.CapStarting}},
		{ID: "s2", Name: "Sister Two", Active: true, Gender: models.Female, Privilege: models.BaptizedPublisher,
			Capabilities: []models.Capability{models.CapAssistant}},
	}
}

func testProgram(id string, start time.Time, parts ...models.Part) models.Program {
	if len(parts) == 0 {
		parts = []models.Part{
			{ID: id + "-chair", Position: 1, Type: models.OpeningComments},
			{ID: id + "-reading", Position: 2, Type: models.BibleReading},
			{ID: id + "-starting", Position: 3, Type: models.StartingConversation},
		}
	}
	return models.Program{ID: id, UnitID: "unit-1", WeekStart: start, WeekEnd: start.AddDate(0, 0, 6), Parts: parts}
}

func seed(t *testing.T, s *Store, programs ...models.Program) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.UpsertParticipants(ctx, "unit-1", testRoster()))
	for _, p := range programs {
		require.NoError(t, s.UpsertProgram(ctx, p))
	}
}

func run(t *testing.T, s *Store, programID string) *scheduler.Result {
	t.Helper()
	ctx := context.Background()
	snap, err := s.LoadSnapshot(ctx, programID, "unit-1")
	require.NoError(t, err)
	res, err := scheduler.Generate(scheduler.Input{
		Program:       snap.Program,
		Roster:        snap.Roster,
		Relationships: snap.Relationships,
		History:       snap.History,
	})
	require.NoError(t, err)
	require.NoError(t, s.SaveRun(ctx, snap.Program, res))
	return res
}

func countRows(t *testing.T, s *Store, model interface{}, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.DB.Model(model).Where(where, args...).Count(&n).Error)
	return n
}

func TestLoadSnapshot(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, testProgram("prog-1", week))
	ctx := context.Background()
	require.NoError(t, s.ReplaceRelationships(ctx, "unit-1", []models.FamilyRelationship{
		{A: "s1", B: "b2", Kind: models.Spouse},
		{A: "b2", B: "s1", Kind: models.Spouse},
	}))

	snap, err := s.LoadSnapshot(ctx, "prog-1", "unit-1")
	require.NoError(t, err)
	assert.Len(t, snap.Roster, 4)
	assert.Equal(t, []models.Capability{models.CapChairman, models.CapReading}, snap.Roster[0].Capabilities)
	require.Len(t, snap.Relationships, 1)
	assert.Equal(t, "b2", snap.Relationships[0].A)
	require.Len(t, snap.Program.Parts, 3)
	assert.Equal(t, "prog-1-chair", snap.Program.Parts[0].ID)
	assert.Empty(t, snap.Existing)

	_, err = s.LoadSnapshot(ctx, "prog-1", "unit-2")
	assert.ErrorIs(t, err, ErrProgramNotFound)
	_, err = s.LoadSnapshot(ctx, "missing", "unit-1")
	assert.ErrorIs(t, err, ErrProgramNotFound)
}

func TestSaveRun_RegenerationDoesNotDuplicate(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, testProgram("prog-1", week))

	first := run(t, s, "prog-1")
	second := run(t, s, "prog-1")

	assert.Equal(t, first.Assignments, second.Assignments)
	assert.EqualValues(t, 3, countRows(t, s, &database.Assignment{}, "program_id = ?", "prog-1"))

	// b1 chairs, b2 reads, s1 and s2 share the demonstration
	assert.EqualValues(t, 4, countRows(t, s, &database.HistoryEntry{}, "program_id = ?", "prog-1"))

	var b1 database.Participant
	require.NoError(t, s.DB.First(&b1, "id = ?", "b1").Error)
	assert.Equal(t, 1, b1.AssignmentCount)
	require.NotNil(t, b1.LastAssigned)
	assert.True(t, b1.LastAssigned.Equal(week))
}

func TestSaveRun_HistoryCarriesAcrossPrograms(t *testing.T) {
	s := newTestStore(t)
	next := week.AddDate(0, 0, 7)
	seed(t, s, testProgram("prog-1", week), testProgram("prog-2", next))

	run(t, s, "prog-1")
	run(t, s, "prog-2")

	snap, err := s.LoadSnapshot(context.Background(), "prog-2", "unit-1")
	require.NoError(t, err)
	// the snapshot of prog-2 only sees prog-1
	assert.Equal(t, 1, snap.History["b1"].Count)

	var b1 database.Participant
	require.NoError(t, s.DB.First(&b1, "id = ?", "b1").Error)
	assert.Equal(t, 2, b1.AssignmentCount)
	assert.True(t, b1.LastAssigned.Equal(next))
}

func TestSaveRun_OverlappingRunsKeepBothCounts(t *testing.T) {
	s := newTestStore(t)
	next := week.AddDate(0, 0, 7)
	seed(t, s, testProgram("prog-1", week), testProgram("prog-2", next))
	ctx := context.Background()

	generate := func(programID string) (models.Program, *scheduler.Result) {
		snap, err := s.LoadSnapshot(ctx, programID, "unit-1")
		require.NoError(t, err)
		res, err := scheduler.Generate(scheduler.Input{
			Program: snap.Program, Roster: snap.Roster,
			Relationships: snap.Relationships, History: snap.History,
		})
		require.NoError(t, err)
		return snap.Program, res
	}

	// both runs start before either one is saved
	p1, r1 := generate("prog-1")
	p2, r2 := generate("prog-2")
	assert.Equal(t, 1, r2.History["b1"].Count)

	require.NoError(t, s.SaveRun(ctx, p2, r2))
	require.NoError(t, s.SaveRun(ctx, p1, r1))

	var b1 database.Participant
	require.NoError(t, s.DB.First(&b1, "id = ?", "b1").Error)
	assert.Equal(t, 2, b1.AssignmentCount)
	require.NotNil(t, b1.LastAssigned)
	assert.True(t, b1.LastAssigned.Equal(next))
}

func TestSaveRun_RemovesStaleParts(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, testProgram("prog-1", week))
	run(t, s, "prog-1")

	shorter := testProgram("prog-1", week, models.Part{ID: "prog-1-chair", Position: 1, Type: models.OpeningComments})
	require.NoError(t, s.UpsertProgram(context.Background(), shorter))
	run(t, s, "prog-1")

	got, err := s.Assignments(context.Background(), "prog-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "prog-1-chair", got[0].PartID)

	var s1 database.Participant
	require.NoError(t, s.DB.First(&s1, "id = ?", "s1").Error)
	assert.Equal(t, 0, s1.AssignmentCount)
	assert.Nil(t, s1.LastAssigned)
}

func TestSaveRun_RollsBackOnFailure(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, testProgram("prog-1", week))

	ctx := context.Background()
	snap, err := s.LoadSnapshot(ctx, "prog-1", "unit-1")
	require.NoError(t, err)
	res, err := scheduler.Generate(scheduler.Input{Program: snap.Program, Roster: snap.Roster, History: snap.History})
	require.NoError(t, err)

	boom := errors.New("disk full")
	require.NoError(t, s.DB.Callback().Create().Before("gorm:create").Register("test:fail_history", func(tx *gorm.DB) {
		if tx.Statement.Table == "assignment_history" {
			_ = tx.AddError(boom)
		}
	}))

	err = s.SaveRun(ctx, snap.Program, res)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	assert.EqualValues(t, 0, countRows(t, s, &database.Assignment{}, "program_id = ?", "prog-1"))
	var b1 database.Participant
	require.NoError(t, s.DB.First(&b1, "id = ?", "b1").Error)
	assert.Equal(t, 0, b1.AssignmentCount)
}

func TestApprove(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, testProgram("prog-1", week))
	res := run(t, s, "prog-1")

	ctx := context.Background()
	got, err := s.Approve(ctx, "unit-1", res.Assignments[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewApproved, got.ReviewState)

	list, err := s.Assignments(ctx, "prog-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReviewApproved, list[0].ReviewState)
	assert.Equal(t, models.ReviewDraft, list[1].ReviewState)

	_, err = s.Approve(ctx, "unit-1", "nope")
	assert.ErrorIs(t, err, ErrAssignmentNotFound)
	_, err = s.Approve(ctx, "unit-2", res.Assignments[1].ID)
	assert.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestUpsertParticipants_KeepsCounters(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, testProgram("prog-1", week))
	run(t, s, "prog-1")

	ctx := context.Background()
	roster := testRoster()
	roster[0].Name = "Renamed"
	require.NoError(t, s.UpsertParticipants(ctx, "unit-1", roster))

	var b1 database.Participant
	require.NoError(t, s.DB.First(&b1, "id = ?", "b1").Error)
	assert.Equal(t, "Renamed", b1.Name)
	assert.Equal(t, 1, b1.AssignmentCount)

	err := s.UpsertParticipants(ctx, "unit-2", roster[:1])
	assert.ErrorIs(t, err, ErrUnitMismatch)
}

func TestUpsertProgram_UnitMismatch(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, testProgram("prog-1", week))

	other := testProgram("prog-1", week)
	other.UnitID = "unit-2"
	err := s.UpsertProgram(context.Background(), other)
	assert.ErrorIs(t, err, ErrUnitMismatch)
}
