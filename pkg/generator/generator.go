// Package generator runs one generation pass for a program end to end: lock,
// read, schedule, persist.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arnavshah/assignment-engine-go/pkg/metrics"
	"github.com/arnavshah/assignment-engine-go/pkg/models"
	"github.com/arnavshah/assignment-engine-go/pkg/runlock"
	"github.com/arnavshah/assignment-engine-go/pkg/scheduler"
	"github.com/arnavshah/assignment-engine-go/pkg/store"
)

var (
	// ErrModeRequired is returned when a program already has assignments and
	// the caller did not say whether to keep approved ones.
	ErrModeRequired = errors.New("program already has assignments; mode must be update or update_and_regenerate")

	// ErrUnknownMode is returned for a mode outside the supported set.
	ErrUnknownMode = errors.New("unknown generation mode")
)

// Summary is the outcome of a run as returned to API callers
type Summary struct {
	models.GenerateResponse
	Stats      scheduler.Stats       `json:"stats"`
	Selections []scheduler.Selection `json:"selections,omitempty"`
}

// Service wires the scheduler to storage, locking and metrics
type Service struct {
	Store   *store.Store
	Locker  runlock.Locker
	Metrics metrics.Recorder
	Logger  *slog.Logger
	Policy  scheduler.PairingPolicy
}

// New creates a service. Nil collaborators fall back to in-process defaults.
func New(st *store.Store, locker runlock.Locker, rec metrics.Recorder, logger *slog.Logger, policy scheduler.PairingPolicy) *Service {
	if locker == nil {
		locker = runlock.NewLocal()
	}
	if rec == nil {
		rec = metrics.NewNop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{Store: st, Locker: locker, Metrics: rec, Logger: logger, Policy: policy}
}

// Generate assigns every part of the requested program and persists the result
func (s *Service) Generate(ctx context.Context, req models.GenerateRequest) (*Summary, error) {
	start := time.Now()
	summary, err := s.generate(ctx, req)
	s.Metrics.RecordRun(resultLabel(err), time.Since(start))

	log := s.Logger.With("program_id", req.ProgramID, "unit_id", req.UnitID, "mode", req.Mode)
	if err != nil {
		log.Warn("generation run failed", "error", err)
		return nil, err
	}
	log.Info("generation run finished",
		"parts", summary.TotalParts,
		"assigned", summary.AssignedCount,
		"pending", summary.PendingCount,
		"relaxed", summary.Stats.Relaxed,
		"kept", summary.Stats.Kept,
		"released", summary.Stats.Released,
		"duration", time.Since(start),
	)
	return summary, nil
}

func (s *Service) generate(ctx context.Context, req models.GenerateRequest) (*Summary, error) {
	switch req.Mode {
	case "", models.ModeUpdate, models.ModeUpdateAndRegenerate:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, req.Mode)
	}

	release, err := s.Locker.Acquire(ctx, runlock.ProgramKey(req.ProgramID))
	if err != nil {
		return nil, err
	}
	defer release()

	snap, err := s.Store.LoadSnapshot(ctx, req.ProgramID, req.UnitID)
	if err != nil {
		return nil, err
	}

	var kept []models.Assignment
	if len(snap.Existing) > 0 {
		switch req.Mode {
		case "":
			return nil, ErrModeRequired
		case models.ModeUpdate:
			for _, a := range snap.Existing {
				if a.ReviewState == models.ReviewApproved {
					kept = append(kept, a)
				}
			}
		}
	}

	res, err := scheduler.Generate(scheduler.Input{
		Program:       snap.Program,
		Roster:        snap.Roster,
		Relationships: snap.Relationships,
		History:       snap.History,
		Kept:          kept,
		Policy:        s.Policy,
	})
	if err != nil {
		return nil, err
	}

	if err := s.Store.SaveRun(ctx, snap.Program, res); err != nil {
		return nil, err
	}

	s.Metrics.RecordParts(res.Stats.Assigned, res.Stats.Pending, res.Stats.Relaxed)
	s.Metrics.RecordFairness(req.UnitID, res.Stats.FairnessScore)

	return newSummary(snap.Program.ID, res), nil
}

func newSummary(programID string, res *scheduler.Result) *Summary {
	out := &Summary{
		GenerateResponse: models.GenerateResponse{
			Success:       true,
			ProgramID:     programID,
			TotalParts:    res.Stats.TotalParts,
			AssignedCount: res.Stats.Assigned,
			PendingCount:  res.Stats.Pending,
			FairnessScore: res.Stats.FairnessScore,
			Assignments:   make([]models.AssignmentView, 0, len(res.Assignments)),
		},
		Stats:      res.Stats,
		Selections: res.Selections,
	}
	for _, a := range res.Assignments {
		out.Assignments = append(out.Assignments, models.NewAssignmentView(a))
	}
	return out
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, scheduler.ErrInvalidInput), errors.Is(err, ErrUnknownMode):
		return metrics.ResultInvalid
	case errors.Is(err, runlock.ErrRunInProgress), errors.Is(err, ErrModeRequired):
		return metrics.ResultConflict
	default:
		return metrics.ResultError
	}
}
