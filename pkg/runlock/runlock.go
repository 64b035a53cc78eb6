// Package runlock serializes generation runs of the same program. Two
// concurrent runs of one program would race on its assignment rows and
// fairness counters.
package runlock

import (
	"context"
	"errors"
)

// ErrRunInProgress is returned when another run holds the lock
var ErrRunInProgress = errors.New("a generation run for this program is already in progress")

// Locker hands out exclusive locks by key. The returned release function is
// safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// ProgramKey is the lock key of a program
func ProgramKey(programID string) string {
	return "assignment-engine:run:" + programID
}
