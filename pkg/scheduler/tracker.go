package scheduler

import "fmt"

// Tracker records which participants are already committed to a part in the
// current run. It lives for exactly one generation pass.
type Tracker struct {
	committed map[string]string // participantID -> partID
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{committed: make(map[string]string)}
}

// Commit reserves a participant for a part
func (t *Tracker) Commit(participantID, partID string) error {
	if existing, ok := t.committed[participantID]; ok {
		return fmt.Errorf("%w: participant %s already holds part %s", ErrDoubleBooking, participantID, existing)
	}
	t.committed[participantID] = partID
	return nil
}

// IsCommitted reports whether the participant already holds a part in this run
func (t *Tracker) IsCommitted(participantID string) bool {
	_, ok := t.committed[participantID]
	return ok
}

// PartOf returns the part a participant is committed to
func (t *Tracker) PartOf(participantID string) (string, bool) {
	partID, ok := t.committed[participantID]
	return partID, ok
}

// Release frees a participant committed earlier in the run
func (t *Tracker) Release(participantID string) {
	delete(t.committed, participantID)
}

// Len returns the number of committed participants
func (t *Tracker) Len() int {
	return len(t.committed)
}
