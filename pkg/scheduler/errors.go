package scheduler

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidInput is matched by every *ValidationError.
	ErrInvalidInput = errors.New("invalid generation input")

	// ErrDoubleBooking is returned when a participant is committed to a second part.
	ErrDoubleBooking = errors.New("participant already committed in this run")
)

// ValidationError lists every problem found in a program or roster before a run
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid generation input: " + strings.Join(e.Problems, "; ")
}

// Is lets errors.Is(err, ErrInvalidInput) match validation failures
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func (e *ValidationError) add(problem string) {
	e.Problems = append(e.Problems, problem)
}

func (e *ValidationError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}
