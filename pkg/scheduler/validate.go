package scheduler

import (
	"fmt"

	"github.com/arnavshah/assignment-engine-go/pkg/models"
)

// ValidateProgram checks the structural soundness of a program
func ValidateProgram(program models.Program) error {
	verr := &ValidationError{}
	validateProgram(verr, program)
	return verr.orNil()
}

// ValidateInput checks the program, roster and relationships of a run
func ValidateInput(in Input) error {
	verr := &ValidationError{}
	validateProgram(verr, in.Program)

	ids := make(map[string]bool, len(in.Roster))
	for _, p := range in.Roster {
		if p.ID == "" {
			verr.add("participant with empty id")
			continue
		}
		if ids[p.ID] {
			verr.add("duplicate participant id: " + p.ID)
		}
		ids[p.ID] = true
		if !p.Gender.Valid() {
			verr.add(fmt.Sprintf("participant %s has unknown gender %q", p.ID, p.Gender))
		}
	}
	for _, p := range in.Roster {
		if !p.Minor {
			continue
		}
		if p.GuardianID == "" {
			verr.add("minor " + p.ID + " has no guardian")
		} else if !ids[p.GuardianID] {
			verr.add("minor " + p.ID + " references unknown guardian " + p.GuardianID)
		}
	}

	for _, r := range in.Relationships {
		if !r.Kind.Valid() {
			verr.add(fmt.Sprintf("relationship %s-%s has unknown kind %q", r.A, r.B, r.Kind))
		}
	}
	return verr.orNil()
}

func validateProgram(verr *ValidationError, program models.Program) {
	if program.ID == "" {
		verr.add("program id is required")
	}
	if len(program.Parts) == 0 {
		verr.add("program has no parts")
		return
	}

	seen := make(map[string]bool, len(program.Parts))
	for i, part := range program.Parts {
		if part.ID == "" {
			verr.add(fmt.Sprintf("part #%d has no id", i))
			continue
		}
		if seen[part.ID] {
			verr.add("duplicate part id: " + part.ID)
		}
		seen[part.ID] = true

		if _, ok := models.RuleFor(part.Type); !ok {
			verr.add(fmt.Sprintf("part %s has unrecognized type %q", part.ID, part.Type))
		}
		if part.RequiredGender != "" && !part.RequiredGender.Valid() {
			verr.add(fmt.Sprintf("part %s has unknown required gender %q", part.ID, part.RequiredGender))
		}
	}
}
