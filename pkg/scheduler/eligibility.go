package scheduler

import (
	"time"

	"github.com/arnavshah/assignment-engine-go/pkg/models"
)

// Decision is the outcome of a rule check together with its rationale
type Decision struct {
	Allowed bool
	Reason  string
}

func allow(reason string) Decision { return Decision{Allowed: true, Reason: reason} }
func deny(reason string) Decision  { return Decision{Allowed: false, Reason: reason} }

// Rejection reasons reported by CheckEligibility
const (
	ReasonInactive   = "inactive"
	ReasonCapability = "lacking capability"
	ReasonGender     = "gender mismatch"
	ReasonPrivilege  = "privilege not allowed"
	ReasonCommitted  = "already assigned in this program"
	ReasonRecent     = "assigned recently"
	ReasonExcluded   = "excluded"
)

// Requirement describes the hard and soft constraints of one slot
type Requirement struct {
	// Capabilities is an any-of set.
	Capabilities []models.Capability
	Gender       models.Gender
	Privileges   []models.Privilege
	// RecentSince excludes participants last assigned after this instant.
	// Nil disables the recency preference.
	RecentSince *time.Time
	Exclude     string
}

// PrincipalRequirement builds the requirement for the principal of a part
func PrincipalRequirement(part models.Part, rule models.PartRule) Requirement {
	gender := rule.Gender
	if part.RequiredGender != "" {
		gender = part.RequiredGender
	}
	return Requirement{
		Capabilities: []models.Capability{rule.Capability},
		Gender:       gender,
		Privileges:   rule.Privileges,
	}
}

// AssistantRequirement builds the relaxed requirement for the assistant of a
// two-person part. Gender is left to the pairing check.
func AssistantRequirement(rule models.PartRule, principalID string) Requirement {
	return Requirement{
		Capabilities: rule.AssistantCapabilities(),
		Exclude:      principalID,
	}
}

// WithRecency returns a copy of r that skips participants assigned after since
func (r Requirement) WithRecency(since time.Time) Requirement {
	r.RecentSince = &since
	return r
}

// CheckEligibility evaluates a single participant against a requirement
func CheckEligibility(req Requirement, p models.Participant, history models.History, tracker *Tracker) Decision {
	if !p.Active {
		return deny(ReasonInactive)
	}
	if req.Exclude != "" && p.ID == req.Exclude {
		return deny(ReasonExcluded)
	}
	if len(req.Capabilities) > 0 && !p.HasCapability(req.Capabilities...) {
		return deny(ReasonCapability)
	}
	if req.Gender != "" && p.Gender != req.Gender {
		return deny(ReasonGender)
	}
	if len(req.Privileges) > 0 && !(models.PartRule{Privileges: req.Privileges}).AllowsPrivilege(p.Privilege) {
		return deny(ReasonPrivilege)
	}
	if tracker != nil && tracker.IsCommitted(p.ID) {
		return deny(ReasonCommitted)
	}
	if req.RecentSince != nil {
		if c, ok := history[p.ID]; ok && c.LastAssigned != nil && c.LastAssigned.After(*req.RecentSince) {
			return deny(ReasonRecent)
		}
	}
	return allow("eligible")
}

// Eligible returns the participants of the roster that satisfy req. Roster
// order is preserved; an empty result is a normal outcome.
func Eligible(req Requirement, roster []models.Participant, history models.History, tracker *Tracker) []models.Participant {
	out, _ := filterWithReasons(req, roster, history, tracker)
	return out
}

// filterWithReasons is Eligible plus a tally of rejection reasons
func filterWithReasons(req Requirement, roster []models.Participant, history models.History, tracker *Tracker) ([]models.Participant, map[string]int) {
	var out []models.Participant
	rejected := make(map[string]int)
	for _, p := range roster {
		d := CheckEligibility(req, p, history, tracker)
		if d.Allowed {
			out = append(out, p)
			continue
		}
		rejected[d.Reason]++
	}
	return out, rejected
}
