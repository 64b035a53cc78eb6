package models

import "time"

// Gender of a participant or the gender a part requires
type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

// Valid reports whether g is a known gender
func (g Gender) Valid() bool {
	return g == Male || g == Female
}

// Capability marks a participant as able to perform a kind of part
type Capability string

const (
	CapChairman   Capability = "chairman"
	CapTreasures  Capability = "treasures"
	CapGems       Capability = "gems"
	CapReading    Capability = "reading"
	CapStarting   Capability = "starting"
	CapFollowing  Capability = "following"
	CapMaking     Capability = "making"
	CapExplaining Capability = "explaining"
	CapTalk       Capability = "talk"
	// CapAssistant lets a participant help on any two-person part.
	CapAssistant Capability = "assistant"
)

// Privilege is the participant's standing in the congregation
type Privilege string

const (
	Elder               Privilege = "elder"
	MinisterialServant  Privilege = "ministerial_servant"
	RegularPioneer      Privilege = "regular_pioneer"
	BaptizedPublisher   Privilege = "baptized_publisher"
	UnbaptizedPublisher Privilege = "unbaptized_publisher"
	Student             Privilege = "student"
)

// RelationKind is the kind of a family link between two participants
type RelationKind string

const (
	Spouse      RelationKind = "spouse"
	ParentChild RelationKind = "parent_child"
	Sibling     RelationKind = "sibling"
)

// Valid reports whether k is a known relation kind
func (k RelationKind) Valid() bool {
	switch k {
	case Spouse, ParentChild, Sibling:
		return true
	}
	return false
}

// Status of a generated assignment
type Status string

const (
	StatusAssigned Status = "assigned"
	StatusPending  Status = "pending"
	StatusConflict Status = "conflict"
)

// ReviewState tracks operator review of an assignment
type ReviewState string

const (
	ReviewDraft    ReviewState = "draft"
	ReviewApproved ReviewState = "approved"
)

// Participant represents a congregation member who can receive parts
type Participant struct {
	ID              string       `json:"id" binding:"required"`
	Name            string       `json:"name"`
	Active          bool         `json:"active"`
	Gender          Gender       `json:"gender" binding:"required"`
	Capabilities    []Capability `json:"capabilities"`
	Privilege       Privilege    `json:"privilege,omitempty"`
	Minor           bool         `json:"minor"`
	GuardianID      string       `json:"guardian_id,omitempty"`
	FamilyID        string       `json:"family_id,omitempty"`
	AssignmentCount int          `json:"assignment_count"`
	LastAssigned    *time.Time   `json:"last_assigned,omitempty"`
}

// HasCapability reports whether the participant carries any of the given tags
func (p *Participant) HasCapability(caps ...Capability) bool {
	for _, have := range p.Capabilities {
		for _, want := range caps {
			if have == want {
				return true
			}
		}
	}
	return false
}

// FamilyRelationship is an unordered pair of participants plus the kind of link
type FamilyRelationship struct {
	A    string       `json:"a" binding:"required"`
	B    string       `json:"b" binding:"required"`
	Kind RelationKind `json:"kind" binding:"required"`
}

// Part is one agenda item of a program
type Part struct {
	ID             string   `json:"id" binding:"required"`
	Position       int      `json:"position"`
	Type           PartType `json:"type" binding:"required"`
	Title          string   `json:"title,omitempty"`
	RequiredGender Gender   `json:"required_gender,omitempty"`
	Minutes        int      `json:"minutes"`
}

// Program is a weekly meeting program for one congregation
type Program struct {
	ID        string    `json:"id" binding:"required"`
	UnitID    string    `json:"unit_id" binding:"required"`
	WeekStart time.Time `json:"week_start"`
	WeekEnd   time.Time `json:"week_end"`
	Parts     []Part    `json:"parts"`
}

// Assignment binds a part to its principal and optional assistant
type Assignment struct {
	ID          string      `json:"id"`
	PartID      string      `json:"part_id"`
	PrincipalID *string     `json:"principal_id"`
	AssistantID *string     `json:"assistant_id"`
	Status      Status      `json:"status"`
	Notes       string      `json:"notes,omitempty"`
	ReviewState ReviewState `json:"review_state"`
}

// Counter is the fairness history of one participant
type Counter struct {
	Count        int        `json:"count"`
	LastAssigned *time.Time `json:"last_assigned,omitempty"`
}

// History maps participant IDs to their fairness counters
type History map[string]Counter

// Clone returns an independent copy of h
func (h History) Clone() History {
	out := make(History, len(h))
	for id, c := range h {
		out[id] = c
	}
	return out
}

// GenerateRequest is the body of the generation endpoint
type GenerateRequest struct {
	ProgramID string `json:"program_id" binding:"required"`
	UnitID    string `json:"unit_id" binding:"required"`
	Mode      string `json:"mode"`
}

// Generation modes for programs that already have assignments
const (
	ModeUpdate              = "update"
	ModeUpdateAndRegenerate = "update_and_regenerate"
)

// AssignmentView is one entry of a generation summary
type AssignmentView struct {
	ID          string      `json:"id"`
	PartID      string      `json:"part_id"`
	PrincipalID *string     `json:"principal_id"`
	AssistantID *string     `json:"assistant_id"`
	Status      Status      `json:"status"`
	Notes       *string     `json:"notes"`
	ReviewState ReviewState `json:"review_state"`
}

// GenerateResponse summarizes a generation run
type GenerateResponse struct {
	Success       bool             `json:"success"`
	ProgramID     string           `json:"program_id"`
	TotalParts    int              `json:"total_parts"`
	AssignedCount int              `json:"assigned_count"`
	PendingCount  int              `json:"pending_count"`
	FairnessScore float64          `json:"fairness_score"`
	Assignments   []AssignmentView `json:"assignments"`
}

// NewAssignmentView converts an assignment to its wire form
func NewAssignmentView(a Assignment) AssignmentView {
	v := AssignmentView{
		ID:          a.ID,
		PartID:      a.PartID,
		PrincipalID: a.PrincipalID,
		AssistantID: a.AssistantID,
		Status:      a.Status,
		ReviewState: a.ReviewState,
	}
	if a.Notes != "" {
		notes := a.Notes
		v.Notes = &notes
	}
	return v
}
