package scheduler

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/arnavshah/assignment-engine-go/pkg/models"
	"github.com/google/uuid"
)

// Notes written on assignments
const (
	NoteNoCandidate    = "no eligible candidate"
	NoteNoPair         = "no eligible pair"
	NoteRecencyRelaxed = "recency relaxed"
	NoteReleased       = "approved assignment released"
)

var assignmentNamespace = uuid.MustParse("6f1c1f0e-5b7a-4e43-9d55-8a2f3c3b9e10")

// AssignmentID derives the stable identifier of the assignment of a part so
// that regeneration overwrites instead of duplicating.
func AssignmentID(partID string) string {
	return uuid.NewSHA1(assignmentNamespace, []byte(partID)).String()
}

// Input is everything a generation run reads
type Input struct {
	Program       models.Program
	Roster        []models.Participant
	Relationships []models.FamilyRelationship
	// History defaults to the counters carried by the roster.
	History models.History
	// Kept assignments are emitted unchanged and block their participants.
	Kept   []models.Assignment
	Policy PairingPolicy
}

// Selection explains one pick
type Selection struct {
	PartID       string `json:"part_id"`
	Reason       string `json:"reason"`
	Alternatives int    `json:"alternatives"`
}

// Stats summarizes a run
type Stats struct {
	TotalParts    int            `json:"total_parts"`
	Assigned      int            `json:"assigned"`
	Pending       int            `json:"pending"`
	Relaxed       int            `json:"relaxed"`
	Kept          int            `json:"kept"`
	Released      int            `json:"released"`
	ByPrivilege   map[string]int `json:"by_privilege"`
	Unassigned    []string       `json:"unassigned"`
	FairnessScore float64        `json:"fairness_score"`
}

// Result is what a generation run produces
type Result struct {
	Assignments []models.Assignment
	// History is the input history with this run's assigned parts applied.
	History    models.History
	Selections []Selection
	Stats      Stats
}

// Scheduler walks the parts of one program and assigns participants
type Scheduler struct {
	Program models.Program
	Roster  []models.Participant
	Family  *FamilyIndex
	History models.History
	Tracker *Tracker
	Policy  PairingPolicy

	byID     map[string]models.Participant
	kept     map[string]models.Assignment
	released map[string]string
}

// NewScheduler validates the input and creates a scheduler for one run
func NewScheduler(in Input) (*Scheduler, error) {
	if err := ValidateInput(in); err != nil {
		return nil, err
	}

	history := in.History
	if history == nil {
		history = HistoryFromRoster(in.Roster)
	}

	// Roster order must not influence the result.
	roster := make([]models.Participant, len(in.Roster))
	copy(roster, in.Roster)
	sort.Slice(roster, func(i, j int) bool { return roster[i].ID < roster[j].ID })

	byID := make(map[string]models.Participant, len(roster))
	for _, p := range roster {
		byID[p.ID] = p
	}

	s := &Scheduler{
		Program:  in.Program,
		Roster:   roster,
		Family:   NewFamilyIndex(in.Relationships),
		History:  history.Clone(),
		Tracker:  NewTracker(),
		Policy:   in.Policy,
		byID:     byID,
		kept:     make(map[string]models.Assignment),
		released: make(map[string]string),
	}
	s.Prefill(in.Kept)
	return s, nil
}

// Generate runs a full generation pass. It is a pure function of its input.
func Generate(in Input) (*Result, error) {
	s, err := NewScheduler(in)
	if err != nil {
		return nil, err
	}
	return s.Run(), nil
}

// Prefill keeps approved assignments that still hold against the current
// roster, walking parts in program order. An assignment that no longer holds,
// including one that double books a participant already kept for an earlier
// part, is released and its part recomputed with the reason in its notes.
func (s *Scheduler) Prefill(assignments []models.Assignment) {
	byPart := make(map[string]models.Assignment, len(assignments))
	for _, a := range assignments {
		if _, dup := byPart[a.PartID]; !dup {
			byPart[a.PartID] = a
		}
	}

	for _, part := range s.orderedParts() {
		a, ok := byPart[part.ID]
		if !ok {
			continue
		}
		if reason := s.checkKept(part, a); reason != "" {
			s.released[part.ID] = reason
			continue
		}
		if err := s.commit(part.ID, a.PrincipalID, a.AssistantID); err != nil {
			s.released[part.ID] = err.Error()
			continue
		}
		s.kept[part.ID] = a
	}
}

// checkKept re-applies the hard constraints of a part to a kept assignment and
// returns why it no longer holds, or "" when it does
func (s *Scheduler) checkKept(part models.Part, a models.Assignment) string {
	rule, _ := models.RuleFor(part.Type)
	if a.Status != models.StatusAssigned || a.PrincipalID == nil {
		return "part was not assigned"
	}
	if rule.NeedsAssistant != (a.AssistantID != nil) {
		return "assistant does not match the part"
	}

	principal, ok := s.byID[*a.PrincipalID]
	if !ok {
		return *a.PrincipalID + ": not on the roster"
	}
	if d := CheckEligibility(PrincipalRequirement(part, rule), principal, s.History, s.Tracker); !d.Allowed {
		return principal.ID + ": " + d.Reason
	}
	if a.AssistantID == nil {
		return ""
	}

	assistant, ok := s.byID[*a.AssistantID]
	if !ok {
		return *a.AssistantID + ": not on the roster"
	}
	if d := CheckEligibility(AssistantRequirement(rule, principal.ID), assistant, s.History, s.Tracker); !d.Allowed {
		return assistant.ID + ": " + d.Reason
	}
	if d := s.pairAllowed(rule, principal, assistant); !d.Allowed {
		return principal.ID + "/" + assistant.ID + ": " + d.Reason
	}
	return ""
}

// commit reserves every participant of an assignment or none of them
func (s *Scheduler) commit(partID string, ids ...*string) error {
	var done []string
	for _, id := range ids {
		if id == nil {
			continue
		}
		if err := s.Tracker.Commit(*id, partID); err != nil {
			for _, d := range done {
				s.Tracker.Release(d)
			}
			return err
		}
		done = append(done, *id)
	}
	return nil
}

// orderedParts returns the parts by position, keeping input order for ties
func (s *Scheduler) orderedParts() []models.Part {
	parts := make([]models.Part, len(s.Program.Parts))
	copy(parts, s.Program.Parts)
	sort.SliceStable(parts, func(i, j int) bool { return parts[i].Position < parts[j].Position })
	return parts
}

// Run assigns every part in program order. Every part yields exactly one assignment.
func (s *Scheduler) Run() *Result {
	res := &Result{}
	stats := Stats{ByPrivilege: make(map[string]int)}

	for _, part := range s.orderedParts() {
		var a models.Assignment
		var sel *Selection
		if k, ok := s.kept[part.ID]; ok {
			a = k
			stats.Kept++
		} else {
			rule, _ := models.RuleFor(part.Type)
			if rule.NeedsAssistant {
				a, sel = s.assignPair(part, rule)
			} else {
				a, sel = s.assignSingle(part, rule)
			}
			a.ID = AssignmentID(part.ID)
			a.PartID = part.ID
			a.ReviewState = models.ReviewDraft
			if reason, ok := s.released[part.ID]; ok {
				a.Notes = joinNotes(fmt.Sprintf("%s (%s)", NoteReleased, reason), a.Notes)
				stats.Released++
			}
		}

		switch a.Status {
		case models.StatusAssigned:
			stats.Assigned++
			s.applyCounters(a)
			for _, id := range []*string{a.PrincipalID, a.AssistantID} {
				if id != nil {
					stats.ByPrivilege[string(s.byID[*id].Privilege)]++
				}
			}
		default:
			stats.Pending++
		}
		if strings.Contains(a.Notes, NoteRecencyRelaxed) {
			stats.Relaxed++
		}
		if sel != nil {
			res.Selections = append(res.Selections, *sel)
		}
		res.Assignments = append(res.Assignments, a)
	}

	for _, p := range s.Roster {
		if p.Active && !s.Tracker.IsCommitted(p.ID) {
			stats.Unassigned = append(stats.Unassigned, p.ID)
		}
	}
	stats.TotalParts = len(res.Assignments)
	stats.FairnessScore = FairnessScore(s.History, s.Roster)

	res.History = s.History
	res.Stats = stats
	return res
}

// recentSince is the start of the recency window of a rule, nil when the
// program has no week or the rule has no cooldown
func (s *Scheduler) recentSince(rule models.PartRule) *time.Time {
	if rule.CooldownWeeks <= 0 || s.Program.WeekStart.IsZero() {
		return nil
	}
	since := s.Program.WeekStart.AddDate(0, 0, -7*rule.CooldownWeeks)
	return &since
}

func (s *Scheduler) withRecency(req Requirement, rule models.PartRule, relaxed bool) Requirement {
	if relaxed {
		return req
	}
	if since := s.recentSince(rule); since != nil {
		return req.WithRecency(*since)
	}
	return req
}

// passes lists the strict pass and, when recency applies, the relaxed one
func (s *Scheduler) passes(rule models.PartRule) []bool {
	if s.recentSince(rule) == nil {
		return []bool{false}
	}
	return []bool{false, true}
}

func (s *Scheduler) assignSingle(part models.Part, rule models.PartRule) (models.Assignment, *Selection) {
	base := PrincipalRequirement(part, rule)

	var rejected map[string]int
	for _, relaxed := range s.passes(rule) {
		var candidates []models.Participant
		candidates, rejected = filterWithReasons(s.withRecency(base, rule, relaxed), s.Roster, s.History, s.Tracker)
		if len(candidates) == 0 {
			continue
		}

		best := Rank(candidates, s.History)[0]
		_ = s.Tracker.Commit(best.ID, part.ID)

		a := models.Assignment{
			PrincipalID: strPtr(best.ID),
			Status:      models.StatusAssigned,
		}
		if relaxed {
			a.Notes = s.relaxedNote(rule)
		}
		return a, &Selection{PartID: part.ID, Reason: Explain(best, s.History), Alternatives: len(candidates)}
	}

	return models.Assignment{
		Status: models.StatusPending,
		Notes:  withReasons(NoteNoCandidate, rejected),
	}, nil
}

func (s *Scheduler) assignPair(part models.Part, rule models.PartRule) (models.Assignment, *Selection) {
	base := PrincipalRequirement(part, rule)

	var rejected map[string]int
	sawPrincipal := false
	pairRejections := make(map[string]int)

	for _, relaxed := range s.passes(rule) {
		var principals []models.Participant
		principals, rejected = filterWithReasons(s.withRecency(base, rule, relaxed), s.Roster, s.History, s.Tracker)
		if len(principals) == 0 {
			continue
		}
		sawPrincipal = true

		for _, principal := range Rank(principals, s.History) {
			assistantReq := s.withRecency(AssistantRequirement(rule, principal.ID), rule, relaxed)
			var valid []models.Participant
			for _, candidate := range Eligible(assistantReq, s.Roster, s.History, s.Tracker) {
				d := s.pairAllowed(rule, principal, candidate)
				if !d.Allowed {
					pairRejections[d.Reason]++
					continue
				}
				valid = append(valid, candidate)
			}
			if len(valid) == 0 {
				continue
			}

			assistant := Rank(valid, s.History)[0]
			_ = s.Tracker.Commit(principal.ID, part.ID)
			_ = s.Tracker.Commit(assistant.ID, part.ID)

			a := models.Assignment{
				PrincipalID: strPtr(principal.ID),
				AssistantID: strPtr(assistant.ID),
				Status:      models.StatusAssigned,
			}
			if relaxed {
				a.Notes = s.relaxedNote(rule)
			}
			return a, &Selection{PartID: part.ID, Reason: Explain(principal, s.History), Alternatives: len(principals)}
		}
	}

	if !sawPrincipal {
		return models.Assignment{Status: models.StatusPending, Notes: withReasons(NoteNoCandidate, rejected)}, nil
	}
	return models.Assignment{Status: models.StatusPending, Notes: withReasons(NoteNoPair, pairRejections)}, nil
}

// pairAllowed applies the pairing validator plus the same-gender rule of part
// types that do not accept family pairs
func (s *Scheduler) pairAllowed(rule models.PartRule, principal, assistant models.Participant) Decision {
	d := ValidatePair(principal, assistant, s.Family, s.Policy)
	if d.Allowed && !rule.FamilyPairing && principal.Gender != assistant.Gender {
		return deny("part requires a same-gender assistant")
	}
	return d
}

func (s *Scheduler) relaxedNote(rule models.PartRule) string {
	return fmt.Sprintf("%s: every eligible participant was assigned within the last %d weeks", NoteRecencyRelaxed, rule.CooldownWeeks)
}

// applyCounters bumps the fairness counters of an assigned part
func (s *Scheduler) applyCounters(a models.Assignment) {
	for _, id := range []*string{a.PrincipalID, a.AssistantID} {
		if id == nil {
			continue
		}
		c := s.History[*id]
		c.Count++
		if !s.Program.WeekStart.IsZero() {
			week := s.Program.WeekStart
			if c.LastAssigned == nil || week.After(*c.LastAssigned) {
				c.LastAssigned = &week
			}
		}
		s.History[*id] = c
	}
}

// withReasons appends a sorted tally of rejection reasons to a note
func withReasons(note string, reasons map[string]int) string {
	if len(reasons) == 0 {
		return note
	}
	keys := make([]string, 0, len(reasons))
	for k := range reasons {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%d %s", reasons[k], k))
	}
	return note + " (" + strings.Join(parts, ", ") + ")"
}

func joinNotes(notes ...string) string {
	var out []string
	for _, n := range notes {
		if n != "" {
			out = append(out, n)
		}
	}
	return strings.Join(out, "; ")
}

func strPtr(s string) *string { return &s }
