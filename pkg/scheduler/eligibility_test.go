package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/assignment-engine-go/pkg/models"
)

func TestCheckEligibility(t *testing.T) {
	rule, _ := models.RuleFor(models.BibleReading)
	req := PrincipalRequirement(part("p1", 1, models.BibleReading), rule)

	inactive := person("a", models.Male, models.CapReading)
	inactive.Active = false

	tracker := NewTracker()
	require.NoError(t, tracker.Commit("busy", "other"))

	tests := []struct {
		name   string
		p      models.Participant
		allow  bool
		reason string
	}{
		{"eligible", person("ok", models.Male, models.CapReading), true, "eligible"},
		{"inactive", inactive, false, ReasonInactive},
		{"no capability", person("b", models.Male, models.CapTalk), false, ReasonCapability},
		{"wrong gender", person("c", models.Female, models.CapReading), false, ReasonGender},
		{"committed", person("busy", models.Male, models.CapReading), false, ReasonCommitted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := CheckEligibility(req, tt.p, nil, tracker)
			assert.Equal(t, tt.allow, d.Allowed)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestCheckEligibility_Privilege(t *testing.T) {
	rule, _ := models.RuleFor(models.CongregationStudy)
	req := PrincipalRequirement(part("p1", 1, models.CongregationStudy), rule)

	servant := withPrivilege(person("ms", models.Male, models.CapTalk), models.MinisterialServant)
	elder := withPrivilege(person("el", models.Male, models.CapTalk), models.Elder)

	assert.False(t, CheckEligibility(req, servant, nil, nil).Allowed)
	assert.True(t, CheckEligibility(req, elder, nil, nil).Allowed)
}

func TestCheckEligibility_PartGenderOverridesRule(t *testing.T) {
	rule, _ := models.RuleFor(models.StartingConversation)
	p := part("p1", 1, models.StartingConversation)
	p.RequiredGender = models.Female
	req := PrincipalRequirement(p, rule)

	assert.False(t, CheckEligibility(req, person("m", models.Male, models.CapStarting), nil, nil).Allowed)
	assert.True(t, CheckEligibility(req, person("f", models.Female, models.CapStarting), nil, nil).Allowed)
}

func TestCheckEligibility_Recency(t *testing.T) {
	rule, _ := models.RuleFor(models.BibleReading)
	req := PrincipalRequirement(part("p1", 1, models.BibleReading), rule).WithRecency(*daysBefore(28))

	history := models.History{
		"recent": {Count: 1, LastAssigned: daysBefore(7)},
		"old":    {Count: 1, LastAssigned: daysBefore(60)},
	}

	d := CheckEligibility(req, person("recent", models.Male, models.CapReading), history, nil)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonRecent, d.Reason)

	assert.True(t, CheckEligibility(req, person("old", models.Male, models.CapReading), history, nil).Allowed)
	assert.True(t, CheckEligibility(req, person("never", models.Male, models.CapReading), history, nil).Allowed)
}

func TestAssistantRequirement_Relaxation(t *testing.T) {
	rule, _ := models.RuleFor(models.MakingDisciples)
	req := AssistantRequirement(rule, "principal")

	helper := person("helper", models.Female, models.CapAssistant)
	qualified := person("q", models.Female, models.CapMaking)
	unrelated := person("u", models.Female, models.CapReading)

	got := Eligible(req, []models.Participant{helper, qualified, unrelated, person("principal", models.Female, models.CapMaking)}, nil, nil)
	require.Len(t, got, 2)
	assert.Equal(t, "helper", got[0].ID)
	assert.Equal(t, "q", got[1].ID)
}

func TestEligible_EmptyIsNotAnError(t *testing.T) {
	rule, _ := models.RuleFor(models.Talk)
	req := PrincipalRequirement(part("p1", 1, models.Talk), rule)

	got := Eligible(req, []models.Participant{person("f", models.Female, models.CapTalk)}, nil, NewTracker())
	assert.Empty(t, got)
}
