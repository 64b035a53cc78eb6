package models

// PartType identifies the kind of agenda item
type PartType string

const (
	OpeningComments       PartType = "opening_comments"
	TreasuresTalk         PartType = "treasures_talk"
	SpiritualGems         PartType = "spiritual_gems"
	BibleReading          PartType = "bible_reading"
	StartingConversation  PartType = "starting_conversation"
	FollowingUp           PartType = "following_up"
	MakingDisciples       PartType = "making_disciples"
	ExplainingBeliefsDemo PartType = "explaining_beliefs_demo"
	ExplainingBeliefsTalk PartType = "explaining_beliefs_talk"
	Talk                  PartType = "talk"
	CongregationStudy     PartType = "congregation_study"
)

// PartRule holds the assignment rules of a part type
type PartRule struct {
	Capability Capability
	Gender     Gender
	// Privileges restricts principals to these privileges when not empty.
	Privileges     []Privilege
	NeedsAssistant bool
	// FamilyPairing allows a cross-gender assistant from the principal's family.
	FamilyPairing bool
	CooldownWeeks int
}

// AssistantCapabilities returns the capability tags that qualify an assistant
func (r PartRule) AssistantCapabilities() []Capability {
	return []Capability{r.Capability, CapAssistant}
}

// AllowsPrivilege reports whether p may take the part as principal
func (r PartRule) AllowsPrivilege(p Privilege) bool {
	if len(r.Privileges) == 0 {
		return true
	}
	for _, allowed := range r.Privileges {
		if allowed == p {
			return true
		}
	}
	return false
}

var appointedMen = []Privilege{Elder, MinisterialServant}

var partRules = map[PartType]PartRule{
	OpeningComments:       {Capability: CapChairman, Gender: Male, Privileges: appointedMen, CooldownWeeks: 4},
	TreasuresTalk:         {Capability: CapTreasures, Gender: Male, Privileges: appointedMen, CooldownWeeks: 6},
	SpiritualGems:         {Capability: CapGems, Gender: Male, Privileges: appointedMen, CooldownWeeks: 6},
	BibleReading:          {Capability: CapReading, Gender: Male, CooldownWeeks: 4},
	StartingConversation:  {Capability: CapStarting, NeedsAssistant: true, FamilyPairing: true, CooldownWeeks: 2},
	FollowingUp:           {Capability: CapFollowing, NeedsAssistant: true, CooldownWeeks: 3},
	MakingDisciples:       {Capability: CapMaking, NeedsAssistant: true, CooldownWeeks: 4},
	ExplainingBeliefsDemo: {Capability: CapExplaining, NeedsAssistant: true, FamilyPairing: true, CooldownWeeks: 4},
	ExplainingBeliefsTalk: {Capability: CapExplaining, Gender: Male, CooldownWeeks: 6},
	Talk:                  {Capability: CapTalk, Gender: Male, CooldownWeeks: 6},
	CongregationStudy:     {Capability: CapTalk, Gender: Male, Privileges: []Privilege{Elder}, CooldownWeeks: 8},
}

// RuleFor returns the rule of a part type and whether the type is known
func RuleFor(t PartType) (PartRule, bool) {
	r, ok := partRules[t]
	return r, ok
}
