package scheduler

import "github.com/arnavshah/assignment-engine-go/pkg/models"

// PairingPolicy holds the configurable part of cross-gender pairing.
type PairingPolicy struct {
	// AllowSiblings lets cross-gender siblings work together.
	AllowSiblings bool
}

type pairKey struct{ a, b string }

func newPairKey(a, b string) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{a, b}
}

// FamilyIndex answers "how are these two participants related" in O(1)
type FamilyIndex struct {
	links map[pairKey][]models.RelationKind
}

// NewFamilyIndex indexes the relationships. Pairs are unordered.
func NewFamilyIndex(rels []models.FamilyRelationship) *FamilyIndex {
	idx := &FamilyIndex{links: make(map[pairKey][]models.RelationKind, len(rels))}
	for _, r := range rels {
		if r.A == "" || r.B == "" || r.A == r.B {
			continue
		}
		k := newPairKey(r.A, r.B)
		idx.links[k] = append(idx.links[k], r.Kind)
	}
	return idx
}

// Kinds returns every relation kind recorded between a and b
func (f *FamilyIndex) Kinds(a, b string) []models.RelationKind {
	if f == nil {
		return nil
	}
	return f.links[newPairKey(a, b)]
}

// ValidatePair decides whether principal and assistant may share a two-person
// part. Same gender is always allowed. Cross gender requires a spouse link, a
// parent_child link where one of the two is a minor registered under the
// other as guardian, or a sibling link when the policy allows it.
func ValidatePair(principal, assistant models.Participant, family *FamilyIndex, policy PairingPolicy) Decision {
	if principal.ID == assistant.ID {
		return deny("principal and assistant are the same participant")
	}
	if !principal.Gender.Valid() || !assistant.Gender.Valid() {
		return deny("unknown gender")
	}
	if principal.Gender == assistant.Gender {
		return allow("same gender")
	}

	for _, kind := range family.Kinds(principal.ID, assistant.ID) {
		switch kind {
		case models.Spouse:
			return allow("spouses")
		case models.ParentChild:
			if guardedBy(principal, assistant) || guardedBy(assistant, principal) {
				return allow("minor with registered guardian")
			}
		case models.Sibling:
			if policy.AllowSiblings {
				return allow("siblings")
			}
		}
	}
	return deny("cross-gender pair without qualifying family relationship")
}

// guardedBy reports whether child is a minor whose registered guardian is parent
func guardedBy(child, parent models.Participant) bool {
	return child.Minor && child.GuardianID != "" && child.GuardianID == parent.ID
}
