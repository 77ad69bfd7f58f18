package model

import (
	"strings"
	"time"
)

// XPPerLevel is the experience needed to advance one level.
const XPPerLevel = 1000

type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// ParsePlan accepts "free" or "premium" in any case.
func ParsePlan(raw string) (Plan, bool) {
	switch Plan(strings.ToLower(strings.TrimSpace(raw))) {
	case PlanFree:
		return PlanFree, true
	case PlanPremium:
		return PlanPremium, true
	}
	return "", false
}

// Profile stores a user's plan and progression.
type Profile struct {
	UID        string     `json:"uid" firestore:"uid"`
	Name       string     `json:"name,omitempty" firestore:"name,omitempty"`
	PhotoURL   string     `json:"photoUrl,omitempty" firestore:"photoUrl,omitempty"`
	Plan       Plan       `json:"plan" firestore:"plan"`
	XP         int        `json:"xp" firestore:"xp"`
	Level      int        `json:"level" firestore:"level"`
	Streak     int        `json:"streak" firestore:"streak"`
	LastActive *time.Time `json:"lastActive" firestore:"lastActive"`
}

// NewProfile returns the defaults a profile is lazily created with.
func NewProfile(uid string) Profile {
	return Profile{
		UID:   uid,
		Plan:  PlanFree,
		Level: Level(0),
	}
}

func (p Profile) IsPremium() bool {
	return p.Plan == PlanPremium
}

// Level derives the level from total xp.
func Level(xp int) int {
	if xp < 0 {
		return 1
	}
	return xp/XPPerLevel + 1
}

// ProfilePatch merges display fields. Nil fields are left untouched.
type ProfilePatch struct {
	Name     *string
	PhotoURL *string
}

func (p ProfilePatch) Apply(profile *Profile) {
	if p.Name != nil {
		profile.Name = strings.TrimSpace(*p.Name)
	}
	if p.PhotoURL != nil {
		profile.PhotoURL = strings.TrimSpace(*p.PhotoURL)
	}
}
