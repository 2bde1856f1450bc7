package models

import "strings"

// Persona is a configured AI agent identity used to author chat replies
type Persona struct {
	ID        string
	Name      string
	Role      string
	Expertise []string
	AvatarURL string
	IsActive  bool
}

// FirstName returns the first word of the persona name
func (p Persona) FirstName() string {
	name, _, _ := strings.Cut(strings.TrimSpace(p.Name), " ")
	return name
}

// IsLead reports whether the persona's role marks it as the discussion lead
func (p Persona) IsLead() bool {
	return strings.Contains(strings.ToLower(p.Role), "lead")
}

// ActivePersonas filters out inactive personas, preserving order
func ActivePersonas(personas []Persona) []Persona {
	active := make([]Persona, 0, len(personas))
	for _, p := range personas {
		if p.IsActive {
			active = append(active, p)
		}
	}
	return active
}
