// Package phases defines the fixed six-phase dialogue script.
package phases

import "fmt"

// Phase is one stage of the facilitation script. ID is the 1-based
// position used throughout the orchestrator.
type Phase struct {
	ID    int
	Title string
	Goal  string

	// openingPrompt renders the question the Guide asks when the
	// phase opens, parameterized by the session topic.
	openingPrompt func(topic string) string
}

// OpeningPrompt returns the Guide's opening question for this phase.
func (p Phase) OpeningPrompt(topic string) string {
	return p.openingPrompt(topic)
}

// Count is the number of phases in the script.
const Count = 6

var catalog = [Count]Phase{
	{
		ID:    1,
		Title: "Arrival",
		Goal:  "Welcome both participants and establish a respectful starting point.",
		openingPrompt: func(topic string) string {
			return fmt.Sprintf("Welcome, both of you. Today you'll be talking about %s. To start, please each share what drew you to this conversation.", topic)
		},
	},
	{
		ID:    2,
		Title: "Lived Experience",
		Goal:  "Surface the personal experiences that shaped each participant's relationship to the topic.",
		openingPrompt: func(topic string) string {
			return fmt.Sprintf("Tell each other about a moment in your own life that shaped how you feel about %s.", topic)
		},
	},
	{
		ID:    3,
		Title: "Values Behind Views",
		Goal:  "Move from positions to the underlying values each participant is protecting.",
		openingPrompt: func(topic string) string {
			return fmt.Sprintf("When you think about %s, what value or concern sits underneath your view? Try to name it for your partner.", topic)
		},
	},
	{
		ID:    4,
		Title: "Points of Friction",
		Goal:  "Name the real disagreement without trying to resolve it.",
		openingPrompt: func(topic string) string {
			return fmt.Sprintf("Where do you think the two of you genuinely differ on %s? Describe the difference as fairly as you can.", topic)
		},
	},
	{
		ID:    5,
		Title: "Common Ground",
		Goal:  "Identify anything shared, however small, between the two perspectives.",
		openingPrompt: func(topic string) string {
			return fmt.Sprintf("Is there anything about %s that you both hold, even something small? Tell each other what you heard in common.", topic)
		},
	},
	{
		ID:    6,
		Title: "Reflection",
		Goal:  "Close by reflecting on what each participant heard and what they take away.",
		openingPrompt: func(topic string) string {
			return fmt.Sprintf("Before we finish, share one thing your partner said about %s that stayed with you.", topic)
		},
	},
}

// Get returns the phase with the given 1-based id.
func Get(id int) (Phase, error) {
	if id < 1 || id > Count {
		return Phase{}, fmt.Errorf("phase %d out of range 1..%d", id, Count)
	}
	return catalog[id-1], nil
}

// All returns the full ordered catalog.
func All() []Phase {
	out := make([]Phase, Count)
	copy(out, catalog[:])
	return out
}

// First returns the opening phase of the script.
func First() Phase {
	return catalog[0]
}

// IsLast reports whether id is the final phase of the script.
func IsLast(id int) bool {
	return id == Count
}
