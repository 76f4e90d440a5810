package scheduler

// AgentState holds the agent's disposition flags. Self-defense is not
// stored here: it is Token.Armed.
//
// Precedence when deciding what the agent does next:
// self-defense > stay > follow > queued tasks.
type AgentState struct {
	Staying   bool   // Stay requested; submissions are rejected and Advance is a no-op
	Following string // Player being followed, "" when none
	Guarding  string // Player being protected, "" when none
	Eating    bool   // Sustain monitor is mid-meal
}
