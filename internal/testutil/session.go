package testutil

// FixedSessionGenerator returns the same session ID every time.
//
// Store rows written by a session carry its ID, so a fixed generator keeps
// database contents comparable across test runs.
type FixedSessionGenerator struct {
	id string
}

// NewFixedSessionGenerator creates a generator for the given ID.
// If id is empty, Generate() returns "test-session-default".
func NewFixedSessionGenerator(id string) *FixedSessionGenerator {
	if id == "" {
		id = "test-session-default"
	}
	return &FixedSessionGenerator{id: id}
}

// Generate returns the fixed session ID.
func (g *FixedSessionGenerator) Generate() string {
	return g.id
}
