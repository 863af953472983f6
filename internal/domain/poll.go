package domain

import "time"

// Poll belongs to one Drop. At most one poll per drop is active.
// Corresponds to polls table in PostgreSQL.
type Poll struct {
	ID        string   // PRIMARY KEY, uuid
	DropID    string   // FK to drops
	Question  string
	Options   []string // ordered option labels, index is the vote value
	Active    bool
	CreatedAt time.Time
	ClosedAt  *time.Time
}

// HasOption reports whether idx addresses one of the poll options.
func (p *Poll) HasOption(idx int) bool {
	return idx >= 0 && idx < len(p.Options)
}
