package types

// Entity is the base type for persisted subsplit records.
// Timestamps come from the caller's clock, never from the wall clock.
type Entity struct {
	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`
}

// NewEntity creates an Entity stamped at now.
func NewEntity(now Timestamp) Entity {
	return Entity{
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch moves UpdatedAt forward to now. Earlier timestamps are ignored so a
// record's UpdatedAt never goes backwards.
func (e *Entity) Touch(now Timestamp) {
	if now > e.UpdatedAt {
		e.UpdatedAt = now
	}
}
