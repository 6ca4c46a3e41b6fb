package types

import "time"

// Entity carries record timestamps. recur takes time from an injected
// clock, so constructors accept the instant instead of reading time.Now.
type Entity struct {
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// NewEntity creates an Entity stamped at now.
func NewEntity(now time.Time) Entity {
	now = now.UTC()
	return Entity{
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch sets UpdatedAt to now.
func (e *Entity) Touch(now time.Time) {
	e.UpdatedAt = now.UTC()
}

// Exists reports whether the entity was ever stamped. A zero CreatedAt is
// the "never created" sentinel.
func (e Entity) Exists() bool {
	return !e.CreatedAt.IsZero()
}

// Age returns how long before now the entity was created.
func (e Entity) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}
