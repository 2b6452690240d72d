// ABOUTME: Audit timestamps and soft-delete bookkeeping shared by all entities
// ABOUTME: Records are never physically removed; deletion is a flag plus timestamp
package models

import "time"

// Timestamps tracks creation and last successful save.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stamp sets CreatedAt on first save and advances UpdatedAt. UpdatedAt never
// moves backwards, even if the clock does.
func (t *Timestamps) Stamp(now time.Time) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if now.Before(t.UpdatedAt) {
		return
	}
	t.UpdatedAt = now
}

// SoftDelete is the logical-deletion flag pair.
type SoftDelete struct {
	IsDeleted bool       `json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// MarkDeleted flags the record deleted. The first deletion time is kept on
// repeated calls.
func (s *SoftDelete) MarkDeleted(now time.Time) {
	if s.IsDeleted && s.DeletedAt != nil {
		return
	}
	s.IsDeleted = true
	s.DeletedAt = &now
}

// deletionTime clamps now so that DeletedAt is never before CreatedAt.
func deletionTime(now, createdAt time.Time) time.Time {
	if now.Before(createdAt) {
		return createdAt
	}
	return now
}

// MarkDeleted soft-deletes the party.
func (p *Party) MarkDeleted(now time.Time) {
	p.SoftDelete.MarkDeleted(deletionTime(now, p.CreatedAt))
	p.Stamp(now)
}

// MarkDeleted soft-deletes the contract. The lifecycle engine does not run on
// deletion.
func (c *Contract) MarkDeleted(now time.Time) {
	c.SoftDelete.MarkDeleted(deletionTime(now, c.CreatedAt))
	c.Stamp(now)
}
