// Package models contains the entities persisted by the seeding pipeline.
package models

import "time"

// User is a synthetic person record. It is written to the relational store
// and, in its index encoding, to the search index.
type User struct {
	ID          string     `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Email       string     `db:"email" json:"email"`
	Phone       string     `db:"phone" json:"phone"`
	DateOfBirth Date       `db:"date_of_birth" json:"date_of_birth"`
	Age         string     `db:"age" json:"age"`
	Address     string     `db:"address" json:"address"`
	City        string     `db:"city" json:"city"`
	State       string     `db:"state" json:"state"`
	Direction   string     `db:"direction" json:"direction"`
	Country     string     `db:"country" json:"country"`
	PostalCode  string     `db:"postal_code" json:"postal_code"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at" json:"updated_at,omitempty"`
	DeletedAt   *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Deleted reports whether the record carries a deletion marker.
func (u User) Deleted() bool {
	return u.DeletedAt != nil
}

// ChangedAt is the time of the last update, or the creation time when the
// record was never updated.
func (u User) ChangedAt() time.Time {
	if u.UpdatedAt != nil {
		return *u.UpdatedAt
	}
	return u.CreatedAt
}
