// Package search defines the index representation of users, the index
// settings model and the configurator that applies settings to a backend.
package search

import (
	"strconv"
	"time"

	"github.com/dmitrijs2005/fastsearch/internal/server/models"
)

// ZeroTimestamp is the Unix-seconds encoding of the zero time.Time. It marks
// absent update and deletion timestamps in the index.
const ZeroTimestamp int64 = -62135596800

// PrimaryKey is the document identity attribute.
const PrimaryKey = "id"

// Document is a user as stored in the search index.
type Document struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"date_of_birth"`
	Age         string `json:"age"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	Direction   string `json:"direction"`
	Country     string `json:"country"`
	PostalCode  string `json:"postal_code"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
	DeletedAt   int64  `json:"deleted_at"`

	// Formatted holds highlighted variants of matched attributes on hits.
	Formatted map[string]any `json:"_formatted,omitempty"`
}

// FromUser encodes a user for the index.
func FromUser(u models.User) Document {
	return Document{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Phone:       u.Phone,
		DateOfBirth: encodeDate(u.DateOfBirth),
		Age:         u.Age,
		Address:     u.Address,
		City:        u.City,
		State:       u.State,
		Direction:   u.Direction,
		Country:     u.Country,
		PostalCode:  u.PostalCode,
		CreatedAt:   u.CreatedAt.Unix(),
		UpdatedAt:   encodeMarker(u.UpdatedAt),
		DeletedAt:   encodeMarker(u.DeletedAt),
	}
}

func FromUsers(us []models.User) []Document {
	docs := make([]Document, len(us))
	for i, u := range us {
		docs[i] = FromUser(u)
	}
	return docs
}

// ToUser decodes an index document. Timestamps come back with second
// precision in UTC.
func ToUser(d Document) (models.User, error) {
	var dob models.Date
	if d.DateOfBirth != "" {
		parsed, err := models.ParseDate(d.DateOfBirth)
		if err != nil {
			return models.User{}, err
		}
		dob = parsed
	}

	return models.User{
		ID:          d.ID,
		Name:        d.Name,
		Email:       d.Email,
		Phone:       d.Phone,
		DateOfBirth: dob,
		Age:         d.Age,
		Address:     d.Address,
		City:        d.City,
		State:       d.State,
		Direction:   d.Direction,
		Country:     d.Country,
		PostalCode:  d.PostalCode,
		CreatedAt:   time.Unix(d.CreatedAt, 0).UTC(),
		UpdatedAt:   decodeMarker(d.UpdatedAt),
		DeletedAt:   decodeMarker(d.DeletedAt),
	}, nil
}

// encodeDate leaves a missing birth date empty, matching the NULL the
// relational store keeps for it.
func encodeDate(d models.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func encodeMarker(t *time.Time) int64 {
	if t == nil {
		return ZeroTimestamp
	}
	return t.Unix()
}

func decodeMarker(v int64) *time.Time {
	if v == ZeroTimestamp {
		return nil
	}
	t := time.Unix(v, 0).UTC()
	return &t
}

// Live reports whether the document has no deletion marker.
func (d Document) Live() bool {
	return d.DeletedAt == ZeroTimestamp
}

// Field returns the attribute value in its filter/search string form and
// whether the attribute exists.
func (d Document) Field(name string) (string, bool) {
	switch name {
	case "id":
		return d.ID, true
	case "name":
		return d.Name, true
	case "email":
		return d.Email, true
	case "phone":
		return d.Phone, true
	case "date_of_birth":
		return d.DateOfBirth, true
	case "age":
		return d.Age, true
	case "address":
		return d.Address, true
	case "city":
		return d.City, true
	case "state":
		return d.State, true
	case "direction":
		return d.Direction, true
	case "country":
		return d.Country, true
	case "postal_code":
		return d.PostalCode, true
	case "created_at":
		return strconv.FormatInt(d.CreatedAt, 10), true
	case "updated_at":
		return strconv.FormatInt(d.UpdatedAt, 10), true
	case "deleted_at":
		return strconv.FormatInt(d.DeletedAt, 10), true
	}
	return "", false
}
