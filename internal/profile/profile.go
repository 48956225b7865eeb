package profile

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no profile exists for the given id or email.
var ErrNotFound = errors.New("profile not found")

// ErrDuplicateEmail is returned by Create when the email is already taken.
var ErrDuplicateEmail = errors.New("email already registered")

// Profile is the stored user record. PasswordHash never leaves the package
// boundary except through dedicated auth checks.
type Profile struct {
	ID           string    `bson:"-"              json:"id,omitempty"`
	FullName     string    `bson:"full_name"      json:"full_name"`
	Email        string    `bson:"email"          json:"email"`
	Phone        string    `bson:"phone,omitempty" json:"phone,omitempty"`
	Skills       []string  `bson:"skills,omitempty" json:"skills,omitempty"`
	Education    []string  `bson:"education,omitempty" json:"education,omitempty"`
	Experience   []string  `bson:"experience,omitempty" json:"experience,omitempty"`
	Locations    []string  `bson:"locations,omitempty" json:"locations,omitempty"`
	VisaType     string    `bson:"visa_type,omitempty" json:"visa_type,omitempty"`
	Summary      string    `bson:"summary,omitempty" json:"summary,omitempty"`
	PasswordHash string    `bson:"password,omitempty" json:"-"`
	CreatedAt    time.Time `bson:"created_at,omitempty" json:"created_at,omitempty"`
}

// Store is the user-profile lookup collaborator. The orchestrator only reads;
// the HTTP facade also creates records during registration.
type Store interface {
	GetByID(ctx context.Context, id string) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	Create(ctx context.Context, p *Profile) (string, error)
}

// Redacted returns a copy safe to hand to prompts and API responses.
func (p *Profile) Redacted() *Profile {
	clean := *p
	clean.PasswordHash = ""
	return &clean
}
