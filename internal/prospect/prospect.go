// Package prospect holds the prospect record and its loading and validation.
package prospect

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidProspect matches every validation failure returned by Validate.
var ErrInvalidProspect = errors.New("invalid prospect")

// Prospect is one business to contact. It is passed by value and not
// modified during a generation run.
type Prospect struct {
	CompanyName string `json:"company_name"`
	Email       string `json:"email"`
	Industry    string `json:"industry,omitempty"`
	ContactName string `json:"contact_name,omitempty"`
	Location    string `json:"location,omitempty"`
	CompanySize string `json:"company_size,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// InvalidError reports which field failed validation.
type InvalidError struct {
	Field  string
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid prospect: %s %s", e.Field, e.Reason)
}

func (e *InvalidError) Is(target error) bool {
	return target == ErrInvalidProspect
}

// Validate checks the identity fields.
func (p Prospect) Validate() error {
	if strings.TrimSpace(p.CompanyName) == "" {
		return &InvalidError{Field: "company_name", Reason: "is empty"}
	}
	email := strings.TrimSpace(p.Email)
	if email == "" {
		return &InvalidError{Field: "email", Reason: "is empty"}
	}
	if !strings.Contains(email, "@") {
		return &InvalidError{Field: "email", Reason: "has no @"}
	}
	return nil
}

// Normalize trims surrounding whitespace from every field.
func (p Prospect) Normalize() Prospect {
	p.CompanyName = strings.TrimSpace(p.CompanyName)
	p.Email = strings.TrimSpace(p.Email)
	p.Industry = strings.TrimSpace(p.Industry)
	p.ContactName = strings.TrimSpace(p.ContactName)
	p.Location = strings.TrimSpace(p.Location)
	p.CompanySize = strings.TrimSpace(p.CompanySize)
	p.Notes = strings.TrimSpace(p.Notes)
	return p
}

// Key identifies a prospect for joining generation and send records.
func (p Prospect) Key() string {
	return strings.ToLower(strings.TrimSpace(p.CompanyName)) + "|" + strings.ToLower(strings.TrimSpace(p.Email))
}
