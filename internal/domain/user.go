package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type User struct {
	ID           string    `bson:"_id" json:"id"`
	Name         string    `bson:"name" json:"name"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	Roles        []string  `bson:"roles" json:"roles"`
	Addresses    []Address `bson:"addresses,omitempty" json:"addresses,omitempty"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updatedAt"`
}

type Address struct {
	Line1      string `bson:"line1" json:"line1"`
	Line2      string `bson:"line2,omitempty" json:"line2,omitempty"`
	City       string `bson:"city" json:"city"`
	State      string `bson:"state,omitempty" json:"state,omitempty"`
	PostalCode string `bson:"postal_code,omitempty" json:"postalCode,omitempty"`
	Country    string `bson:"country" json:"country"`
	IsDefault  bool   `bson:"is_default" json:"isDefault"`
}

func (u *User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// DefaultAddress returns the address flagged default, or nil.
func (u *User) DefaultAddress() *Address {
	for i := range u.Addresses {
		if u.Addresses[i].IsDefault {
			return &u.Addresses[i]
		}
	}
	return nil
}

// ValidateAddresses requires line1, city and country on every address and
// allows at most one default.
func ValidateAddresses(addrs []Address) error {
	defaults := 0
	for i, a := range addrs {
		if strings.TrimSpace(a.Line1) == "" || strings.TrimSpace(a.City) == "" || strings.TrimSpace(a.Country) == "" {
			return fmt.Errorf("%w: address %d needs line1, city and country", ErrInvalidAddress, i+1)
		}
		if a.IsDefault {
			defaults++
		}
	}
	if defaults > 1 {
		return fmt.Errorf("%w: only one address can be the default", ErrInvalidAddress)
	}
	return nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
