// Package parties holds the customer/supplier master referenced by bills
// and vouchers as the counter-account of double-entry postings.
package parties

import (
	"errors"
	"time"
)

// Party is a customer or supplier belonging to exactly one firm.
type Party struct {
	ID        int64     `json:"id"`
	FirmID    int64     `json:"firmId"`
	Name      string    `json:"name"`
	GSTIN     string    `json:"gstin,omitempty"`
	State     string    `json:"state,omitempty"`
	StateCode string    `json:"stateCode,omitempty"`
	Address   string    `json:"addr,omitempty"`
	PIN       string    `json:"pin,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateInput groups fields for creating a party.
type CreateInput struct {
	FirmID    int64
	Name      string
	GSTIN     string
	State     string
	StateCode string
	Address   string
	PIN       string
	Phone     string
}

// ErrPartyNotFound indicates the party does not exist.
var ErrPartyNotFound = errors.New("parties: party not found")

// Validate checks minimum create criteria.
func (in CreateInput) Validate() error {
	if in.FirmID == 0 {
		return errors.New("parties: firm required")
	}
	if in.Name == "" {
		return errors.New("parties: name required")
	}
	return nil
}
