package domain

import "time"

// Institution is a client organization whose equipment is under contract.
type Institution struct {
	ID              string
	Name            string
	Address         string
	City            string
	Phone           string
	Email           string
	ContractManager string
	ClientCode      string
	TechnicianID    *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
