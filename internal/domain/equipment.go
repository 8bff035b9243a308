package domain

import "time"

// Equipment is a printer/copier unit installed at an institution.
// Serial is unique across the fleet.
type Equipment struct {
	ID               string
	InstitutionID    string
	Brand            string
	Model            string
	Serial           string
	IPAddress        *string
	PhysicalLocation string
	LocationDetails  *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Descriptor renders the short human label used in report rows.
func (e *Equipment) Descriptor() string {
	return e.Brand + " " + e.Model + " (" + e.Serial + ")"
}
