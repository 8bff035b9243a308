package dto

import "time"

// InstitutionRequest payload for create/update.
type InstitutionRequest struct {
	Name            string  `json:"name"`
	Address         string  `json:"address"`
	City            string  `json:"city"`
	Phone           string  `json:"phone"`
	Email           string  `json:"email"`
	ContractManager string  `json:"contract_manager"`
	ClientCode      string  `json:"client_code"`
	TechnicianID    *string `json:"technician_id"`
}

// InstitutionResponse wire shape.
type InstitutionResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Address         string    `json:"address"`
	City            string    `json:"city"`
	Phone           string    `json:"phone"`
	Email           string    `json:"email"`
	ContractManager string    `json:"contract_manager"`
	ClientCode      string    `json:"client_code"`
	TechnicianID    *string   `json:"technician_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// EquipmentRequest payload for create/update.
type EquipmentRequest struct {
	InstitutionID    string  `json:"institution_id"`
	Brand            string  `json:"brand"`
	Model            string  `json:"model"`
	Serial           string  `json:"serial"`
	IPAddress        *string `json:"ip_address"`
	PhysicalLocation string  `json:"physical_location"`
	LocationDetails  *string `json:"location_details"`
}

// EquipmentResponse wire shape.
type EquipmentResponse struct {
	ID               string    `json:"id"`
	InstitutionID    string    `json:"institution_id"`
	Brand            string    `json:"brand"`
	Model            string    `json:"model"`
	Serial           string    `json:"serial"`
	IPAddress        *string   `json:"ip_address,omitempty"`
	PhysicalLocation string    `json:"physical_location"`
	LocationDetails  *string   `json:"location_details,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
