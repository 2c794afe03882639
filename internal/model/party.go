package model

import "time"

// Tenant is a registered renter the assistant may reply to.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Unit      string    `json:"unit,omitempty"`
	AutoReply bool      `json:"auto_reply"`
	CreatedAt time.Time `json:"created_at"`
}

// Contractor is a registered service provider whose messages are relayed
// to the landlord verbatim.
type Contractor struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Trade     string    `json:"trade,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RegisterTenantRequest is the request body for tenant registration.
type RegisterTenantRequest struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Unit      string `json:"unit,omitempty"`
	AutoReply bool   `json:"auto_reply"`
}

// RegisterContractorRequest is the request body for contractor registration.
type RegisterContractorRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Trade string `json:"trade,omitempty"`
}
