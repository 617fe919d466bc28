package models

// Operator is the authenticated actor of a request.
// Identity comes from the login collaborator and is treated as opaque.
type Operator struct {
	ID          string `json:"operatorId"`
	DisplayName string `json:"displayName"`
}
