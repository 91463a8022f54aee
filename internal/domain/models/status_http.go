package models

// Requests and rows for the operator status endpoints. Defined in domain
// for consistency and reuse.

type HistoryRequest struct {
	Limit int `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=100"`
}

// SessionReport is one slot's row in the sessions endpoint.
type SessionReport struct {
	ConnID int `json:"conn_id"`
	ConnStats
}
