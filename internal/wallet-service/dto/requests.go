package dto

type DepositRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amount_cents"`
	ExternalRef string `json:"external_ref,omitempty"` // repetir a mesma ref não credita de novo
}

type ReserveRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amount_cents"`
	ExternalRef string `json:"external_ref"` // ex: bet:<uuid>
}

// ReservationRef identifica uma reserva em commit/refund
type ReservationRef struct {
	UserID      string `json:"userId"`
	ExternalRef string `json:"external_ref"`
}
