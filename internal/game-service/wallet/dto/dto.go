package dto

// Payloads do wallet-service usados pelo game-service

type ReserveRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amount_cents"`
	ExternalRef string `json:"external_ref"`
}

type ReserveResponse struct {
	ReservationID string `json:"reservation_id"`
	Status        string `json:"status"`
}

type ReservationRef struct {
	UserID      string `json:"userId"`
	ExternalRef string `json:"external_ref"`
}

type DepositRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amount_cents"`
	ExternalRef string `json:"external_ref"`
}

type WalletResponse struct {
	UserID       string `json:"userId"`
	WalletID     string `json:"walletId"`
	BalanceCents int64  `json:"balance_cents"`
}
