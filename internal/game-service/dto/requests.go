package dto

// PlaceBetRequest: o valor sai da carteira do apostador (reserva) antes do aceite
type PlaceBetRequest struct {
	UserID string `json:"userId" validate:"required"`
	Amount uint64 `json:"amount"`
}

// TreasuryRequest serve para fund e withdraw; UserID é o chamador
type TreasuryRequest struct {
	UserID string `json:"userId" validate:"required"`
	Amount uint64 `json:"amount"`
}

// OperatorRequest identifica o chamador de operações sem payload (refund)
type OperatorRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// ConfigValueRequest atualiza um parâmetro do jogo
type ConfigValueRequest struct {
	UserID string  `json:"userId" validate:"required"`
	Value  *uint64 `json:"value" validate:"required"`
}
