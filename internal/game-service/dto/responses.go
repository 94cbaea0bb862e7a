package dto

import "time"

type ErrorResponse struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
}

type PlaceBetResponse struct {
	RequestID string `json:"requestId"`
	Status    string `json:"status"` // PENDING
	Amount    uint64 `json:"amount"`
}

type BetView struct {
	RequestID string    `json:"requestId"`
	Bettor    string    `json:"bettor"`
	Amount    uint64    `json:"amount"`
	Payout    uint64    `json:"payout"`
	Status    string    `json:"status"`            // PENDING | SETTLED | REFUNDED
	Outcome   string    `json:"outcome,omitempty"` // WIN | LOSE
	PlacedAt  time.Time `json:"placedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type BetListResponse struct {
	Bets  []BetView `json:"bets"`
	Count int       `json:"count"`
}

type BalanceResponse struct {
	Balance uint64 `json:"balance"`
	Pending int    `json:"pending"`
}

type ConfigResponse struct {
	Owner        string `json:"owner"`
	MinimumBet   uint64 `json:"minimumBet"`
	HouseEdgeBps uint64 `json:"houseEdgeBps"`
}
