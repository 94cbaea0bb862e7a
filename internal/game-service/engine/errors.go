package engine

import "errors"

var (
	ErrPermissionDenied     = errors.New("permission denied")
	ErrBetTooSmall          = errors.New("bet amount too small")
	ErrBetTooLarge          = errors.New("bet amount too large")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrSettlementInProgress = errors.New("cannot withdraw while bets are being settled")
	ErrUnknownRequest       = errors.New("unknown randomness request")
	ErrTransferTooLarge     = errors.New("amount exceeds transfer limit")

	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidBettor      = errors.New("bettor required")
	ErrInvalidHouseEdge   = errors.New("house edge must be between 0 and 10000 basis points")
	ErrInvalidRandomness  = errors.New("random value must be a non-negative integer")
	ErrBalanceOverflow    = errors.New("balance overflow")
	ErrInvariantViolation = errors.New("ledger invariant violated")
)
