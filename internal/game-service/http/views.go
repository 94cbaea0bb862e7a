package httpapi

import (
	"github.com/radieske/gamble-game-poc/internal/game-service/dto"
	"github.com/radieske/gamble-game-poc/internal/game-service/engine"
	"github.com/radieske/gamble-game-poc/pkg/contracts/events"
)

func betView(b engine.Bet) dto.BetView {
	return dto.BetView{
		RequestID: b.RequestID,
		Bettor:    b.Bettor,
		Amount:    b.Amount,
		Payout:    b.Payout,
		Status:    string(b.Status),
		PlacedAt:  b.PlacedAt,
	}
}

func eventView(e events.GameEvent) dto.BetView {
	v := dto.BetView{
		RequestID: e.RequestID,
		Bettor:    e.Bettor,
		Amount:    e.Amount,
		Payout:    e.Payout,
		Outcome:   e.Outcome,
		UpdatedAt: e.Ts,
	}
	switch e.Type {
	case events.TypeBetSettled:
		v.Status = string(engine.StatusSettled)
	case events.TypeBetRefunded:
		v.Status = string(engine.StatusRefunded)
	default:
		v.Status = string(engine.StatusPending)
	}
	return v
}

// transitionView monta a visão a partir do histórico (primeira = aceite, última = estado atual)
func transitionView(trs []engine.Transition) dto.BetView {
	first, last := trs[0], trs[len(trs)-1]
	v := betView(last.Bet)
	v.Outcome = last.Outcome
	v.PlacedAt = first.At
	v.UpdatedAt = last.At
	if last.Bet.Status == engine.StatusSettled && last.Outcome != events.OutcomeWin {
		v.Payout = 0
	}
	return v
}
