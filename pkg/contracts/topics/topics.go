package topics

const (
	// Oráculo de aleatoriedade
	RandomnessRequested = "randomness_requested"
	RandomnessFulfilled = "randomness_fulfilled"

	// Eventos do jogo (aceite, liquidação, estorno, tesouraria)
	GameEvents = "game_events"

	// DLQs
	RandomnessFulfilledDLQ = "randomness_fulfilled_dlq"
)
