package events

// Pedido de aleatoriedade publicado pelo game-service.
// O oráculo responde no máximo uma vez por RequestID, ou nunca.
type RandomnessRequested struct {
	RequestID string `json:"request_id"`
	NumWords  int    `json:"num_words"`
	TsUnixMs  int64  `json:"ts_unix_ms"`
}

// Resposta do oráculo. RandomValue é um inteiro sem sinal em base 10
// (até 256 bits), por isso trafega como string.
type RandomnessFulfilled struct {
	RequestID   string `json:"request_id"`
	RandomValue string `json:"random_value"`
	TsUnixMs    int64  `json:"ts_unix_ms"`
}
