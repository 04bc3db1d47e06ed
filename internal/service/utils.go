package service

import (
	"math/rand/v2"
	"time"
)

// backoff возвращает паузу перед повтором attempt (с 1): base*2^(attempt-1), разбросанную на ±spread.
// spread вне [0, 1) заменяется на 0.15.
func backoff(base time.Duration, attempt int, spread float64) time.Duration {
	if spread < 0 || spread >= 1 {
		spread = 0.15
	}
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(base) * float64(uint64(1)<<min(attempt-1, 10))
	factor := 1 - spread + rand.Float64()*2*spread // nolint:gosec
	return time.Duration(delay * factor)
}
