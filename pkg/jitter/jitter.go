// Package jitter считает задержки между повторами со случайной добавкой,
// чтобы повторы от разных горутин не совпадали по времени.
package jitter

import (
	"context"
	"math/rand/v2"
	"time"
)

// DefaultFactor — доля случайной добавки по умолчанию (до +50%).
const DefaultFactor = 0.5

// Backoff описывает экспоненциальную задержку: Base, 2*Base, 4*Base, ... не больше Max.
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64
}

// Delay возвращает задержку перед повтором номер attempt (с нуля).
// Результат лежит в диапазоне [d, d*(1+Factor)], где d = min(Base*2^attempt, Max).
func (b Backoff) Delay(attempt int) time.Duration {
	d := b.Base
	for i := 0; i < attempt; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			d = b.Max
			break
		}
	}
	return Duration(d, b.Factor)
}

// Duration добавляет к d случайную величину из [0, d*factor).
func Duration(d time.Duration, factor float64) time.Duration {
	if d <= 0 || factor <= 0 {
		return d
	}
	return d + time.Duration(rand.Float64()*factor*float64(d))
}

// Sleep ждёт d или отмены ctx. При отмене возвращает ctx.Err().
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
