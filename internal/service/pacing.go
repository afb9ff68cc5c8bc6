// internal/service/pacing.go
package service

import (
    "math/rand"
    "time"
)

// Pacer decides how long the drainer waits around each send. The delays are
// an anti-throttling measure: the typing delay imitates a human composing a
// message, the inter-message delay keeps overall throughput below what the
// provider flags as automated.
type Pacer interface {
    TypingDelay() time.Duration
    MessageDelay() time.Duration
}

// HumanPacer draws a typing delay in 1.5–4.0s and an inter-message delay
// in 3.0–8.0s.
type HumanPacer struct {
    rnd *rand.Rand
}

func NewHumanPacer() *HumanPacer {
    return &HumanPacer{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (p *HumanPacer) TypingDelay() time.Duration {
    return p.between(1500, 4000)
}

func (p *HumanPacer) MessageDelay() time.Duration {
    return p.between(3000, 8000)
}

func (p *HumanPacer) between(minMs, maxMs int) time.Duration {
    return time.Duration(minMs+p.rnd.Intn(maxMs-minMs)) * time.Millisecond
}
