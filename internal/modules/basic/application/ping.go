package application

import (
	"time"

	"github.com/kasseta-bot/kasseta/internal/modules/basic/domain"
)

// PingInteractor handles the ping use case.
type PingInteractor struct{}

// NewPingInteractor creates a new PingInteractor.
func NewPingInteractor() *PingInteractor {
	return &PingInteractor{}
}

// Execute performs the ping operation and returns the result.
func (p *PingInteractor) Execute(latency time.Duration) *domain.PingResult {
	return domain.NewPingResult(latency)
}
