package ui

import (
	"errors"

	"golang.org/x/time/rate"
)

// ErrRateLimited indicates a command is dropped for arriving too fast.
var ErrRateLimited = errors.New("command rate exceeded")

// LimitedSender is a Commander dropping commands exceeding a rate before
// they reach the peripheral.
type LimitedSender struct {
	Sender  Sender
	limiter *rate.Limiter
}

// NewLimitedSender creates a LimitedSender allowing perSecond commands with
// bursts of burst. A non-positive perSecond disables limiting.
func NewLimitedSender(sender Sender, perSecond float64, burst int) *LimitedSender {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &LimitedSender{Sender: sender, limiter: rate.NewLimiter(limit, burst)}
}

// Send implements Commander.
func (s *LimitedSender) Send(command, purpose string, time float64) error {
	if !s.limiter.Allow() {
		return ErrRateLimited
	}
	s.Sender.UpdateStream(command, purpose, time)
	return s.Sender.SendStream()
}
