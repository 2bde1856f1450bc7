package cascade

import (
	"context"
	"math"
	"time"

	"github.com/jonit-dev/night-watch-cli-sub005/core/log"
	"github.com/jonit-dev/night-watch-cli-sub005/models"
	"github.com/jonit-dev/night-watch-cli-sub005/services/threadstate"
)

const (
	DefaultMinDelay      = 3 * time.Second
	DefaultMaxDelay      = 20 * time.Second
	DefaultPollInterval  = 250 * time.Millisecond
	recentActivityWindow = 2 * time.Minute
	logNormalSigma       = 0.6
	activeChannelSpeedup = 0.5
)

type Config struct {
	MinDelay     time.Duration
	MaxDelay     time.Duration
	PollInterval time.Duration
}

// CascadeUseCase paces scripted replies so they read like a person typing, not a bot
type CascadeUseCase struct {
	state  *threadstate.ThreadStateManager
	config Config
}

func NewCascadeUseCase(state *threadstate.ThreadStateManager, config Config) *CascadeUseCase {
	if config.MinDelay <= 0 {
		config.MinDelay = DefaultMinDelay
	}
	if config.MaxDelay < config.MinDelay {
		config.MaxDelay = max(DefaultMaxDelay, config.MinDelay)
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	return &CascadeUseCase{state: state, config: config}
}

// ComputeDelay draws a log-normal response time centred on the geometric mean of the bounds,
// halved when the channel saw activity in the last two minutes, and clamped to the bounds.
func (u *CascadeUseCase) ComputeDelay(channelID string) time.Duration {
	minDelay, maxDelay := u.config.MinDelay, u.config.MaxDelay
	median := math.Sqrt(float64(minDelay) * float64(maxDelay))
	delay := time.Duration(median * math.Exp(logNormalSigma*u.state.NormFloat64()))

	if last, ok := u.state.LastChannelActivity(channelID).Get(); ok && u.state.Now().Sub(last) < recentActivityWindow {
		delay = time.Duration(float64(delay) * activeChannelSpeedup)
	}

	return min(max(delay, minDelay), maxDelay)
}

// ApplyHumanTiming waits before persona posts into the thread. It returns false, abandoning
// the wait early, when another persona replied in the meantime or ctx is done.
func (u *CascadeUseCase) ApplyHumanTiming(ctx context.Context, channelID, threadTS string, persona models.Persona) bool {
	delay := u.ComputeDelay(channelID)
	since := u.state.Now()
	log.Debug("📋 Waiting %s before %s replies in %s/%s", delay, persona.ID, channelID, threadTS)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	ticker := time.NewTicker(u.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return !u.state.PersonaRepliedSince(channelID, threadTS, since, persona.ID)
		case <-ticker.C:
			if u.state.PersonaRepliedSince(channelID, threadTS, since, persona.ID) {
				log.Debug("📋 Another persona replied in %s/%s, %s stands down", channelID, threadTS, persona.ID)
				return false
			}
		}
	}
}
