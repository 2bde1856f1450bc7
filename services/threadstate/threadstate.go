// Package threadstate holds the process-local conversational state shared by the router,
// the deliberation engine and the cascading reply handler. Nothing here survives a restart.
package threadstate

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/samber/mo"

	"github.com/jonit-dev/night-watch-cli-sub005/models"
)

const (
	DefaultReviewCooldown = 30 * time.Minute
	DefaultInboundTTL     = 10 * time.Minute
	maxRecentMessages     = 8
)

type Config struct {
	ReviewCooldown time.Duration
	// InboundTTL is how long a seen inbound key is remembered for dedup
	InboundTTL time.Duration
	Now        func() time.Time
	Rand       *rand.Rand
}

type threadState struct {
	lastRepliedPersonaID string
	lastRepliedAt        time.Time
	adHocOwnerPersonaID  string
	recent               []string
}

// ThreadStateManager is the single mutable state object of the orchestrator.
// Every method is one critical section, so check-and-set operations are atomic.
type ThreadStateManager struct {
	mu sync.Mutex

	now            func() time.Time
	rng            *rand.Rand
	reviewCooldown time.Duration
	inboundTTL     time.Duration

	channelActivity map[string]time.Time
	threads         map[string]*threadState
	reviewedAt      map[string]time.Time
	seenInbound     map[string]time.Time
	lastPrune       time.Time
}

func NewThreadStateManager(cfg Config) *ThreadStateManager {
	if cfg.ReviewCooldown <= 0 {
		cfg.ReviewCooldown = DefaultReviewCooldown
	}
	if cfg.InboundTTL <= 0 {
		cfg.InboundTTL = DefaultInboundTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return &ThreadStateManager{
		now:             cfg.Now,
		rng:             cfg.Rand,
		reviewCooldown:  cfg.ReviewCooldown,
		inboundTTL:      cfg.InboundTTL,
		channelActivity: make(map[string]time.Time),
		threads:         make(map[string]*threadState),
		reviewedAt:      make(map[string]time.Time),
		seenInbound:     make(map[string]time.Time),
	}
}

func threadKey(channelID, threadTS string) string {
	return channelID + ":" + threadTS
}

// thread returns the state for a thread, creating it on first reference. Caller holds mu.
func (m *ThreadStateManager) thread(channelID, threadTS string) *threadState {
	key := threadKey(channelID, threadTS)
	state, ok := m.threads[key]
	if !ok {
		state = &threadState{}
		m.threads[key] = state
	}
	return state
}

// Now returns the manager's clock reading
func (m *ThreadStateManager) Now() time.Time {
	return m.now()
}

func (m *ThreadStateManager) MarkChannelActivity(channelID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channelActivity[channelID] = m.now()
}

func (m *ThreadStateManager) LastChannelActivity(channelID string) mo.Option[time.Time] {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.channelActivity[channelID]
	if !ok {
		return mo.None[time.Time]()
	}
	return mo.Some(at)
}

// MarkPersonaReply records that a persona just posted in a thread. It also counts as channel activity.
func (m *ThreadStateManager) MarkPersonaReply(channelID, threadTS, personaID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	state := m.thread(channelID, threadTS)
	state.lastRepliedPersonaID = personaID
	state.lastRepliedAt = now
	m.channelActivity[channelID] = now
}

func (m *ThreadStateManager) LastRepliedPersona(channelID, threadTS string) mo.Option[string] {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.threads[threadKey(channelID, threadTS)]
	if !ok || state.lastRepliedPersonaID == "" {
		return mo.None[string]()
	}
	return mo.Some(state.lastRepliedPersonaID)
}

// PersonaRepliedSince reports whether a persona other than excludingPersonaID
// has replied in the thread at or after since.
func (m *ThreadStateManager) PersonaRepliedSince(channelID, threadTS string, since time.Time, excludingPersonaID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.threads[threadKey(channelID, threadTS)]
	if !ok || state.lastRepliedPersonaID == "" {
		return false
	}
	if state.lastRepliedPersonaID == excludingPersonaID {
		return false
	}
	return !state.lastRepliedAt.Before(since)
}

// RecordThreadMessage appends a "speaker: text" line to the thread's short history
func (m *ThreadStateManager) RecordThreadMessage(channelID, threadTS, speaker, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.thread(channelID, threadTS)
	state.recent = append(state.recent, speaker+": "+strings.TrimSpace(text))
	if len(state.recent) > maxRecentMessages {
		state.recent = state.recent[len(state.recent)-maxRecentMessages:]
	}
}

// RecentThreadMessages returns the thread's last few lines, oldest first
func (m *ThreadStateManager) RecentThreadMessages(channelID, threadTS string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.threads[threadKey(channelID, threadTS)]
	if !ok {
		return nil
	}
	recent := make([]string, len(state.recent))
	copy(recent, state.recent)
	return recent
}

func (m *ThreadStateManager) RememberAdHocOwner(channelID, threadTS, personaID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.thread(channelID, threadTS).adHocOwnerPersonaID = personaID
}

func (m *ThreadStateManager) AdHocOwner(channelID, threadTS string) mo.Option[string] {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.threads[threadKey(channelID, threadTS)]
	if !ok || state.adHocOwnerPersonaID == "" {
		return mo.None[string]()
	}
	return mo.Some(state.adHocOwnerPersonaID)
}

func (m *ThreadStateManager) IsOnReviewCooldown(issueURL string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.onCooldownLocked(issueURL)
}

func (m *ThreadStateManager) onCooldownLocked(issueURL string) bool {
	at, ok := m.reviewedAt[issueURL]
	if !ok {
		return false
	}
	return m.now().Sub(at) < m.reviewCooldown
}

func (m *ThreadStateManager) MarkReviewed(issueURL string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviewedAt[issueURL] = m.now()
}

// TryMarkReviewed marks issueURL reviewed unless it is still on cooldown.
// It returns false when the URL was on cooldown and nothing changed.
func (m *ThreadStateManager) TryMarkReviewed(issueURL string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.onCooldownLocked(issueURL) {
		return false
	}
	m.reviewedAt[issueURL] = m.now()
	return true
}

// MarkInboundSeen records an inbound event key and reports whether this is its first delivery
func (m *ThreadStateManager) MarkInboundSeen(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.pruneInboundLocked(now)

	if _, seen := m.seenInbound[key]; seen {
		return false
	}
	m.seenInbound[key] = now
	return true
}

func (m *ThreadStateManager) pruneInboundLocked(now time.Time) {
	if now.Sub(m.lastPrune) < m.inboundTTL/2 {
		return
	}
	for key, at := range m.seenInbound {
		if now.Sub(at) >= m.inboundTTL {
			delete(m.seenInbound, key)
		}
	}
	m.lastPrune = now
}

// FindPersonaByName matches an active persona by id, full name or first name, ignoring case
func (m *ThreadStateManager) FindPersonaByName(personas []models.Persona, name string) mo.Option[models.Persona] {
	name = strings.TrimSpace(name)
	if name == "" {
		return mo.None[models.Persona]()
	}
	for _, p := range models.ActivePersonas(personas) {
		if strings.EqualFold(p.ID, name) || strings.EqualFold(p.Name, name) || strings.EqualFold(p.FirstName(), name) {
			return mo.Some(p)
		}
	}
	return mo.None[models.Persona]()
}

// PersonaByID returns the active persona with the given id
func (m *ThreadStateManager) PersonaByID(personas []models.Persona, id string) mo.Option[models.Persona] {
	for _, p := range models.ActivePersonas(personas) {
		if p.ID == id {
			return mo.Some(p)
		}
	}
	return mo.None[models.Persona]()
}

// PickRandomPersona draws uniformly from the active personas, skipping the excluded ids
func (m *ThreadStateManager) PickRandomPersona(personas []models.Persona, excludingIDs ...string) mo.Option[models.Persona] {
	excluded := make(map[string]bool, len(excludingIDs))
	for _, id := range excludingIDs {
		excluded[id] = true
	}

	var pool []models.Persona
	for _, p := range models.ActivePersonas(personas) {
		if !excluded[p.ID] {
			pool = append(pool, p)
		}
	}
	if len(pool) == 0 {
		return mo.None[models.Persona]()
	}

	m.mu.Lock()
	idx := m.rng.IntN(len(pool))
	m.mu.Unlock()

	return mo.Some(pool[idx])
}

// Float64 returns a pseudo-random float in [0, 1) from the shared generator
func (m *ThreadStateManager) Float64() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Float64()
}

// NormFloat64 returns a standard normal sample from the shared generator
func (m *ThreadStateManager) NormFloat64() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.NormFloat64()
}
