package consensus

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"raincast/internal/types"
)

// SwarmTally owns the transient per-location PendingConsensus entries: a
// purely in-memory, TTL-bounded count of corroborating reports used for fast
// peer alerting ahead of formal vote consensus.
//
// The tally is best-effort and never authoritative. Losing it (process
// restart) costs nothing but an in-flight alert; the durable observation
// store is unaffected. Expiry is evaluated lazily at read and report time;
// no background sweep runs.
type SwarmTally struct {
	clock          clockwork.Clock
	idleTTL        time.Duration
	alertThreshold int
	logger         *slog.Logger

	mu      sync.Mutex
	entries map[string]*types.PendingConsensus
}

// NewSwarmTally constructs the tally. A nil clock falls back to the real
// clock; tests inject a fake to drive TTL expiry deterministically.
func NewSwarmTally(clock clockwork.Clock, idleTTL time.Duration, alertThreshold int, logger *slog.Logger) *SwarmTally {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SwarmTally{
		clock:          clock,
		idleTTL:        idleTTL,
		alertThreshold: alertThreshold,
		logger:         logger,
		entries:        make(map[string]*types.PendingConsensus),
	}
}

// Report records one corroborating report for the location. The first report
// (or the first after the idle TTL elapsed) starts a fresh tally at count 1;
// reports within the TTL increment the count and refresh the idle timer. The
// check-increment-write sequence is atomic per location under the tally lock.
func (s *SwarmTally) Report(location, claimType string) types.SwarmStatus {
	key := types.FoldLocation(location)
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || now.Sub(entry.LastSeenAt) > s.idleTTL {
		entry = &types.PendingConsensus{
			Location:   location,
			ClaimType:  claimType,
			Count:      1,
			LastSeenAt: now,
		}
		s.entries[key] = entry
	} else {
		entry.Count++
		entry.LastSeenAt = now
	}

	if entry.Count == s.alertThreshold {
		s.logger.Info("swarm reached alert threshold",
			"location", location,
			"claim_type", entry.ClaimType,
			"count", entry.Count,
		)
	}
	return s.statusOf(entry)
}

// Status returns the swarm state for the location, applying lazy expiry:
// entries idle past the TTL are deleted and reported as Clear even though
// nothing ever swept them.
func (s *SwarmTally) Status(location string) types.SwarmStatus {
	key := types.FoldLocation(location)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return types.SwarmStatus{State: types.SwarmClear}
	}
	if s.clock.Now().Sub(entry.LastSeenAt) > s.idleTTL {
		delete(s.entries, key)
		return types.SwarmStatus{State: types.SwarmClear}
	}
	return s.statusOf(entry)
}

// Broadcast is the peer channel: clients polling the same location learn
// that a swarm is forming so they can corroborate. It is active only while
// the count is below the alert threshold -- once the threshold is reached,
// further corroboration no longer needs prompting.
func (s *SwarmTally) Broadcast(location string) (active bool, claimType string, count int) {
	key := types.FoldLocation(location)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || s.clock.Now().Sub(entry.LastSeenAt) > s.idleTTL {
		return false, "", 0
	}
	if entry.Count >= s.alertThreshold {
		return false, entry.ClaimType, entry.Count
	}
	return true, entry.ClaimType, entry.Count
}

// Evict removes the entry for a location, for callers that clear a swarm
// after downstream consumers have been notified.
func (s *SwarmTally) Evict(location string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, types.FoldLocation(location))
}

// statusOf projects an entry into its external status. Caller holds the lock.
func (s *SwarmTally) statusOf(entry *types.PendingConsensus) types.SwarmStatus {
	if entry.Count >= s.alertThreshold {
		return types.SwarmStatus{
			State:     types.SwarmVerified,
			ClaimType: entry.ClaimType,
			Count:     entry.Count,
		}
	}
	return types.SwarmStatus{
		State:     types.SwarmCounting,
		ClaimType: entry.ClaimType,
		Count:     entry.Count,
	}
}
