// Package consensus implements the two community-verification mechanisms:
// the persisted vote tally attached to observations, and the ephemeral
// TTL-bounded swarm tally that signals "many people are reporting this right
// now" ahead of formal vote consensus.
package consensus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"raincast/internal/store"
	"raincast/internal/types"
)

// VoteAggregator maintains the persisted support/oppose tallies and derives
// the trust label once a threshold is crossed.
//
// Voter deduplication is enforced in-memory: one vote per (voter,
// observation). Like the swarm tally it is best-effort state -- a process
// restart forgets who voted, but can never corrupt the store. The reference
// behavior had no deduplication at all, so best-effort is a strict
// improvement without dragging a durable identity system into the core.
type VoteAggregator struct {
	store            *store.Store
	promoteThreshold int
	logger           *slog.Logger

	mu    sync.Mutex
	voted map[string]struct{} // "voterID|observationID"
}

// NewVoteAggregator constructs the aggregator. promoteThreshold is the vote
// count at which a trust label flips to a community verdict.
func NewVoteAggregator(st *store.Store, promoteThreshold int, logger *slog.Logger) *VoteAggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &VoteAggregator{
		store:            st,
		promoteThreshold: promoteThreshold,
		logger:           logger,
		voted:            make(map[string]struct{}),
	}
}

// CastVote increments the matching counter on the most recent observation
// for the location that carries a claim (the same newest-first selection as
// claim matching, but over claimed rather than open records), then
// recomputes the trust label.
//
// The aggregator lock is held across the whole operation so the
// check-vote-mark sequence is atomic per voter; counter increments
// themselves are additionally serialized by the store's own lock.
func (a *VoteAggregator) CastVote(ctx context.Context, location string, direction types.VoteDirection, voterID string) (types.Observation, error) {
	if !direction.IsValid() {
		return types.Observation{}, types.NewAppError(types.ErrCodeValidationInvalidVote,
			fmt.Sprintf("unknown vote direction %q", direction), nil)
	}

	target, ok := newestClaimed(a.store.Scan(types.ObservationFilter{Location: location}))
	if !ok {
		return types.Observation{}, types.NewAppError(types.ErrCodeNotFoundObservation,
			fmt.Sprintf("no claimed observation for %q to vote on", location), nil)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	key := fmt.Sprintf("%s|%d", voterID, target)
	if voterID != "" {
		if _, dup := a.voted[key]; dup {
			return types.Observation{}, types.NewAppError(types.ErrCodeConflictDuplicateVote,
				"this client already voted on the observation", nil)
		}
	}

	updated, err := a.store.Update(target, func(o *types.Observation) error {
		if o.ClaimOpen() {
			// The record lost its claim between scan and update; votes are
			// only meaningful on claimed observations.
			return types.NewAppError(types.ErrCodeNotFoundObservation,
				fmt.Sprintf("observation %d has no claim to vote on", o.ID), nil)
		}
		switch direction {
		case types.VoteSupport:
			o.SupportVotes++
		case types.VoteOppose:
			o.OpposeVotes++
		}
		a.applyThreshold(o)
		return nil
	})
	if err != nil {
		return types.Observation{}, err
	}

	if voterID != "" {
		a.voted[key] = struct{}{}
	}

	a.logger.Info("vote recorded",
		"observation_id", updated.ID,
		"direction", direction,
		"support", updated.SupportVotes,
		"oppose", updated.OpposeVotes,
		"trust_label", updated.TrustLabel,
		"request_id", types.GetRequestID(ctx),
	)
	return updated, nil
}

// applyThreshold recomputes the trust label from the tallies. A label never
// regresses from CommunityVerified without an explicit opposing majority:
// support at threshold keeps Verified while support >= oppose, and flipping
// to Rejected requires the oppose count to both reach the threshold and
// strictly exceed support.
func (a *VoteAggregator) applyThreshold(o *types.Observation) {
	switch {
	case o.SupportVotes >= a.promoteThreshold && o.SupportVotes >= o.OpposeVotes:
		o.TrustLabel = types.TrustCommunityVerified
	case o.OpposeVotes >= a.promoteThreshold && o.OpposeVotes > o.SupportVotes:
		o.TrustLabel = types.TrustCommunityRejected
	}
}

// newestClaimed returns the ID of the most recent record with a non-empty
// claim. Records arrive in store order (oldest first).
func newestClaimed(records []types.Observation) (int64, bool) {
	for i := len(records) - 1; i >= 0; i-- {
		if !records[i].ClaimOpen() {
			return records[i].ID, true
		}
	}
	return 0, false
}
