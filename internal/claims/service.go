// Package claims implements claim submission: proof validation, matching the
// claim to the most recent open observation for its location, and attaching
// the claim plus verdict to that record.
package claims

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"raincast/internal/proof"
	"raincast/internal/store"
	"raincast/internal/types"
)

// Result is the outcome of a claim submission returned to the caller.
type Result struct {
	ObservationID int64            `json:"observation_id"`
	TrustLabel    types.TrustLabel `json:"trust_label"`
	Message       string           `json:"message"`
}

// Service wires the authenticity validator, the artifact store, and the
// observation store into the claim attachment flow.
type Service struct {
	store     *store.Store
	validator *proof.Validator
	artifacts *proof.ArtifactStore
	logger    *slog.Logger
}

// NewService constructs the claim submission service.
func NewService(st *store.Store, v *proof.Validator, a *proof.ArtifactStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, validator: v, artifacts: a, logger: logger}
}

// Submit runs the full claim flow:
//
//  1. Validate the proof bytes (pure; produces the trust label).
//  2. Find the most recent observation for the location whose claim is still
//     open. Each location query appends a fresh open observation, and a
//     claim is about the most recent weather snapshot, so matching walks
//     newest-first and binds to the first open record.
//  3. Persist the proof artifact and attach claim, proof reference, and
//     verdict to the matched record.
//
// An observation accepts at most one claim: the attach mutator re-checks
// openness under the store lock, so two near-simultaneous submissions for
// the same location land on different records (or the second gets NotFound).
func (s *Service) Submit(ctx context.Context, location, claim, proofName string, proofBytes []byte) (Result, error) {
	if location == "" || claim == "" {
		return Result{}, types.NewAppError(types.ErrCodeValidationMissingField,
			"location and claim are required", nil)
	}
	if len(proofBytes) == 0 {
		return Result{}, types.NewAppError(types.ErrCodeValidationProofRequired,
			"a proof photo is required for verification", nil)
	}

	verdict := s.validator.Validate(proofBytes)

	candidates := newestFirstOpen(s.store.Scan(types.ObservationFilter{Location: location, OpenOnly: true}))
	if len(candidates) == 0 {
		return Result{}, noActiveObservation(location)
	}

	ref, err := s.artifacts.Save(proofName, proofBytes)
	if err != nil {
		return Result{}, err
	}

	for _, id := range candidates {
		updated, err := s.store.Update(id, func(o *types.Observation) error {
			if !o.ClaimOpen() {
				return types.NewAppError(types.ErrCodeConflictClaimAttached,
					fmt.Sprintf("observation %d already has a claim", o.ID), nil)
			}
			o.Claim = claim
			o.ProofRef = ref
			o.TrustLabel = verdict.Label
			return nil
		})
		if err == nil {
			s.logger.Info("claim attached",
				"observation_id", updated.ID,
				"location", location,
				"trust_label", verdict.Label,
				"request_id", types.GetRequestID(ctx),
			)
			return Result{
				ObservationID: updated.ID,
				TrustLabel:    verdict.Label,
				Message:       verdict.Detail,
			}, nil
		}

		// Another submission claimed this record between the scan and the
		// update; fall through to the next-newest open candidate.
		var appErr *types.AppError
		if errors.As(err, &appErr) && appErr.Code == types.ErrCodeConflictClaimAttached {
			continue
		}
		s.artifacts.Remove(ref)
		return Result{}, err
	}

	s.artifacts.Remove(ref)
	return Result{}, noActiveObservation(location)
}

// newestFirstOpen returns candidate IDs in reverse store order. The store
// scans oldest first; the matcher explicitly requires newest-first traversal.
func newestFirstOpen(records []types.Observation) []int64 {
	ids := make([]int64, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		ids = append(ids, records[i].ID)
	}
	return ids
}

func noActiveObservation(location string) *types.AppError {
	return types.NewAppError(types.ErrCodeNotFoundObservation,
		fmt.Sprintf("no active observation to verify for %q", location), nil)
}
