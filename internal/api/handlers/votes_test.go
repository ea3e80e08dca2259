package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raincast/internal/core"
	"raincast/internal/types"
)

type mockVoteCaster struct {
	castFn func(ctx context.Context, location string, direction types.VoteDirection, voterID string) (types.Observation, error)

	lastLocation  string
	lastDirection types.VoteDirection
	lastVoter     string
}

func (m *mockVoteCaster) CastVote(ctx context.Context, location string, direction types.VoteDirection, voterID string) (types.Observation, error) {
	m.lastLocation = location
	m.lastDirection = direction
	m.lastVoter = voterID
	if m.castFn != nil {
		return m.castFn(ctx, location, direction, voterID)
	}
	return types.Observation{ID: 5, Location: location, SupportVotes: 1, TrustLabel: types.TrustGenuine}, nil
}

func newTestVoteHandler() (*VoteHandler, *mockVoteCaster) {
	caster := &mockVoteCaster{}
	return NewVoteHandler(caster, core.NewValidator(), nil, nil), caster
}

func TestVoteHandler_Cast_Success(t *testing.T) {
	handler, caster := newTestVoteHandler()

	body, err := json.Marshal(CastVoteRequest{Location: "Pune", Direction: "support"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/votes", bytes.NewReader(body))
	req = req.WithContext(types.WithVoterID(req.Context(), "voter-42"))
	rr := httptest.NewRecorder()

	handler.Cast(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Pune", caster.lastLocation)
	assert.Equal(t, types.VoteSupport, caster.lastDirection)
	assert.Equal(t, "voter-42", caster.lastVoter)

	var resp struct {
		Data types.Observation `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, int64(5), resp.Data.ID)
	assert.Equal(t, 1, resp.Data.SupportVotes)
}

func TestVoteHandler_Cast_MissingFields(t *testing.T) {
	handler, caster := newTestVoteHandler()

	req := httptest.NewRequest(http.MethodPost, "/v1/votes",
		bytes.NewReader([]byte(`{"location":"Pune"}`)))
	rr := httptest.NewRecorder()

	handler.Cast(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, caster.lastLocation)
}

func TestVoteHandler_Cast_InvalidDirectionPropagates(t *testing.T) {
	handler, caster := newTestVoteHandler()
	caster.castFn = func(ctx context.Context, location string, direction types.VoteDirection, voterID string) (types.Observation, error) {
		return types.Observation{}, types.NewAppError(types.ErrCodeValidationInvalidVote,
			"direction must be support or oppose", nil)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/votes",
		bytes.NewReader([]byte(`{"location":"Pune","direction":"maybe"}`)))
	rr := httptest.NewRecorder()

	handler.Cast(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), string(types.ErrCodeValidationInvalidVote))
}

func TestVoteHandler_Cast_DuplicateVoteConflict(t *testing.T) {
	handler, caster := newTestVoteHandler()
	caster.castFn = func(ctx context.Context, location string, direction types.VoteDirection, voterID string) (types.Observation, error) {
		return types.Observation{}, types.NewAppError(types.ErrCodeConflictDuplicateVote,
			"this voter already voted on the observation", nil)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/votes",
		bytes.NewReader([]byte(`{"location":"Pune","direction":"support"}`)))
	rr := httptest.NewRecorder()

	handler.Cast(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}
