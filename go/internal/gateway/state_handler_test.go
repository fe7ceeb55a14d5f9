package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/mcdev12/ladders/go/internal/gameerr"
	"github.com/mcdev12/ladders/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStates map[uuid.UUID]*models.Session

func (s stubStates) State(_ context.Context, id uuid.UUID) (*models.Session, error) {
	session, ok := s[id]
	if !ok {
		return nil, gameerr.ErrSessionNotFound
	}
	if session == nil {
		return nil, errors.New("tier exploded")
	}
	return session, nil
}

func TestStateHandler(t *testing.T) {
	live := &models.Session{ID: uuid.New(), BoardID: "classic", Status: models.SessionStatusInProgress, CurrentTurn: "alice", Version: 3}
	broken := uuid.New()
	states := stubStates{live.ID: live, broken: nil}

	mux := http.NewServeMux()
	NewStateHandler(states).RegisterStateRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tests := []struct {
		name     string
		path     string
		status   int
		wantCode gameerr.Code
	}{
		{name: "found", path: "/api/sessions/" + live.ID.String() + "/state", status: http.StatusOK},
		{name: "unknown session", path: "/api/sessions/" + uuid.NewString() + "/state", status: http.StatusNotFound, wantCode: gameerr.CodeNotFound},
		{name: "bad id", path: "/api/sessions/nope/state", status: http.StatusBadRequest},
		{name: "store failure", path: "/api/sessions/" + broken.String() + "/state", status: http.StatusInternalServerError, wantCode: gameerr.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			defer res.Body.Close()
			assert.Equal(t, tt.status, res.StatusCode)

			switch {
			case tt.status == http.StatusOK:
				var got models.Session
				require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
				assert.Equal(t, live.ID, got.ID)
				assert.Equal(t, "alice", got.CurrentTurn)
				assert.Equal(t, int64(3), got.Version)
			case tt.wantCode != "":
				var body errorBody
				require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
				assert.Equal(t, tt.wantCode, body.Code)
			}
		})
	}

	res, err := http.Post(srv.URL+"/api/sessions/"+live.ID.String()+"/state", "application/json", nil)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
}
