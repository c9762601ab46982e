package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shelfwatch/shelfwatch/internal/shared"
)

func TestRespondErrorMapsStatus(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("job nope: %w", shared.ErrNotFound), http.StatusNotFound},
		{shared.ErrJobLocked, http.StatusConflict},
		{ErrValidation, http.StatusBadRequest},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)
		require.Equal(t, tc.code, rr.Code)
		require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

		var body ProblemDetail
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		require.Equal(t, tc.code, body.Status)
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, fmt.Errorf("dsn leaked"))

	var body ProblemDetail
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	require.Empty(t, body.Detail)
}
