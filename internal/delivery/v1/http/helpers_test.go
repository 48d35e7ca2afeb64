package http

import (
	"errors"
	"net/http"
	"testing"

	"github.com/DRSN-tech/match-service/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseItemID(t *testing.T) {
	t.Run("valid id", func(t *testing.T) {
		id, err := parseItemID("42")
		require.NoError(t, err)
		assert.Equal(t, int64(42), id)
	})

	t.Run("rejects garbage and non-positive", func(t *testing.T) {
		for _, raw := range []string{"", "abc", "0", "-5", "1.5"} {
			_, err := parseItemID(raw)
			assert.ErrorIs(t, err, e.ErrInvalidItemID, "raw %q", raw)
		}
	})
}

func TestParseMinScore(t *testing.T) {
	t.Run("empty means no threshold", func(t *testing.T) {
		minScore, err := parseMinScore("")
		require.NoError(t, err)
		assert.Equal(t, 0, minScore)
	})

	t.Run("accepts integer notation", func(t *testing.T) {
		minScore, err := parseMinScore("60")
		require.NoError(t, err)
		assert.Equal(t, 60, minScore)

		minScore, err = parseMinScore("60.0")
		require.NoError(t, err)
		assert.Equal(t, 60, minScore)
	})

	t.Run("rejects fractional threshold", func(t *testing.T) {
		_, err := parseMinScore("59.5")
		assert.ErrorIs(t, err, e.ErrInvalidMinScore)
	})

	t.Run("rejects out of range and garbage", func(t *testing.T) {
		for _, raw := range []string{"-1", "101", "abc"} {
			_, err := parseMinScore(raw)
			assert.ErrorIs(t, err, e.ErrInvalidMinScore, "raw %q", raw)
		}
	})

	t.Run("boundaries are valid", func(t *testing.T) {
		for _, raw := range []string{"0", "100"} {
			_, err := parseMinScore(raw)
			assert.NoError(t, err, "raw %q", raw)
		}
	})
}

func TestParseLimit(t *testing.T) {
	t.Run("empty falls back to default", func(t *testing.T) {
		limit, err := parseLimit("", 20)
		require.NoError(t, err)
		assert.Equal(t, 20, limit)
	})

	t.Run("explicit limit", func(t *testing.T) {
		limit, err := parseLimit("5", 20)
		require.NoError(t, err)
		assert.Equal(t, 5, limit)
	})

	t.Run("rejects non-positive and garbage", func(t *testing.T) {
		for _, raw := range []string{"0", "-1", "abc", "1.5"} {
			_, err := parseLimit(raw, 20)
			assert.ErrorIs(t, err, e.ErrInvalidLimit, "raw %q", raw)
		}
	})
}

func TestToHTTPResponse(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{e.ErrRebuildInProgress, http.StatusConflict},
		{e.ErrInvalidItemID, http.StatusBadRequest},
		{e.ErrInvalidMinScore, http.StatusBadRequest},
		{e.ErrInvalidLimit, http.StatusBadRequest},
		{e.ErrStatusBadRequest, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		code, msg := ToHTTPResponse(tc.err)
		assert.Equal(t, tc.code, code, "err %v", tc.err)
		assert.NotEmpty(t, msg)
	}

	t.Run("wrapped errors keep their mapping", func(t *testing.T) {
		code, _ := ToHTTPResponse(e.Wrap("MatchUseCase.RebuildAll", e.ErrRebuildInProgress))
		assert.Equal(t, http.StatusConflict, code)
	})
}
