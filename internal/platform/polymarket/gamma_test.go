package polymarket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fillscope/internal/domain"
)

func TestAPIMarket_TokenOutcomes(t *testing.T) {
	market := APIMarket{
		Question:     "Will it rain tomorrow?",
		Outcomes:     `["Yes","No"]`,
		ClobTokenIDs: `["1111","2222"]`,
	}

	outcomes, err := market.TokenOutcomes()

	require.NoError(t, err)
	assert.Equal(t, domain.TokenOutcomes{
		"1111": "Will it rain tomorrow? - Yes",
		"2222": "Will it rain tomorrow? - No",
	}, outcomes)
}

func TestAPIMarket_TokenOutcomes_CountMismatch(t *testing.T) {
	market := APIMarket{
		Question:     "Q",
		Outcomes:     `["Yes","No"]`,
		ClobTokenIDs: `["1111"]`,
	}

	_, err := market.TokenOutcomes()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")
}

func TestAPIMarket_TokenOutcomes_BadJSON(t *testing.T) {
	market := APIMarket{
		Question:     "Q",
		Outcomes:     `not json`,
		ClobTokenIDs: `["1111"]`,
	}

	_, err := market.TokenOutcomes()
	require.Error(t, err)
}

func TestAPIMarket_TokenOutcomes_SkipsEmptyTokenIDs(t *testing.T) {
	market := APIMarket{
		Question:     "Q",
		Outcomes:     `["Yes","No"]`,
		ClobTokenIDs: `["1111",""]`,
	}

	outcomes, err := market.TokenOutcomes()

	require.NoError(t, err)
	assert.Len(t, outcomes, 1)
}

func TestFlexBool(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{`true`, true},
		{`false`, false},
		{`"true"`, true},
		{`"TRUE"`, true},
		{`"false"`, false},
		{`"1"`, true},
	}
	for _, c := range cases {
		var f flexBool
		require.NoError(t, json.Unmarshal([]byte(c.raw), &f), c.raw)
		assert.Equal(t, c.want, bool(f), c.raw)
	}
}

func TestGammaClient_ResolveTokenOutcomes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "rain-tomorrow", r.URL.Query().Get("slug"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{
			"id": "1",
			"question": "Will it rain tomorrow?",
			"slug": "rain-tomorrow",
			"active": "true",
			"outcomes": "[\"Yes\",\"No\"]",
			"clobTokenIds": "[\"1111\",\"2222\"]"
		}]`))
	}))
	defer srv.Close()

	client := NewGammaClient(srv.URL)
	outcomes, err := client.ResolveTokenOutcomes(context.Background(), "rain-tomorrow")

	require.NoError(t, err)
	assert.Len(t, outcomes, 2)
	assert.Equal(t, "Will it rain tomorrow? - Yes", outcomes["1111"])
}

func TestGammaClient_GetMarketBySlug_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewGammaClient(srv.URL)
	_, err := client.GetMarketBySlug(context.Background(), "missing")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGammaClient_GetMarketBySlug_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewGammaClient(srv.URL)
	_, err := client.GetMarketBySlug(context.Background(), "any")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500")
}
