package goldsky

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

const fillsResponse = `{
	"data": {
		"orderFilledEvents": [
			{
				"transactionHash": "0xabc",
				"orderHash": "0xdef",
				"timestamp": "1700000000",
				"maker": "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359",
				"makerAssetId": "1111",
				"makerAmountFilled": "10000000",
				"taker": "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
				"takerAssetId": "0",
				"takerAmountFilled": "6500000",
				"fee": "0"
			}
		]
	}
}`

func TestFetchTokenFills(t *testing.T) {
	var gotAuth string
	var gotVars map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var req struct {
			Variables map[string]any `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotVars = req.Variables
		_, _ = w.Write([]byte(fillsResponse))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret")
	fills, err := client.FetchTokenFills(context.Background(), "1111", 1000, 2000)

	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "1111", gotVars["token"])
	assert.Equal(t, float64(1000), gotVars["first"])
	assert.Equal(t, float64(2000), gotVars["skip"])

	require.Len(t, fills, 1)
	f := fills[0]
	assert.Equal(t, "0xabc", f.TransactionHash)
	assert.Equal(t, int64(1700000000), f.Timestamp)
	assert.Equal(t, "1111", f.MakerAssetID)
	assert.Equal(t, int64(10_000_000), f.MakerAmountFilled)
	assert.Equal(t, "0", f.TakerAssetID)
	assert.Equal(t, int64(6_500_000), f.TakerAmountFilled)
	// Addresses come back EIP-55 checksummed; both vectors have mixed-case
	// checksum forms so a pass-through would be caught.
	assert.Equal(t, "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359", f.Maker)
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", f.Taker)
}

func TestFetchTokenFills_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	_, err := client.FetchTokenFills(context.Background(), "1111", 1000, 0)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestFetchTokenFills_GraphQLRateLimitMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"rate limit exceeded"}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	_, err := client.FetchTokenFills(context.Background(), "1111", 1000, 0)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestFetchTokenFills_GraphQLError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"field not found"}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	_, err := client.FetchTokenFills(context.Background(), "1111", 1000, 0)

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrRateLimited)
	assert.Contains(t, err.Error(), "field not found")
}

func TestFetchLatestBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"_meta":{"block":{"number":68123456}}}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	block, err := client.FetchLatestBlock(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(68123456), block)
}

func TestChecksumAddress(t *testing.T) {
	assert.Equal(t, "", checksumAddress(""))
	assert.Equal(t, "not-an-address", checksumAddress("not-an-address"))

	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		checksumAddress("0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED"))
	// Some addresses checksum to all lowercase; the output matching the
	// lowercase input is correct, not a skipped conversion.
	assert.Equal(t, "0x27b1fdb04752bbc536007a920d24acb045561c26",
		checksumAddress("0x27B1FDB04752BBC536007A920D24ACB045561C26"))
}
