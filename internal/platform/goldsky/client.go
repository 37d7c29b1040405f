// Package goldsky implements the order-fill event feed using the Goldsky
// subgraph for the Polymarket CTF Exchange contract.
package goldsky

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/fillscope/internal/domain"
)

// Client is a GraphQL client for the Goldsky subgraph indexer, used to query
// on-chain order fill events per outcome token.
type Client struct {
	graphqlURL string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new Goldsky GraphQL client.
//
// graphqlURL is the Goldsky subgraph endpoint, e.g.
// "https://api.goldsky.com/api/public/.../subgraphs/polymarket-orderbook-resync/gn".
func NewClient(graphqlURL, apiKey string) *Client {
	return &Client{
		graphqlURL: graphqlURL,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// graphqlRequest is the standard GraphQL request envelope.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphqlResponse is the standard GraphQL response envelope.
type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// FetchTokenFills queries one page of order fill events where the given token
// id appears on either leg of the trade. Pages are ordered by timestamp
// descending; first/skip implement the offset pagination used by FillIngestor.
//
// A throttled upstream response is reported as domain.ErrRateLimited so the
// caller can re-issue the same page after a cool-down.
func (c *Client) FetchTokenFills(ctx context.Context, tokenID string, first, skip int) ([]domain.RawFill, error) {
	query := `
		query TokenFills($token: BigInt!, $first: Int!, $skip: Int!) {
			orderFilledEvents(
				first: $first
				skip: $skip
				orderBy: timestamp
				orderDirection: desc
				where: { or: [{ makerAssetId: $token }, { takerAssetId: $token }] }
			) {
				transactionHash
				orderHash
				timestamp
				maker
				makerAssetId
				makerAmountFilled
				taker
				takerAssetId
				takerAmountFilled
				fee
			}
		}
	`

	variables := map[string]any{
		"token": tokenID,
		"first": first,
		"skip":  skip,
	}

	respData, err := c.doQuery(ctx, query, variables)
	if err != nil {
		if isRateLimited(err) {
			return nil, fmt.Errorf("goldsky: fetch token fills: %w", domain.ErrRateLimited)
		}
		return nil, fmt.Errorf("goldsky: fetch token fills: %w", err)
	}

	var result struct {
		OrderFilledEvents []struct {
			TransactionHash   string `json:"transactionHash"`
			OrderHash         string `json:"orderHash"`
			Timestamp         string `json:"timestamp"`
			Maker             string `json:"maker"`
			MakerAssetID      string `json:"makerAssetId"`
			MakerAmountFilled string `json:"makerAmountFilled"`
			Taker             string `json:"taker"`
			TakerAssetID      string `json:"takerAssetId"`
			TakerAmountFilled string `json:"takerAmountFilled"`
			Fee               string `json:"fee"`
		} `json:"orderFilledEvents"`
	}

	if err := json.Unmarshal(respData, &result); err != nil {
		return nil, fmt.Errorf("goldsky: decode token fills: %w", err)
	}

	fills := make([]domain.RawFill, 0, len(result.OrderFilledEvents))
	for _, e := range result.OrderFilledEvents {
		ts, _ := strconv.ParseInt(e.Timestamp, 10, 64)
		makerAmt, _ := strconv.ParseInt(e.MakerAmountFilled, 10, 64)
		takerAmt, _ := strconv.ParseInt(e.TakerAmountFilled, 10, 64)
		fee, _ := strconv.ParseInt(e.Fee, 10, 64)

		fills = append(fills, domain.RawFill{
			TransactionHash:   e.TransactionHash,
			OrderHash:         e.OrderHash,
			Timestamp:         ts,
			Maker:             checksumAddress(e.Maker),
			MakerAssetID:      e.MakerAssetID,
			MakerAmountFilled: makerAmt,
			Taker:             checksumAddress(e.Taker),
			TakerAssetID:      e.TakerAssetID,
			TakerAmountFilled: takerAmt,
			Fee:               fee,
		})
	}

	return fills, nil
}

// FetchLatestBlock returns the latest block number indexed by the subgraph,
// used to report indexing lag before a batch run.
func (c *Client) FetchLatestBlock(ctx context.Context) (int64, error) {
	query := `
		query LatestBlock {
			_meta {
				block {
					number
				}
			}
		}
	`

	respData, err := c.doQuery(ctx, query, nil)
	if err != nil {
		return 0, fmt.Errorf("goldsky: fetch latest block: %w", err)
	}

	var result struct {
		Meta struct {
			Block struct {
				Number int64 `json:"number"`
			} `json:"block"`
		} `json:"_meta"`
	}

	if err := json.Unmarshal(respData, &result); err != nil {
		return 0, fmt.Errorf("goldsky: decode latest block: %w", err)
	}

	return result.Meta.Block.Number, nil
}

// checksumAddress normalizes a hex wallet address to its EIP-55 checksum form.
// Non-address values (empty strings, malformed hex) pass through unchanged so
// conversion never drops an event.
func checksumAddress(addr string) string {
	if !common.IsHexAddress(addr) {
		return addr
	}
	return common.HexToAddress(addr).Hex()
}

// isRateLimited reports whether an upstream error indicates throttling, either
// an HTTP 429 status or a rate-limit message token in a GraphQL error.
func isRateLimited(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "http 429") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "rate limit")
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doQuery executes a GraphQL query against the Goldsky endpoint and returns
// the raw "data" field from the response.
func (c *Client) doQuery(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	reqBody := graphqlRequest{
		Query:     query,
		Variables: variables,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var gqlResp graphqlResponse
	if err := json.Unmarshal(body, &gqlResp); err != nil {
		return nil, fmt.Errorf("decode graphql response: %w", err)
	}

	if len(gqlResp.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %s", gqlResp.Errors[0].Message)
	}

	return gqlResp.Data, nil
}
