package polymarket

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alanyoungcy/fillscope/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// APIMarket is a market as returned by the Polymarket Gamma API, reduced to
// the fields the resolver needs. Outcomes and ClobTokenIDs are parallel
// JSON-encoded string arrays: outcome i trades as token i.
type APIMarket struct {
	ID           string   `json:"id"`
	Question     string   `json:"question"`
	ConditionID  string   `json:"condition_id"`
	Slug         string   `json:"slug"`
	Active       flexBool `json:"active"`
	Closed       bool     `json:"closed"`
	Outcomes     string   `json:"outcomes"`       // e.g. "[\"Over\",\"Under\"]"
	ClobTokenIDs string   `json:"clobTokenIds"`   // e.g. "[\"123...\",\"456...\"]"
	Volume       string   `json:"volume"`
}

// TokenOutcomes decodes the parallel outcome/token arrays and builds the
// domain mapping with labels formatted as "<question> - <outcome>".
func (m *APIMarket) TokenOutcomes() (domain.TokenOutcomes, error) {
	var outcomes []string
	if err := json.Unmarshal([]byte(m.Outcomes), &outcomes); err != nil {
		return nil, fmt.Errorf("decode outcomes %q: %w", m.Outcomes, err)
	}

	var tokenIDs []string
	if err := json.Unmarshal([]byte(m.ClobTokenIDs), &tokenIDs); err != nil {
		return nil, fmt.Errorf("decode clobTokenIds %q: %w", m.ClobTokenIDs, err)
	}

	if len(outcomes) != len(tokenIDs) {
		return nil, fmt.Errorf("outcomes/token count mismatch: %d vs %d", len(outcomes), len(tokenIDs))
	}

	mapping := make(domain.TokenOutcomes, len(tokenIDs))
	for i, tokenID := range tokenIDs {
		if tokenID == "" {
			continue
		}
		mapping[tokenID] = m.Question + " - " + outcomes[i]
	}
	return mapping, nil
}
