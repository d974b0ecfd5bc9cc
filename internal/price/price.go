package price

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.geckoterminal.com/api/v2"

// PoolPrice holds one pool snapshot from the feed.
type PoolPrice struct {
	Name            string
	BaseTokenUSD    float64
	QuoteTokenUSD   float64
	Volume24hUSD    float64
	Transactions24h int
	ReserveUSD      float64
	FetchedAt       time.Time
}

// Rate is the price of the base token expressed in the quote token.
func (p PoolPrice) Rate() float64 {
	if p.QuoteTokenUSD == 0 {
		return 0
	}
	return p.BaseTokenUSD / p.QuoteTokenUSD
}

// Client fetches pool data from the GeckoTerminal API.
type Client struct {
	baseURL string
	network string
	http    *http.Client
}

func NewClient(network string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		network: network,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type poolResponse struct {
	Data struct {
		Attributes struct {
			Name              string `json:"name"`
			BaseTokenPriceUSD string `json:"base_token_price_usd"`
			QuoteTokenPrice   string `json:"quote_token_price_usd"`
			VolumeUSD         struct {
				H24 string `json:"h24"`
			} `json:"volume_usd"`
			Transactions struct {
				H24 struct {
					Buys  int `json:"buys"`
					Sells int `json:"sells"`
				} `json:"h24"`
			} `json:"transactions"`
			ReserveInUSD string `json:"reserve_in_usd"`
		} `json:"attributes"`
	} `json:"data"`
}

// FetchPool retrieves the current snapshot for one pool address.
func (c *Client) FetchPool(ctx context.Context, poolAddress string) (*PoolPrice, error) {
	url := fmt.Sprintf("%s/networks/%s/pools/%s", c.baseURL, c.network, poolAddress)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build pool request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pool %s: %w", poolAddress, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pool request returned status %d", resp.StatusCode)
	}

	var decoded poolResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to parse pool response: %w", err)
	}

	attrs := decoded.Data.Attributes
	baseUSD, err := strconv.ParseFloat(attrs.BaseTokenPriceUSD, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid base token price %q: %w", attrs.BaseTokenPriceUSD, err)
	}
	quoteUSD, err := strconv.ParseFloat(attrs.QuoteTokenPrice, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid quote token price %q: %w", attrs.QuoteTokenPrice, err)
	}
	volume, _ := strconv.ParseFloat(attrs.VolumeUSD.H24, 64)
	reserve, _ := strconv.ParseFloat(attrs.ReserveInUSD, 64)

	return &PoolPrice{
		Name:            attrs.Name,
		BaseTokenUSD:    baseUSD,
		QuoteTokenUSD:   quoteUSD,
		Volume24hUSD:    volume,
		Transactions24h: attrs.Transactions.H24.Buys + attrs.Transactions.H24.Sells,
		ReserveUSD:      reserve,
		FetchedAt:       time.Now().UTC(),
	}, nil
}

type poolRef struct {
	address  string
	inverted bool
}

// Cetus pools on Sui with both pair orientations. The feed quotes each pool
// one way; inverted entries flip the rate.
var knownPools = map[string]poolRef{
	"USDC/SUI": {address: "0x51e883ba7c0b566a26cbc8a94cd33eb0abd418a77cc1e60ad22fd9b1f29cd2ab"},
	"SUI/USDC": {address: "0x51e883ba7c0b566a26cbc8a94cd33eb0abd418a77cc1e60ad22fd9b1f29cd2ab", inverted: true},
	"WAL/SUI":  {address: "0xf4238fa592c9ed7f148fd091cb2c4147cb15ad81b797115ce42971923ebf6e4c"},
	"SUI/WAL":  {address: "0xf4238fa592c9ed7f148fd091cb2c4147cb15ad81b797115ce42971923ebf6e4c", inverted: true},
	"DEEP/SUI": {address: "0xd978d331772a5b90d5a4781e1232d18afd12019d0c35db79e3674beeda8f9126"},
	"SUI/DEEP": {address: "0xd978d331772a5b90d5a4781e1232d18afd12019d0c35db79e3674beeda8f9126", inverted: true},
}

// LookupPool resolves a pair symbol like "SUI/USDC" to a pool address and
// orientation.
func LookupPool(pair string) (string, bool, bool) {
	ref, ok := knownPools[strings.ToUpper(strings.TrimSpace(pair))]
	return ref.address, ref.inverted, ok
}
