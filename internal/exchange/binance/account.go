package binance

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// GetAccountBalance retrieves per-asset futures balances
func (c *Client) GetAccountBalance(ctx context.Context) ([]Balance, error) {
	var balances []Balance
	if err := c.private(ctx, http.MethodGet, pathBalance, url.Values{}, &balances); err != nil {
		return nil, err
	}
	return balances, nil
}

// GetAccountInfo retrieves the account summary including assets and positions
func (c *Client) GetAccountInfo(ctx context.Context) (*AccountInfo, error) {
	var info AccountInfo
	if err := c.private(ctx, http.MethodGet, pathAccount, url.Values{}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetPositionRisk retrieves position snapshots. An empty symbol returns all symbols.
func (c *Client) GetPositionRisk(ctx context.Context, symbol string) ([]PositionRisk, error) {
	params := url.Values{}
	if symbol = strings.ToUpper(strings.TrimSpace(symbol)); symbol != "" {
		params.Set("symbol", symbol)
	}

	var positions []PositionRisk
	if err := c.private(ctx, http.MethodGet, pathPositionRisk, params, &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

// FindPosition returns the first snapshot for symbol
func FindPosition(positions []PositionRisk, symbol string) (*PositionRisk, bool) {
	for i := range positions {
		if positions[i].Symbol == symbol {
			return &positions[i], true
		}
	}
	return nil, false
}
