package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	boterrors "github.com/ducminhle1904/futures-threshold-bot/internal/errors"
)

// GetServerTime returns the exchange clock. Public endpoint.
func (c *Client) GetServerTime(ctx context.Context) (time.Time, error) {
	var resp serverTimeResponse
	if err := c.public(ctx, http.MethodGet, pathServerTime, nil, &resp); err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(resp.ServerTime), nil
}

// GetTickerPrice returns the last traded price for symbol. Public endpoint.
func (c *Client) GetTickerPrice(ctx context.Context, symbol string) (*TickerPrice, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, boterrors.NewValidationError(component, "GetTickerPrice", "symbol is required")
	}

	params := url.Values{}
	params.Set("symbol", symbol)

	var ticker TickerPrice
	if err := c.public(ctx, http.MethodGet, pathTickerPrice, params, &ticker); err != nil {
		return nil, err
	}
	if !ticker.Price.IsPositive() {
		return nil, boterrors.NewDecodeError(component, "GetTickerPrice",
			fmt.Errorf("ticker for %s has no positive price", symbol))
	}
	return &ticker, nil
}
