package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/JabirHus/NCTB/internal/exception"
	"github.com/JabirHus/NCTB/internal/models"
)

// Bars returns up to count bars oldest first. Each row is
// [openTimeMs, open, high, low, close, volume].
func (c *Client) Bars(ctx context.Context, symbol, timeframe string, count int) ([]models.Bar, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("timeframe", timeframe)
	params.Set("count", strconv.Itoa(count))

	var resp bridgeResponse[listResult[[]string]]
	if err := c.doRequest(ctx, http.MethodGet, "/v1/market/bars", params, nil, "", &resp); err != nil {
		return nil, err
	}
	if len(resp.Result.List) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, exception.ErrNotEnoughBars)
	}

	bars := make([]models.Bar, 0, len(resp.Result.List))
	for _, row := range resp.Result.List {
		if len(row) < 6 {
			return nil, fmt.Errorf("%s: malformed bar row %v", symbol, row)
		}
		tsMs, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: bar time %q: %w", symbol, row[0], err)
		}
		vals := make([]float64, 5)
		for i := range vals {
			v, err := strconv.ParseFloat(row[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("%s: bar value %q: %w", symbol, row[i+1], err)
			}
			vals[i] = v
		}
		bars = append(bars, models.Bar{
			Time:   time.UnixMilli(tsMs),
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
		})
	}
	return bars, nil
}

func (c *Client) LatestTick(ctx context.Context, symbol string) (models.Tick, error) {
	return c.latestTick(ctx, symbol, "")
}

func (c *Client) latestTick(ctx context.Context, symbol, token string) (models.Tick, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var resp bridgeResponse[tickInfo]
	if err := c.doRequest(ctx, http.MethodGet, "/v1/market/tick", params, nil, token, &resp); err != nil {
		return models.Tick{}, err
	}
	return parseTick(symbol, resp.Result)
}

func parseTick(symbol string, info tickInfo) (models.Tick, error) {
	bid, err := parseFloatOrZero(info.Bid)
	if err != nil {
		return models.Tick{}, fmt.Errorf("%s: bid %q: %w", symbol, info.Bid, err)
	}
	ask, err := parseFloatOrZero(info.Ask)
	if err != nil {
		return models.Tick{}, fmt.Errorf("%s: ask %q: %w", symbol, info.Ask, err)
	}
	if bid <= 0 || ask <= 0 {
		return models.Tick{}, fmt.Errorf("%s: %w", symbol, exception.ErrNoMarketData)
	}
	return models.Tick{Symbol: symbol, Bid: bid, Ask: ask, Time: time.UnixMilli(info.Time)}, nil
}

func (c *Client) symbolInfo(ctx context.Context, symbol, token string) (models.Instrument, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var resp bridgeResponse[symbolInfo]
	if err := c.doRequest(ctx, http.MethodGet, "/v1/symbols/info", params, nil, token, &resp); err != nil {
		return models.Instrument{}, err
	}
	info := resp.Result
	if info.Symbol == "" {
		return models.Instrument{}, fmt.Errorf("%s: %w", symbol, exception.ErrUnknownSymbol)
	}

	point, err := parseFloatOrZero(info.Point)
	if err != nil {
		return models.Instrument{}, fmt.Errorf("invalid point=%q: %w", info.Point, err)
	}
	minVol, err := parseFloatOrZero(info.VolumeMin)
	if err != nil {
		return models.Instrument{}, fmt.Errorf("invalid volumeMin=%q: %w", info.VolumeMin, err)
	}
	step, err := parseFloatOrZero(info.VolumeStep)
	if err != nil {
		return models.Instrument{}, fmt.Errorf("invalid volumeStep=%q: %w", info.VolumeStep, err)
	}
	maxVol, err := parseFloatOrZero(info.VolumeMax)
	if err != nil {
		return models.Instrument{}, fmt.Errorf("invalid volumeMax=%q: %w", info.VolumeMax, err)
	}

	return models.Instrument{
		Symbol:     info.Symbol,
		Digits:     info.Digits,
		Point:      point,
		VolumeMin:  minVol,
		VolumeStep: step,
		VolumeMax:  maxVol,
		Visible:    info.Visible,
	}, nil
}

func (c *Client) symbols(ctx context.Context, token string) ([]string, error) {
	var resp bridgeResponse[listResult[string]]
	if err := c.doRequest(ctx, http.MethodGet, "/v1/symbols", nil, nil, token, &resp); err != nil {
		return nil, err
	}
	return resp.Result.List, nil
}

func (c *Client) selectSymbol(ctx context.Context, symbol, token string) error {
	body := map[string]any{
		"symbol": symbol,
		"enable": true,
	}
	var resp bridgeResponse[struct{}]
	if err := c.doRequest(ctx, http.MethodPost, "/v1/symbols/select", nil, body, token, &resp); err != nil {
		return fmt.Errorf("select %s: %w: %w", symbol, exception.ErrSymbolUnavailable, err)
	}
	return nil
}
