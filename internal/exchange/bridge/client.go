// Package bridge adapts the trading terminal bridge service to the exchange
// interfaces: signed REST calls for sessions and orders, and an optional
// WebSocket tick stream that serves quotes from memory.
package bridge

import (
	"context"
	"time"

	"github.com/JabirHus/NCTB/internal/exchange"
	"github.com/JabirHus/NCTB/internal/exchange/bridge/rest"
	"github.com/JabirHus/NCTB/internal/exchange/bridge/ws"
	"github.com/JabirHus/NCTB/internal/logger"
	"github.com/JabirHus/NCTB/internal/models"
)

// tickMaxAge bounds how stale a streamed quote may be before REST is used.
const tickMaxAge = 5 * time.Second

type Client struct {
	rest *rest.Client
	ws   *ws.Client
	log  *logger.Logger
}

var _ exchange.Broker = (*Client)(nil)

func New(baseURL, wsURL, apiKey, secret string, timeout time.Duration, log *logger.Logger) *Client {
	c := &Client{
		rest: rest.New(baseURL, apiKey, secret, timeout, log),
		log:  log,
	}
	if wsURL != "" {
		c.ws = ws.New(wsURL, apiKey, secret, log)
	}
	return c
}

// StartTicks connects the tick stream for symbols. Without a stream URL it is
// a no-op and quotes come from REST.
func (c *Client) StartTicks(ctx context.Context, symbols []string) error {
	if c.ws == nil {
		return nil
	}
	return c.ws.Connect(ctx, symbols)
}

// OnReconnect registers fn to run after the tick stream reconnects. Call it
// before StartTicks.
func (c *Client) OnReconnect(fn func()) {
	if c.ws != nil {
		c.ws.OnReconnect(fn)
	}
}

func (c *Client) Close() error {
	if c.ws == nil {
		return nil
	}
	return c.ws.Close()
}

func (c *Client) Login(ctx context.Context, creds models.Credentials) (exchange.Session, error) {
	s, err := c.rest.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	return &session{Session: s, ticks: c}, nil
}

func (c *Client) Shutdown(ctx context.Context) error {
	return c.rest.Shutdown(ctx)
}

func (c *Client) Bars(ctx context.Context, symbol, timeframe string, count int) ([]models.Bar, error) {
	return c.rest.Bars(ctx, symbol, timeframe, count)
}

func (c *Client) LatestTick(ctx context.Context, symbol string) (models.Tick, error) {
	if tick, ok := c.streamed(symbol); ok {
		return tick, nil
	}
	return c.rest.LatestTick(ctx, symbol)
}

func (c *Client) streamed(symbol string) (models.Tick, bool) {
	if c.ws == nil {
		return models.Tick{}, false
	}
	return c.ws.Latest(symbol, tickMaxAge)
}

// session prefers streamed quotes over the REST tick endpoint.
type session struct {
	*rest.Session
	ticks *Client
}

func (s *session) LatestTick(ctx context.Context, symbol string) (models.Tick, error) {
	if tick, ok := s.ticks.streamed(symbol); ok {
		return tick, nil
	}
	return s.Session.LatestTick(ctx, symbol)
}
