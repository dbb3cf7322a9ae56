package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/JabirHus/NCTB/internal/exception"
	"github.com/JabirHus/NCTB/internal/exchange"
	"github.com/JabirHus/NCTB/internal/models"
	"github.com/pquerna/otp/totp"
)

// Session is one authenticated account on the bridge.
type Session struct {
	client *Client
	login  int64
	token  string
}

var _ exchange.Session = (*Session)(nil)

// Login opens a bridge session. Accounts with a TOTP secret send the current
// one-time code as the second factor.
func (c *Client) Login(ctx context.Context, creds models.Credentials) (*Session, error) {
	body := map[string]any{
		"login":    creds.Login,
		"password": creds.Password,
		"server":   creds.Server,
	}
	if creds.TOTPSecret != "" {
		code, err := totp.GenerateCode(creds.TOTPSecret, time.Now())
		if err != nil {
			return nil, fmt.Errorf("login %d: totp: %w: %v", creds.Login, exception.ErrConfiguration, err)
		}
		body["otp"] = code
	}

	var resp bridgeResponse[struct {
		Token string `json:"token"`
	}]
	if err := c.doRequest(ctx, http.MethodPost, "/v1/session", nil, body, "", &resp); err != nil {
		return nil, fmt.Errorf("login %d: %w: %w", creds.Login, exception.ErrAuthFailed, err)
	}
	if resp.Result.Token == "" {
		return nil, fmt.Errorf("login %d: empty token: %w", creds.Login, exception.ErrAuthFailed)
	}

	c.logEntry().WithField("login", creds.Login).Debug("bridge session opened")
	return &Session{client: c, login: creds.Login, token: resp.Result.Token}, nil
}

// Shutdown closes every bridge session held by this API key.
func (c *Client) Shutdown(ctx context.Context) error {
	var resp bridgeResponse[struct{}]
	return c.doRequest(ctx, http.MethodPost, "/v1/shutdown", nil, nil, "", &resp)
}

func (s *Session) Login() int64 { return s.login }

func (s *Session) Symbols(ctx context.Context) ([]string, error) {
	return s.client.symbols(ctx, s.token)
}

func (s *Session) SymbolInfo(ctx context.Context, symbol string) (models.Instrument, error) {
	return s.client.symbolInfo(ctx, symbol, s.token)
}

func (s *Session) SelectSymbol(ctx context.Context, symbol string) error {
	return s.client.selectSymbol(ctx, symbol, s.token)
}

func (s *Session) LatestTick(ctx context.Context, symbol string) (models.Tick, error) {
	return s.client.latestTick(ctx, symbol, s.token)
}

func (s *Session) Positions(ctx context.Context, symbol string) ([]models.Position, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", symbol)
	}

	var resp bridgeResponse[listResult[positionInfo]]
	if err := s.client.doRequest(ctx, http.MethodGet, "/v1/positions", params, nil, s.token, &resp); err != nil {
		return nil, err
	}

	positions := make([]models.Position, 0, len(resp.Result.List))
	for _, item := range resp.Result.List {
		volume, _ := parseFloatOrZero(item.Volume)
		open, _ := parseFloatOrZero(item.PriceOpen)
		sl, _ := parseFloatOrZero(item.StopLoss)
		tp, _ := parseFloatOrZero(item.TakeProfit)

		login := item.Login
		if login == 0 {
			login = s.login
		}
		positions = append(positions, models.Position{
			Ticket:     item.Ticket,
			Login:      login,
			Symbol:     item.Symbol,
			Side:       models.Side(item.Side),
			Volume:     volume,
			PriceOpen:  open,
			StopLoss:   sl,
			TakeProfit: tp,
			Magic:      item.Magic,
			Comment:    item.Comment,
			OpenTime:   time.UnixMilli(item.Time),
		})
	}
	return positions, nil
}

func (s *Session) SendOrder(ctx context.Context, req models.OrderRequest) (*models.OrderResult, error) {
	body := map[string]any{
		"action":    req.Action,
		"symbol":    req.Symbol,
		"side":      req.Side,
		"volume":    formatWithStep(req.Volume, 0),
		"price":     formatWithStep(req.Price, 0),
		"deviation": req.Deviation,
		"magic":     req.Magic,
		"comment":   req.Comment,
		"filling":   req.Filling,
	}
	if req.StopLoss > 0 {
		body["sl"] = formatWithStep(req.StopLoss, 0)
	}
	if req.TakeProfit > 0 {
		body["tp"] = formatWithStep(req.TakeProfit, 0)
	}
	if req.Position != 0 {
		body["position"] = req.Position
	}
	if req.LinkID != "" {
		body["linkId"] = req.LinkID
	}

	var resp bridgeResponse[orderResult]
	if err := s.client.doRequest(ctx, http.MethodPost, "/v1/orders", nil, body, s.token, &resp); err != nil {
		return nil, err
	}

	volume, _ := parseFloatOrZero(resp.Result.Volume)
	price, _ := parseFloatOrZero(resp.Result.Price)
	return &models.OrderResult{
		RetCode: resp.Result.RetCode,
		Comment: resp.Result.Comment,
		Order:   resp.Result.Order,
		Deal:    resp.Result.Deal,
		Volume:  volume,
		Price:   price,
	}, nil
}
