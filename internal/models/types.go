package models

import "time"

type Side string
type OrderAction string
type FillingMode string
type AccountKind string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"

	ActionDeal OrderAction = "DEAL"

	FillingIOC FillingMode = "IOC"
	FillingFOK FillingMode = "FOK"

	AccountMaster AccountKind = "master"
	AccountSlave  AccountKind = "slave"
)

// RetCodeDone is the terminal return code for an accepted market order.
const RetCodeDone = 10009

func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

type Credentials struct {
	Login      int64  `json:"login" yaml:"login"`
	Password   string `json:"password" yaml:"password"`
	Server     string `json:"server" yaml:"server"`
	TOTPSecret string `json:"totp_secret,omitempty" yaml:"totp_secret,omitempty"`
}

type Instrument struct {
	Symbol     string  `json:"symbol"`
	Digits     int     `json:"digits"`
	Point      float64 `json:"point"`
	VolumeMin  float64 `json:"volume_min"`
	VolumeStep float64 `json:"volume_step"`
	VolumeMax  float64 `json:"volume_max"`
	Visible    bool    `json:"visible"`
}

type Tick struct {
	Symbol string    `json:"symbol"`
	Bid    float64   `json:"bid"`
	Ask    float64   `json:"ask"`
	Time   time.Time `json:"time"`
}

type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

type Position struct {
	Ticket     int64     `json:"ticket"`
	Login      int64     `json:"login"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Volume     float64   `json:"volume"`
	PriceOpen  float64   `json:"price_open"`
	StopLoss   float64   `json:"sl"`
	TakeProfit float64   `json:"tp"`
	Magic      int64     `json:"magic"`
	Comment    string    `json:"comment"`
	OpenTime   time.Time `json:"open_time"`
}

type OrderRequest struct {
	Action     OrderAction `json:"action"`
	Symbol     string      `json:"symbol"`
	Side       Side        `json:"side"`
	Volume     float64     `json:"volume"`
	Price      float64     `json:"price"`
	StopLoss   float64     `json:"sl,omitempty"`
	TakeProfit float64     `json:"tp,omitempty"`
	Deviation  int         `json:"deviation"`
	Magic      int64       `json:"magic"`
	Comment    string      `json:"comment"`
	Filling    FillingMode `json:"filling"`
	// Position targets an existing position for a close.
	Position int64  `json:"position,omitempty"`
	LinkID   string `json:"link_id,omitempty"`
}

type OrderResult struct {
	RetCode int     `json:"retcode"`
	Comment string  `json:"comment"`
	Order   int64   `json:"order"`
	Deal    int64   `json:"deal"`
	Volume  float64 `json:"volume"`
	Price   float64 `json:"price"`
}

func (r *OrderResult) Done() bool {
	return r != nil && r.RetCode == RetCodeDone
}

type TradeRecord struct {
	ID         int64     `json:"id"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Volume     float64   `json:"volume"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	ProfitLoss float64   `json:"profit_loss"`
	Ticket     int64     `json:"ticket"`
	Timestamp  time.Time `json:"timestamp"`
}

type ClosedTrade struct {
	Ticket   int64     `json:"ticket"`
	Symbol   string    `json:"symbol"`
	Side     Side      `json:"side"`
	Volume   float64   `json:"volume"`
	Reason   string    `json:"reason"`
	ClosedAt time.Time `json:"closed_at"`
}

// Accounts is the stored account set: at most one master and any number of
// slaves.
type Accounts struct {
	Master *Credentials  `json:"master,omitempty" yaml:"master,omitempty"`
	Slaves []Credentials `json:"slaves" yaml:"slaves"`
}
