package rest

import (
	"net/http"

	"github.com/JabirHus/NCTB/internal/logger"
)

type Client struct {
	baseURL    string
	apiKey     string
	secret     string
	httpClient *http.Client
	log        *logger.Logger
}

type bridgeResponse[T any] struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  T      `json:"result"`
	Time    int64  `json:"time"`
}

func (r *bridgeResponse[T]) status() (int, string) { return r.RetCode, r.RetMsg }

// envelope is implemented by every response body decoded by doRequest.
type envelope interface {
	status() (int, string)
}

type listResult[T any] struct {
	List []T `json:"list"`
}

type symbolInfo struct {
	Symbol     string `json:"symbol"`
	Digits     int    `json:"digits"`
	Point      string `json:"point"`
	VolumeMin  string `json:"volumeMin"`
	VolumeStep string `json:"volumeStep"`
	VolumeMax  string `json:"volumeMax"`
	Visible    bool   `json:"visible"`
}

type tickInfo struct {
	Symbol string `json:"symbol"`
	Bid    string `json:"bid"`
	Ask    string `json:"ask"`
	Time   int64  `json:"time"`
}

type positionInfo struct {
	Ticket     int64  `json:"ticket"`
	Login      int64  `json:"login"`
	Symbol     string `json:"symbol"`
	Side       string `json:"side"`
	Volume     string `json:"volume"`
	PriceOpen  string `json:"priceOpen"`
	StopLoss   string `json:"sl"`
	TakeProfit string `json:"tp"`
	Magic      int64  `json:"magic"`
	Comment    string `json:"comment"`
	Time       int64  `json:"time"`
}

type orderResult struct {
	RetCode int    `json:"retcode"`
	Comment string `json:"comment"`
	Order   int64  `json:"order"`
	Deal    int64  `json:"deal"`
	Volume  string `json:"volume"`
	Price   string `json:"price"`
}
