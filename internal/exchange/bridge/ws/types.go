package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/JabirHus/NCTB/internal/logger"
	"github.com/JabirHus/NCTB/internal/models"
	"github.com/gorilla/websocket"
)

// Client keeps the latest quote per subscribed symbol from the bridge tick stream.
type Client struct {
	url          string
	apiKey       string
	secret       string
	log          *logger.Logger
	connMu       sync.Mutex
	conn         *websocket.Conn
	stopCh       chan struct{}
	stopOnce     sync.Once
	symbols      []string
	reconnectMin time.Duration
	reconnectMax time.Duration

	mu    sync.RWMutex
	ticks map[string]models.Tick

	onReconnect func()
}

type Message struct {
	Topic string          `json:"topic"`
	Type  string          `json:"type"`
	TS    int64           `json:"ts"`
	Data  json.RawMessage `json:"data"`
}

type AuthMessage struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}

type SubscribeMessage struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}
