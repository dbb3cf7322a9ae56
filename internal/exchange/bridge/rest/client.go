package rest

import (
	"net/http"
	"time"

	"github.com/JabirHus/NCTB/internal/logger"
	"github.com/sirupsen/logrus"
)

func New(baseURL, apiKey, secret string, timeout time.Duration, log *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		secret:  secret,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

func (c *Client) logEntry() *logrus.Entry {
	return c.log.WithComponent("bridge_rest")
}
