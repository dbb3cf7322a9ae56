// Package redis is the alternative replication state backend: the copied
// ticket set lives in a Redis set and closed master trades in a capped list.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/JabirHus/NCTB/internal/exception"
	"github.com/JabirHus/NCTB/internal/models"
	goredis "github.com/go-redis/redis/v8"
)

const closedTradesMaxLen = 10000

type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type TicketStore struct {
	client *goredis.Client
	prefix string
}

// New connects and pings the server.
func New(cfg Config) (*TicketStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: redis ping: %v", exception.ErrPersistence, err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "nctb"
	}
	return &TicketStore{client: client, prefix: prefix}, nil
}

// Ping reports whether the server is reachable. It backs the /healthz check.
func (s *TicketStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: redis ping: %v", exception.ErrPersistence, err)
	}
	return nil
}

func (s *TicketStore) Close() error { return s.client.Close() }

func (s *TicketStore) ticketsKey() string { return s.prefix + ":copied_tickets" }

func (s *TicketStore) closedKey() string { return s.prefix + ":closed_master_trades" }

func (s *TicketStore) LoadCopiedTickets(ctx context.Context) ([]int64, error) {
	members, err := s.client.SMembers(ctx, s.ticketsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: load tickets: %v", exception.ErrPersistence, err)
	}
	out := make([]int64, 0, len(members))
	for _, m := range members {
		t, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad ticket %q", exception.ErrPersistence, m)
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// SaveCopiedTickets replaces the set atomically.
func (s *TicketStore) SaveCopiedTickets(ctx context.Context, tickets []int64) error {
	key := s.ticketsKey()
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(tickets) == 0 {
			return nil
		}
		members := make([]interface{}, len(tickets))
		for i, t := range tickets {
			members[i] = strconv.FormatInt(t, 10)
		}
		pipe.SAdd(ctx, key, members...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: save tickets: %v", exception.ErrPersistence, err)
	}
	return nil
}

func (s *TicketStore) AppendClosedTrade(ctx context.Context, trade models.ClosedTrade) error {
	if trade.ClosedAt.IsZero() {
		trade.ClosedAt = time.Now().UTC()
	}
	data, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("%w: encode closed trade: %v", exception.ErrPersistence, err)
	}

	key := s.closedKey()
	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, closedTradesMaxLen-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: append closed trade: %v", exception.ErrPersistence, err)
	}
	return nil
}

// ClosedTrades returns the newest closed master trades first.
func (s *TicketStore) ClosedTrades(ctx context.Context, limit int) ([]models.ClosedTrade, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	raw, err := s.client.LRange(ctx, s.closedKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: closed trades: %v", exception.ErrPersistence, err)
	}
	out := make([]models.ClosedTrade, 0, len(raw))
	for _, r := range raw {
		var tr models.ClosedTrade
		if err := json.Unmarshal([]byte(r), &tr); err != nil {
			return nil, fmt.Errorf("%w: decode closed trade: %v", exception.ErrPersistence, err)
		}
		out = append(out, tr)
	}
	return out, nil
}
