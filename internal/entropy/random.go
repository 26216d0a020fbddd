// Package entropy provides the random sources behind every probabilistic roll
// in the simulation. Callers depend on Source so tests can script outcomes.
package entropy

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"io"
	"log/slog"
	mrand "math/rand"
	"net/http"
	"sync"
	"time"
)

// Source yields uniform floats in [0, 1).
type Source interface {
	Float64() float64
}

// Seeded is a deterministic Source backed by math/rand.
type Seeded struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// NewSeeded returns a Source that replays the same sequence for the same seed.
func NewSeeded(seed int64) *Seeded {
	return &Seeded{rng: mrand.New(mrand.NewSource(seed))}
}

func (s *Seeded) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// Crypto is a Source backed by crypto/rand.
type Crypto struct{}

func (Crypto) Float64() float64 {
	return cryptoRandFloat()
}

// Client provides true random numbers from random.org with a local pool.
type Client struct {
	apiKey string
	client *http.Client

	mu        sync.Mutex
	pool      []float64
	refilling bool
}

// NewClient creates a random.org client. Returns nil if apiKey is empty.
func NewClient(apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey: apiKey,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Float64 returns a random float64 in [0, 1) from the pool. When the pool runs
// low a refill starts in the background; until it lands, or if random.org
// fails, values come from crypto/rand. It never waits on the network.
func (c *Client) Float64() float64 {
	if c == nil {
		return cryptoRandFloat()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pool) < 10 && !c.refilling {
		c.refilling = true
		go c.refill()
	}

	if len(c.pool) == 0 {
		return cryptoRandFloat()
	}

	val := c.pool[0]
	c.pool = c.pool[1:]
	return val
}

// refill fetches a batch without holding the lock, then appends it.
func (c *Client) refill() {
	vals := c.fetch()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pool = append(c.pool, vals...)
	c.refilling = false
}

func (c *Client) fetch() []float64 {
	req := map[string]any{
		"jsonrpc": "2.0",
		"method":  "generateDecimalFractions",
		"params": map[string]any{
			"apiKey":        c.apiKey,
			"n":             100,
			"decimalPlaces": 6,
		},
		"id": 1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		slog.Debug("random.org marshal failed", "error", err)
		return nil
	}

	resp, err := c.client.Post("https://api.random.org/json-rpc/4/invoke", "application/json", bytes.NewReader(body))
	if err != nil {
		slog.Debug("random.org fetch failed", "error", err)
		return nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Debug("random.org read failed", "error", err)
		return nil
	}

	var result struct {
		Result struct {
			Random struct {
				Data []float64 `json:"data"`
			} `json:"random"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(respBody, &result); err != nil {
		slog.Debug("random.org parse failed", "error", err)
		return nil
	}

	if result.Error != nil {
		slog.Debug("random.org API error", "error", result.Error.Message)
		return nil
	}

	// random.org fractions are in [0,1] inclusive; 1.0 would break the [0,1) contract.
	vals := make([]float64, 0, len(result.Result.Random.Data))
	for _, v := range result.Result.Random.Data {
		if v < 1 {
			vals = append(vals, v)
		}
	}
	slog.Debug("random.org pool refilled", "count", len(vals))
	return vals
}

// Enabled returns true if the client has a valid API key.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// cryptoRandFloat generates a random float64 using crypto/rand.
func cryptoRandFloat() float64 {
	var buf [8]byte
	_, err := rand.Read(buf[:])
	if err != nil {
		return 0.5
	}
	// Use only 53 bits for a uniform float64 in [0, 1).
	n := binary.LittleEndian.Uint64(buf[:]) >> 11
	return float64(n) / float64(1<<53)
}

// IntN returns floor(r*n) for one draw r, an integer in [0, n).
func IntN(src Source, n int) int {
	if n <= 0 {
		return 0
	}
	return int(src.Float64() * float64(n))
}

// Between returns a uniform float in [lo, hi) from one draw.
func Between(src Source, lo, hi float64) float64 {
	return lo + src.Float64()*(hi-lo)
}

// Sequence replays fixed values in order, then Fallback forever.
// It lets callers force specific roll outcomes.
type Sequence struct {
	Values   []float64
	Fallback float64

	mu sync.Mutex
	i  int
}

func (s *Sequence) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.i < len(s.Values) {
		v := s.Values[s.i]
		s.i++
		return v
	}
	return s.Fallback
}

// Drawn reports how many scripted values have been consumed.
func (s *Sequence) Drawn() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.i
}
