// Package entropy supplies the random sources the engine draws from: a
// seedable generator for reproducible runs and tests, crypto/rand for
// unseeded runs, and an optional random.org pool.
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

// Source is the minimal random interface the engine needs.
// *math/rand.Rand satisfies it.
type Source interface {
	Float64() float64
	Intn(n int) int
}

// NewSeeded returns a deterministic source.
func NewSeeded(seed int64) *mrand.Rand {
	return mrand.New(mrand.NewSource(seed))
}

// NewSeed draws a seed from crypto/rand.
func NewSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
}

// Crypto draws from crypto/rand on every call.
type Crypto struct{}

// Float64 returns a uniform float in [0, 1).
func (Crypto) Float64() float64 {
	return cryptoFloat()
}

// Intn returns a uniform int in [0, n). Panics if n <= 0, like math/rand.
func (Crypto) Intn(n int) int {
	return intn(cryptoFloat(), n)
}

const randomOrgURL = "https://api.random.org/json-rpc/4/invoke"

// Pool serves floats from random.org, refilling a local buffer when low.
// Falls back to crypto/rand when the API is unavailable.
type Pool struct {
	apiKey   string
	endpoint string
	client   *http.Client

	mu   sync.Mutex
	pool []float64
}

// NewPool creates a random.org pool. Returns nil if apiKey is empty.
func NewPool(apiKey string) *Pool {
	if apiKey == "" {
		return nil
	}
	return &Pool{
		apiKey:   apiKey,
		endpoint: randomOrgURL,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Float64 returns a random float in [0, 1).
func (p *Pool) Float64() float64 {
	if p == nil {
		return cryptoFloat()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.pool) < 10 {
		p.refill()
	}
	if len(p.pool) == 0 {
		return cryptoFloat()
	}

	v := p.pool[0]
	p.pool = p.pool[1:]
	return v
}

// Intn returns a random int in [0, n).
func (p *Pool) Intn(n int) int {
	return intn(p.Float64(), n)
}

// Enabled reports whether the pool has an API key.
func (p *Pool) Enabled() bool {
	return p != nil && p.apiKey != ""
}

func (p *Pool) refill() {
	req := map[string]any{
		"jsonrpc": "2.0",
		"method":  "generateDecimalFractions",
		"params": map[string]any{
			"apiKey":        p.apiKey,
			"n":             100,
			"decimalPlaces": 6,
		},
		"id": 1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		slog.Debug("random.org marshal failed", "error", err)
		return
	}

	resp, err := p.client.Post(p.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		slog.Debug("random.org fetch failed", "error", err)
		return
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Debug("random.org read failed", "error", err)
		return
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
	if err := json.Unmarshal(raw, &result); err != nil {
		slog.Debug("random.org parse failed", "error", err)
		return
	}
	if result.Error != nil {
		slog.Debug("random.org API error", "error", result.Error.Message)
		return
	}

	p.pool = append(p.pool, result.Result.Random.Data...)
	slog.Debug("random.org pool refilled", "count", len(result.Result.Random.Data))
}

func cryptoFloat() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0.5
	}
	// 53 bits for a uniform float64 in [0, 1).
	n := binary.LittleEndian.Uint64(buf[:]) >> 11
	return float64(n) / float64(1<<53)
}

func intn(f float64, n int) int {
	if n <= 0 {
		panic("entropy: invalid argument to Intn")
	}
	i := int(f * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}
