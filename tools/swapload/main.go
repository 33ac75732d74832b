// Command swapload holds SSE subscribers open against a running engine while
// submitting swaps concurrently, and reports how the submissions ended.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/vadiminshakov/tokenswap/internal/domain"
)

type counters struct {
	connected   atomic.Int64
	connectErrs atomic.Int64
	events      atomic.Int64

	mu       sync.Mutex
	statuses map[string]int
}

func (c *counters) status(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[s]++
}

func (c *counters) summary() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	parts := make([]string, 0, len(c.statuses))
	for s, n := range c.statuses {
		parts = append(parts, fmt.Sprintf("%s=%d", s, n))
	}
	return strings.Join(parts, " ")
}

func main() {
	var (
		baseURL  string
		subs     int
		workers  int
		swaps    int
		duration time.Duration
		pairs    string
		amount   string
		perSec   float64
	)
	flag.StringVar(&baseURL, "url", "http://localhost:8080", "engine base URL")
	flag.IntVar(&subs, "subs", 100, "SSE subscribers per stream")
	flag.IntVar(&workers, "workers", 8, "concurrent swap submitters")
	flag.IntVar(&swaps, "swaps", 50, "swaps per submitter")
	flag.DurationVar(&duration, "dur", time.Minute, "upper bound on the run")
	flag.StringVar(&pairs, "pairs", "USD_ETH,ETH_USD,USD_ATOM,ATOM_USD", "comma separated FROM_TO pairs")
	flag.StringVar(&amount, "amount", "1", "amount sent per swap")
	flag.Float64Var(&perSec, "rate", 0, "swap submissions per second across all submitters, 0 for unlimited")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	requests, err := parsePairs(pairs, amount)
	if err != nil {
		logger.Fatal("invalid -pairs", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	client := &http.Client{Transport: &http.Transport{
		MaxConnsPerHost:     2*subs + workers + 10,
		MaxIdleConnsPerHost: 2*subs + workers + 10,
		DisableCompression:  true,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
	}}

	c := &counters{statuses: make(map[string]int)}
	start := time.Now()

	var streams sync.WaitGroup
	streamCtx, stopStreams := context.WithCancel(ctx)
	for i := 0; i < subs; i++ {
		for _, path := range []string{"/api/swaps/stream", "/api/balances/stream"} {
			streams.Add(1)
			go func(url string) {
				defer streams.Done()
				subscribe(streamCtx, client, url, c)
			}(baseURL + path)
		}
	}

	limit := rate.Inf
	if perSec > 0 {
		limit = rate.Limit(perSec)
	}
	limiter := rate.NewLimiter(limit, 1)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		rnd := rand.New(rand.NewSource(int64(w)))
		g.Go(func() error {
			for i := 0; i < swaps; i++ {
				if err := limiter.Wait(gctx); err != nil {
					return nil
				}
				status, err := submit(gctx, client, baseURL, requests[rnd.Intn(len(requests))])
				if err != nil {
					logger.Debug("submit", zap.Error(err))
					c.status("transport_error")
					continue
				}
				c.status(status)
			}
			return nil
		})
	}

	_ = g.Wait()
	// let the last settlements reach the subscribers
	time.Sleep(3 * time.Second)
	stopStreams()
	streams.Wait()

	logger.Info("done",
		zap.Int64("connected", c.connected.Load()),
		zap.Int64("connect_errs", c.connectErrs.Load()),
		zap.Int64("events", c.events.Load()),
		zap.String("statuses", c.summary()),
		zap.Duration("elapsed", time.Since(start).Truncate(time.Millisecond)))
}

func parsePairs(list, amount string) ([]domain.SwapRequest, error) {
	var out []domain.SwapRequest
	for _, p := range strings.Split(list, ",") {
		from, to, ok := strings.Cut(strings.TrimSpace(p), "_")
		if !ok || from == "" || to == "" {
			return nil, fmt.Errorf("pair %q is not FROM_TO", p)
		}
		out = append(out, domain.SwapRequest{From: from, To: to, Amount: amount})
	}
	return out, nil
}

func submit(ctx context.Context, client *http.Client, baseURL string, req domain.SwapRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/swaps", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var settlement domain.Settlement
	if err := json.NewDecoder(resp.Body).Decode(&settlement); err != nil || settlement.Status == "" {
		return fmt.Sprintf("http_%d", resp.StatusCode), nil
	}
	return string(settlement.Status), nil
}

func subscribe(ctx context.Context, client *http.Client, url string, c *counters) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.connectErrs.Add(1)
		return
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(req)
	if err != nil {
		c.connectErrs.Add(1)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.connectErrs.Add(1)
		return
	}
	c.connected.Add(1)

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		if strings.HasPrefix(line, "event: ") {
			c.events.Add(1)
		}
	}
}
