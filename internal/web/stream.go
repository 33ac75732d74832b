package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &sseWriter{w: w, flusher: flusher}, true
}

func (s *sseWriter) event(name string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.w, "event: %s\n", name)
	fmt.Fprintf(s.w, "data: %s\n\n", payload)
	s.flusher.Flush()
	return nil
}

func (s *sseWriter) ping() {
	fmt.Fprint(s.w, ": ping\n\n")
	s.flusher.Flush()
}

func (s *Server) trackStream(stream string) func() {
	if s.deps.Streams == nil {
		return func() {}
	}
	return s.deps.Streams.StreamOpened(stream)
}

// handleSwapStream replays the journal and then polls it for new settlements.
func (s *Server) handleSwapStream(w http.ResponseWriter, r *http.Request) {
	if s.deps.Journal == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "swap journal not available"})
		return
	}

	// initial load happens before the status line is written
	records, err := s.deps.Journal.SettlementsAfter(0)
	if err != nil {
		s.logger.Error("swap stream initial load", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load swaps"})
		return
	}

	sse, ok := newSSEWriter(w)
	if !ok {
		return
	}
	defer s.trackStream("swap")()

	var lastIndex uint64
	for _, record := range records {
		if err := sse.event("swap", record.Settlement); err != nil {
			s.logger.Warn("swap stream encode", zap.Error(err))
			return
		}
		lastIndex = record.Index
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	poll := time.NewTicker(s.deps.PollInterval)
	defer poll.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			sse.ping()
		case <-poll.C:
			records, err := s.deps.Journal.SettlementsAfter(lastIndex)
			if err != nil {
				s.logger.Warn("swap stream poll", zap.Error(err))
				continue
			}
			for _, record := range records {
				if err := sse.event("swap", record.Settlement); err != nil {
					s.logger.Warn("swap stream encode", zap.Error(err))
					return
				}
				lastIndex = record.Index
			}
		}
	}
}

// handleBalanceStream forwards balance updates as they are published.
func (s *Server) handleBalanceStream(w http.ResponseWriter, r *http.Request) {
	if s.deps.BalanceFeed == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "balance stream not available"})
		return
	}

	sub := s.deps.BalanceFeed.Subscribe()
	defer s.deps.BalanceFeed.Unsubscribe(sub)

	sse, ok := newSSEWriter(w)
	if !ok {
		return
	}
	defer s.trackStream("balance")()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			sse.ping()
		case update, open := <-sub:
			if !open {
				return
			}
			if err := sse.event("balance", update); err != nil {
				s.logger.Warn("balance stream encode", zap.Error(err))
				return
			}
		}
	}
}
