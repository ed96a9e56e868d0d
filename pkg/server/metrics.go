package server

import (
	"time"

	"github.com/vango-dev/poolserve/pkg/workerpool"
)

// ServerStats is a point-in-time view of a server.
type ServerStats struct {
	State   string `json:"state"`
	Address string `json:"address"`
	Store   string `json:"store,omitempty"`

	// Connections
	Accepted int64 `json:"accepted"`
	Served   int64 `json:"served"`
	NotFound int64 `json:"notFound"`
	Failed   int64 `json:"failed"`

	// Pool
	Pool workerpool.Stats `json:"pool"`

	StartedAt   time.Time `json:"startedAt"`
	CollectedAt time.Time `json:"collectedAt"`
}

// Stats collects and returns server statistics.
func (s *Server) Stats() *ServerStats {
	stats := &ServerStats{
		State:       s.State().String(),
		Address:     s.config.Address,
		Accepted:    s.accepted.Load(),
		Served:      s.served.Load(),
		NotFound:    s.notFound.Load(),
		Failed:      s.failed.Load(),
		StartedAt:   s.startedAt,
		CollectedAt: time.Now(),
	}

	s.mu.Lock()
	if s.listener != nil {
		stats.Address = s.listener.Addr().String()
	}
	if s.store != nil {
		stats.Store = s.store.String()
	}
	pool := s.pool
	s.mu.Unlock()

	if pool != nil {
		stats.Pool = pool.Stats()
	}
	return stats
}
