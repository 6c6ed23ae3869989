package dhcpident

import (
	"context"
	"sync"
	"time"

	"grimm.is/l2bridge/internal/logging"
)

// SnifferConfig holds the configuration for the DHCP sniffer.
type SnifferConfig struct {
	// Interfaces are the OS link names to listen on.
	Interfaces []string
	// PruneInterval is how often expired identities are dropped.
	// Zero means once a minute.
	PruneInterval time.Duration
}

// Sniffer passively captures DHCP client broadcasts and feeds the Cache.
// It only observes and never responds.
type Sniffer struct {
	config SnifferConfig
	cache  *Cache
	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *logging.Logger
}

// NewSniffer creates a sniffer that learns into cache.
func NewSniffer(cfg SnifferConfig, cache *Cache) *Sniffer {
	if cfg.PruneInterval <= 0 {
		cfg.PruneInterval = time.Minute
	}
	return &Sniffer{
		config: cfg,
		cache:  cache,
		logger: logging.WithComponent("dhcp-sniffer"),
	}
}

// Stop stops all listeners and waits for them to exit.
func (s *Sniffer) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("stopped")
}

func (s *Sniffer) prune(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.cache.Prune(); n > 0 {
				s.logger.Debug("Pruned expired identities", "count", n)
			}
		}
	}
}
