package main

import (
	"log"
	"sync"
	"time"

	"github.com/go-ping/ping"
)

const STATS_COLLECT_INTERVAL = 30 * time.Second

// Stats holds runtime figures served by /api/stats. The collector goroutine
// refreshes the reachability probe; everything else is computed on read.
type Stats struct {
	mu        sync.RWMutex
	startedAt time.Time
	pingHost  string
	pingRTT   time.Duration
	pingOK    bool
}

func NewStats(pingHost string) *Stats {
	return &Stats{startedAt: time.Now(), pingHost: pingHost}
}

// Run probes the configured host periodically until the process exits.
// Started as a goroutine from main.
func (s *Stats) Run() {
	for {
		rtt, err := pingICMP(s.pingHost)
		s.mu.Lock()
		if err != nil {
			s.pingOK = false
			s.pingRTT = 0
		} else {
			s.pingOK = true
			s.pingRTT = rtt
		}
		s.mu.Unlock()
		if err != nil {
			log.Printf("[STATS] ping %s failed: %v", s.pingHost, err)
		}
		time.Sleep(STATS_COLLECT_INTERVAL)
	}
}

// Uptime returns seconds since startup.
func (s *Stats) Uptime() int64 {
	return int64(time.Since(s.startedAt).Seconds())
}

// Ping returns the last probe result.
func (s *Stats) Ping() (host string, rtt time.Duration, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pingHost, s.pingRTT, s.pingOK
}

// pingICMP sends a single ICMP echo. Raw ICMP usually requires root, which
// the firmware runs as on the device.
func pingICMP(host string) (time.Duration, error) {
	pinger, err := ping.NewPinger(host)
	if err != nil {
		return 0, err
	}
	pinger.SetPrivileged(true)
	pinger.Count = 1
	pinger.Timeout = 2 * time.Second
	if err := pinger.Run(); err != nil {
		return 0, err
	}
	return pinger.Statistics().AvgRtt, nil
}
