// Package clock provides the wall-clock source the scheduler matches
// reminders against. Time is treated as synchronized once an NTP exchange
// has succeeded, or once the system clock already reads a plausible year.
package clock

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/beevik/ntp"
)

// Clock is the narrow read contract consumed by the core. The scheduler
// treats "not yet synchronized" as "nothing is due".
type Clock interface {
	Now() time.Time
	Synced() bool
}

// syncedYear is the first year the wall clock is trusted without NTP.
const syncedYear = 2017

// DefaultServers mirror the appliance's NTP pool.
var DefaultServers = []string{"time.nist.gov", "ntp.ubuntu.com", "pool.ntp.org"}

// System is a Clock backed by the OS clock plus an NTP-measured offset.
type System struct {
	loc      *time.Location
	servers  []string
	interval time.Duration
	offset   atomic.Int64 // nanoseconds
	synced   atomic.Bool
	log      *slog.Logger
}

// NewSystem builds a system clock in the given timezone. servers may be
// empty to use the defaults.
func NewSystem(timezone string, servers []string, interval time.Duration, log *slog.Logger) (*System, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}
	if len(servers) == 0 {
		servers = DefaultServers
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &System{
		loc:      loc,
		servers:  servers,
		interval: interval,
		log:      log.With("component", "clock"),
	}, nil
}

func (s *System) Now() time.Time {
	return time.Now().Add(time.Duration(s.offset.Load())).In(s.loc)
}

func (s *System) Synced() bool {
	return s.synced.Load() || s.Now().Year() >= syncedYear
}

// Run polls the NTP servers until ctx is done, refreshing the offset at
// the configured interval. Failures are logged and retried.
func (s *System) Run(ctx context.Context) {
	for {
		s.sync()
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.interval):
		}
	}
}

func (s *System) sync() {
	for _, server := range s.servers {
		resp, err := ntp.Query(server)
		if err != nil {
			s.log.Warn("ntp query failed", "server", server, "err", err)
			continue
		}
		if err := resp.Validate(); err != nil {
			s.log.Warn("ntp response invalid", "server", server, "err", err)
			continue
		}
		s.offset.Store(int64(resp.ClockOffset))
		if !s.synced.Load() {
			s.log.Info("time synchronized", "server", server, "offset", resp.ClockOffset)
		}
		s.synced.Store(true)
		return
	}
}
