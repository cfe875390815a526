// Package collector orchestrates the service: it owns the store and the
// write queue, brings receivers up and down, drives periodic flushing
// and reports aggregate counters.
package collector

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ledgerlog-systems/ledgerlog/internal/config"
	"github.com/ledgerlog-systems/ledgerlog/internal/handlers"
	"github.com/ledgerlog-systems/ledgerlog/internal/queue"
	"github.com/ledgerlog-systems/ledgerlog/internal/receiver"
	"github.com/ledgerlog-systems/ledgerlog/internal/server"
	"github.com/ledgerlog-systems/ledgerlog/internal/storage"
)

// statsInterval is how often the running counters are logged.
const statsInterval = 10 * time.Second

// Collector is the service orchestrator. Lifetimes nest: the collector
// owns the queue, which holds the store, which holds the database handle.
// Receivers borrow the queue (enqueue) and the store (count/health).
type Collector struct {
	cfg     *config.Config
	store   *storage.Store
	queue   *queue.Queue
	handler *handlers.LogHandler

	syslogRx *receiver.UDP
	snmpRx   *receiver.UDP
	httpRx   *receiver.HTTP

	// started receivers, in start order
	active []receiver.Receiver

	running atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// New wires the collector over an opened store.
func New(cfg *config.Config, store *storage.Store) *Collector {
	q := queue.New(store, cfg.Queue.BatchSize, cfg.Queue.FlushInterval)
	h := handlers.NewLogHandler(store)

	c := &Collector{
		cfg:     cfg,
		store:   store,
		queue:   q,
		handler: h,
	}
	if cfg.Syslog.Enabled {
		c.syslogRx = receiver.NewSyslog(cfg.Syslog.Port, q)
	}
	if cfg.REST.Enabled {
		c.httpRx = receiver.NewHTTP(cfg.REST.Port, server.NewRouter(h))
	}
	if cfg.SNMP.Enabled {
		c.snmpRx = receiver.NewSNMPTrap(cfg.SNMP.Port, q)
	}
	return c
}

// Queue exposes the write queue, mainly for tests.
func (c *Collector) Queue() *queue.Queue { return c.queue }

// SyslogPort returns the bound syslog port, or 0 when disabled.
func (c *Collector) SyslogPort() int {
	if c.syslogRx == nil {
		return 0
	}
	return c.syslogRx.Port()
}

// SNMPPort returns the bound SNMP trap port, or 0 when disabled.
func (c *Collector) SNMPPort() int {
	if c.snmpRx == nil {
		return 0
	}
	return c.snmpRx.Port()
}

// HTTPPort returns the bound REST port, or 0 when disabled.
func (c *Collector) HTTPPort() int {
	if c.httpRx == nil {
		return 0
	}
	return c.httpRx.Port()
}

// Start brings receivers up in order syslog, HTTP, SNMP. Datagram bind
// failures (privileged ports) disable that receiver with a warning; an
// HTTP bind failure aborts startup.
func (c *Collector) Start() error {
	if !c.running.CompareAndSwap(false, true) {
		return nil
	}
	c.done = make(chan struct{})

	if c.syslogRx != nil {
		if err := c.syslogRx.Start(); err != nil {
			slog.Warn("syslog receiver disabled", slog.String("error", err.Error()))
			c.syslogRx = nil
		} else {
			c.active = append(c.active, c.syslogRx)
		}
	}

	if c.httpRx != nil {
		if err := c.httpRx.Start(); err != nil {
			c.teardown()
			c.running.Store(false)
			return fmt.Errorf("start http receiver: %w", err)
		}
		c.active = append(c.active, c.httpRx)
	}

	if c.snmpRx != nil {
		if err := c.snmpRx.Start(); err != nil {
			slog.Warn("snmp receiver disabled", slog.String("error", err.Error()))
			c.snmpRx = nil
		} else {
			c.active = append(c.active, c.snmpRx)
		}
	}

	c.wg.Add(2)
	go c.flushLoop()
	go c.statsLoop()

	slog.Info("collector started",
		slog.Int("receivers", len(c.active)),
		slog.Int("batch_size", c.cfg.Queue.BatchSize),
		slog.Duration("flush_interval", c.cfg.Queue.FlushInterval))
	return nil
}

// flushLoop drives the queue's time trigger.
func (c *Collector) flushLoop() {
	defer c.wg.Done()

	interval := c.cfg.Queue.FlushInterval
	if interval <= 0 {
		interval = queue.DefaultFlushInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if _, err := c.queue.TryFlush(); err != nil {
				slog.Error("queue flush failed", slog.String("error", err.Error()))
			}
		}
	}
}

// statsLoop logs the aggregate counters every 10 seconds.
func (c *Collector) statsLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			s := c.Stats()
			slog.Info("collector stats",
				slog.Uint64("received", s.Received),
				slog.Uint64("written", s.Written),
				slog.Uint64("errors", s.Errors),
				slog.Uint64("batches", s.BatchCount),
				slog.Int("queued", s.Queued))
		}
	}
}

// Stats is the aggregate counter snapshot across receivers, queue and
// the REST path.
type Stats struct {
	Received   uint64
	Written    uint64
	Errors     uint64
	BatchCount uint64
	Queued     int
}

// Stats aggregates the live counters.
func (c *Collector) Stats() Stats {
	qs := c.queue.Stats()
	hs := c.handler.Stats()

	s := Stats{
		Received:   hs.Received,
		Written:    qs.Written + hs.Written,
		Errors:     qs.Errors + hs.Errors,
		BatchCount: qs.BatchCount,
		Queued:     qs.Queued,
	}
	if c.syslogRx != nil {
		s.Received += c.syslogRx.Received()
		s.Errors += c.syslogRx.Dropped()
	}
	if c.snmpRx != nil {
		s.Received += c.snmpRx.Received()
		s.Errors += c.snmpRx.Dropped()
	}
	return s
}

// Stop halts the loops, tears receivers down in reverse start order and
// drains the queue.
func (c *Collector) Stop() {
	if !c.running.CompareAndSwap(true, false) {
		return
	}
	close(c.done)
	c.wg.Wait()

	c.teardown()
	c.queue.Close()

	slog.Info("collector stopped")
}

func (c *Collector) teardown() {
	for i := len(c.active) - 1; i >= 0; i-- {
		if err := c.active[i].Stop(); err != nil {
			slog.Warn("receiver stop failed",
				slog.String("receiver", c.active[i].Name()),
				slog.String("error", err.Error()))
		}
	}
	c.active = nil
}
