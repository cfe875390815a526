package receiver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/ledgerlog-systems/ledgerlog/internal/metrics"
	"github.com/ledgerlog-systems/ledgerlog/internal/models"
	"github.com/ledgerlog-systems/ledgerlog/internal/queue"
	"github.com/ledgerlog-systems/ledgerlog/internal/snmp"
	"github.com/ledgerlog-systems/ledgerlog/internal/syslog"
)

// Datagrams larger than the UDP maximum cannot arrive; one buffer per
// receiver is reused across reads.
const maxDatagramSize = 65536

// ParseFunc turns one datagram into a log entry.
type ParseFunc func(data []byte) (*models.LogEntry, error)

// UDP receives datagrams on a bound port, parses each one and enqueues
// the result. Unparseable datagrams are dropped silently (counted, not
// logged per packet).
type UDP struct {
	name   string
	source models.Source
	port   int
	parse  ParseFunc
	queue  *queue.Queue

	conn     *net.UDPConn
	running  atomic.Bool
	wg       sync.WaitGroup
	received atomic.Uint64
	dropped  atomic.Uint64
}

// NewSyslog creates the RFC 3164 datagram receiver.
func NewSyslog(port int, q *queue.Queue) *UDP {
	return &UDP{name: "syslog", source: models.SourceSyslog, port: port, parse: syslog.Parse, queue: q}
}

// NewSNMPTrap creates the SNMP trap datagram receiver.
func NewSNMPTrap(port int, q *queue.Queue) *UDP {
	return &UDP{name: "snmp", source: models.SourceSNMP, port: port, parse: snmp.ParseTrapToEntry, queue: q}
}

func (u *UDP) Name() string { return u.name }

// Port returns the bound port; useful when the receiver was started on
// port 0.
func (u *UDP) Port() int {
	if u.conn == nil {
		return u.port
	}
	return u.conn.LocalAddr().(*net.UDPAddr).Port
}

// Received reports datagrams successfully parsed and enqueued.
func (u *UDP) Received() uint64 { return u.received.Load() }

// Dropped reports datagrams discarded as unparseable.
func (u *UDP) Dropped() uint64 { return u.dropped.Load() }

// Start binds 0.0.0.0:port with address reuse and launches the read
// loop. Bind errors (typically privileged ports) are returned for the
// orchestrator to downgrade to a warning.
func (u *UDP) Start() error {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var opErr error
			if err := c.Control(func(fd uintptr) {
				opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			}); err != nil {
				return err
			}
			return opErr
		},
	}

	pc, err := lc.ListenPacket(context.Background(), "udp", fmt.Sprintf("0.0.0.0:%d", u.port))
	if err != nil {
		return fmt.Errorf("bind udp port %d: %w", u.port, err)
	}
	u.conn = pc.(*net.UDPConn)

	u.running.Store(true)
	u.wg.Add(1)
	go u.readLoop()

	slog.Info("udp receiver listening",
		slog.String("receiver", u.name), slog.Int("port", u.Port()))
	return nil
}

func (u *UDP) readLoop() {
	defer u.wg.Done()

	buf := make([]byte, maxDatagramSize)
	for {
		n, _, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			if !u.running.Load() {
				return
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			slog.Warn("udp read failed",
				slog.String("receiver", u.name), slog.String("error", err.Error()))
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		entry, err := u.parse(data)
		if err != nil {
			u.dropped.Add(1)
			metrics.ParseErrors.WithLabelValues(u.source.String()).Inc()
			continue
		}

		u.received.Add(1)
		metrics.EventsReceived.WithLabelValues(u.source.String()).Inc()
		if err := u.queue.Enqueue(entry); err != nil {
			slog.Error("enqueue flush failed",
				slog.String("receiver", u.name), slog.String("error", err.Error()))
		}
	}
}

// Stop closes the socket, unblocking the read loop, and waits for it.
func (u *UDP) Stop() error {
	u.running.Store(false)
	if u.conn != nil {
		u.conn.Close()
	}
	u.wg.Wait()
	return nil
}
