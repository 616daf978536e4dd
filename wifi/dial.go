//go:build tinygo

package wifi

import (
	"context"
	"errors"
	"log/slog"
	"net/netip"
	"time"

	"github.com/harveysanders/ropemeasure/mqtt"
	"github.com/soypat/lneto/tcp"
)

const pollTime = 5 * time.Millisecond

// Dialer opens TCP connections to a fixed host:port through the stack. It
// implements mqtt.Dialer.
type Dialer struct {
	stack      *Stack
	addr       string
	bufSize    int
	remote     netip.AddrPort
	conn       tcp.Conn
	configured bool
}

// NewDialer returns a Dialer for addr. bufSize is the size of each of the
// receive and transmit buffers of the single reused connection.
func NewDialer(stack *Stack, addr string, bufSize int) *Dialer {
	return &Dialer{stack: stack, addr: addr, bufSize: bufSize}
}

// Dial resolves the broker on first use and opens a new TCP connection.
// The previous connection must have been closed.
func (d *Dialer) Dial(ctx context.Context) (mqtt.Conn, error) {
	rstack := d.stack.s.StackRetrying(pollTime)

	if !d.remote.IsValid() {
		host, port, err := splitHostPort(d.addr)
		if err != nil {
			return nil, errors.New("parsing host:port from " + d.addr + ": " + err.Error())
		}
		ip, err := netip.ParseAddr(host)
		if err != nil {
			d.stack.log.Info("dns:resolving " + host)
			addrs, err := rstack.DoLookupIP(host, 5*time.Second, 3)
			if err != nil {
				return nil, errors.New("dns lookup for " + host + ": " + err.Error())
			}
			if len(addrs) == 0 {
				return nil, errors.New("dns lookup for " + host + ": no addresses returned")
			}
			ip = addrs[0]
		}
		d.remote = netip.AddrPortFrom(ip, port)
		d.stack.log.Info("dns:resolved", slog.String("addr", d.remote.String()))
	}

	if !d.configured {
		err := d.conn.Configure(tcp.ConnConfig{
			RxBuf:             make([]byte, d.bufSize),
			TxBuf:             make([]byte, d.bufSize),
			TxPacketQueueSize: 3,
		})
		if err != nil {
			return nil, errors.New("tcp configure: " + err.Error())
		}
		d.configured = true
	}

	localPort := uint16(d.stack.s.Prand32()>>17) + 1024
	d.stack.log.Info("socket:dialing", slog.Uint64("localPort", uint64(localPort)))
	if err := rstack.DoDialTCP(&d.conn, localPort, d.remote, 10*time.Second, 3); err != nil {
		d.abort()
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		d.abort()
		return nil, err
	}
	d.stack.log.Info("tcp:connected", slog.String("state", d.conn.State().String()))
	return &conn{Conn: &d.conn, dialer: d}, nil
}

func (d *Dialer) abort() {
	d.conn.Close()
	for i := 0; i < 50 && !d.conn.State().IsClosed(); i++ {
		time.Sleep(100 * time.Millisecond)
	}
	d.conn.Abort()
}

// conn waits for the TCP close handshake before releasing the connection
// for the next Dial.
type conn struct {
	*tcp.Conn
	dialer *Dialer
}

func (c *conn) Close() error {
	c.dialer.abort()
	return nil
}

var _ mqtt.Dialer = (*Dialer)(nil)
