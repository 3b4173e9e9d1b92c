package net

import (
	"bufio"
	"io"
	gonet "net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/treewave/treewave/src/wave"
	"github.com/ugorji/go/codec"
)

// tcpConn is one established outbound connection. Messages for a given target
// always travel over the same connection, which preserves per-directed-link
// FIFO order on a reliable stream.
type tcpConn struct {
	sync.Mutex
	conn gonet.Conn
	w    *bufio.Writer
	enc  *codec.Encoder
}

// TCPTransport implements the Transport interface over plain TCP, encoding
// messages with the canonical json codec.
type TCPTransport struct {
	listener gonet.Listener
	timeout  time.Duration
	logger   *logrus.Entry

	consumerCh chan wave.Message

	connLock sync.Mutex
	conns    map[string]*tcpConn

	shutdownCh   chan struct{}
	shutdownLock sync.Mutex
	shutdown     bool
}

// NewTCPTransport binds a listener on bindAddr. Call Listen to start
// accepting inbound streams.
func NewTCPTransport(bindAddr string, timeout time.Duration, logger *logrus.Entry) (*TCPTransport, error) {
	list, err := gonet.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}

	t := &TCPTransport{
		listener:   list,
		timeout:    timeout,
		logger:     logger.WithField("component", "tcp-transport"),
		consumerCh: make(chan wave.Message, 64),
		conns:      make(map[string]*tcpConn),
		shutdownCh: make(chan struct{}),
	}

	return t, nil
}

// Consumer implements the Transport interface.
func (t *TCPTransport) Consumer() <-chan wave.Message {
	return t.consumerCh
}

// LocalAddr implements the Transport interface.
func (t *TCPTransport) LocalAddr() string {
	return t.listener.Addr().String()
}

// Listen accepts inbound connections and decodes messages off them until the
// transport is closed.
func (t *TCPTransport) Listen() {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.shutdownCh:
				return
			default:
				t.logger.WithError(err).Error("Failed to accept connection")
				continue
			}
		}

		t.logger.WithField("remote", conn.RemoteAddr().String()).Debug("Accepted connection")

		go t.handleConn(conn)
	}
}

func (t *TCPTransport) handleConn(conn gonet.Conn) {
	defer conn.Close()

	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(bufio.NewReader(conn), jh)

	for {
		var m wave.Message
		if err := dec.Decode(&m); err != nil {
			if err != io.EOF {
				select {
				case <-t.shutdownCh:
				default:
					t.logger.WithError(err).Error("Failed to decode message")
				}
			}
			return
		}

		select {
		case t.consumerCh <- m:
		case <-t.shutdownCh:
			return
		}
	}
}

// Send implements the Transport interface. The first message to a target
// dials a connection that is then reused for the remainder of the wave.
func (t *TCPTransport) Send(target string, m wave.Message) error {
	conn, err := t.getConn(target)
	if err != nil {
		return err
	}

	conn.Lock()
	defer conn.Unlock()

	if err := conn.enc.Encode(m); err != nil {
		return err
	}

	return conn.w.Flush()
}

func (t *TCPTransport) getConn(target string) (*tcpConn, error) {
	t.connLock.Lock()
	defer t.connLock.Unlock()

	if conn, ok := t.conns[target]; ok {
		return conn, nil
	}

	raw, err := gonet.DialTimeout("tcp", target, t.timeout)
	if err != nil {
		return nil, err
	}

	jh := new(codec.JsonHandle)
	jh.Canonical = true

	w := bufio.NewWriter(raw)
	conn := &tcpConn{
		conn: raw,
		w:    w,
		enc:  codec.NewEncoder(w, jh),
	}

	t.conns[target] = conn

	return conn, nil
}

// Close implements the Transport interface.
func (t *TCPTransport) Close() error {
	t.shutdownLock.Lock()
	defer t.shutdownLock.Unlock()

	if t.shutdown {
		return nil
	}
	t.shutdown = true
	close(t.shutdownCh)

	t.connLock.Lock()
	for _, conn := range t.conns {
		conn.conn.Close()
	}
	t.conns = make(map[string]*tcpConn)
	t.connLock.Unlock()

	return t.listener.Close()
}
