package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/panjf2000/ants"
	log "github.com/sirupsen/logrus"
	"github.com/smallnest/goframe"
	"golang.org/x/net/netutil"

	"github.com/nm-morais/go-por/pkg/errors"
	"github.com/nm-morais/go-por/pkg/logs"
	"github.com/nm-morais/go-por/pkg/message"
	"github.com/nm-morais/go-por/pkg/peer"
	"github.com/nm-morais/go-por/pkg/serialization"
)

const TCPTransportCaller = "TCPTransport"

var (
	encoderConfig = goframe.EncoderConfig{
		ByteOrder:                       binary.BigEndian,
		LengthFieldLength:               4,
		LengthAdjustment:                0,
		LengthIncludesLengthFieldLength: false,
	}

	decoderConfig = goframe.DecoderConfig{
		ByteOrder:           binary.BigEndian,
		LengthFieldOffset:   0,
		LengthFieldLength:   4,
		LengthAdjustment:    0,
		InitialBytesToStrip: 4,
	}
)

type TCPConfig struct {
	NodeName    string
	NodeVersion uint32
	ListenAddr  string
	DialTimeout time.Duration
	// MaxConnections caps accepted connections; 0 means unlimited.
	MaxConnections int
	// PoolSize bounds the read loops running at once, inbound and outbound.
	PoolSize int
}

// TCPTransport carries length-prefixed frames over TCP. A dialer opens
// every connection with a binary-encoded NodeId frame; the acceptor uses its
// node_name to identify the remote peer. Each connection has exactly one read
// loop, so frames from one peer are delivered in order.
type TCPTransport struct {
	conf      TCPConfig
	handshake *serialization.Codec
	logger    *log.Logger
	pool      *ants.Pool
	// slots holds one token per running read loop; a full channel means
	// the pool has no free worker and Submit would wait.
	slots chan struct{}

	mu       sync.Mutex
	listener net.Listener
	inbound  Inbound
	conns    map[string]*tcpConn
	open     map[*tcpConn]struct{}

	failures  chan Failure
	done      chan struct{}
	closeOnce sync.Once
}

type tcpConn struct {
	remote  peer.Peer
	frames  goframe.FrameConn
	writeMu sync.Mutex
}

func (c *tcpConn) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.frames.WriteFrame(data)
}

func NewTCPTransport(conf TCPConfig) (*TCPTransport, error) {
	poolSize := conf.PoolSize
	if poolSize <= 0 {
		poolSize = 64
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, errors.FatalError(500, err.Error(), TCPTransportCaller)
	}
	return &TCPTransport{
		conf:      conf,
		handshake: serialization.NewCodec(),
		logger:    logs.NewLogger(TCPTransportCaller),
		pool:      pool,
		slots:     make(chan struct{}, poolSize),
		conns:     make(map[string]*tcpConn),
		open:      make(map[*tcpConn]struct{}),
		failures:  make(chan Failure, failureBuffer),
		done:      make(chan struct{}),
	}, nil
}

func (t *TCPTransport) Logger() *log.Logger {
	return t.logger
}

// Listen starts accepting connections and passes every frame received, on
// inbound or dialed connections, to inbound.
func (t *TCPTransport) Listen(inbound Inbound) errors.Error {
	l, err := net.Listen("tcp", t.conf.ListenAddr)
	if err != nil {
		return errors.NonFatalError(500, err.Error(), TCPTransportCaller)
	}
	if t.conf.MaxConnections > 0 {
		l = netutil.LimitListener(l, t.conf.MaxConnections)
	}
	t.mu.Lock()
	t.listener = l
	t.inbound = inbound
	t.mu.Unlock()
	t.logger.Infof("Listening on %s", l.Addr())
	go t.acceptLoop(l)
	return nil
}

// Serve sets the inbound callback for a transport that only dials.
func (t *TCPTransport) Serve(inbound Inbound) {
	t.mu.Lock()
	t.inbound = inbound
	t.mu.Unlock()
}

// Addr is the bound listen address, or nil before Listen.
func (t *TCPTransport) Addr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

// Self is this node as remote peers should dial it.
func (t *TCPTransport) Self() peer.Peer {
	return peer.NewPeer(t.conf.NodeName, t.Addr())
}

func (t *TCPTransport) acceptLoop(l net.Listener) {
	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-t.done:
				return
			default:
			}
			t.logger.Errorf("Accept failed: %s", err)
			time.Sleep(50 * time.Millisecond)
			continue
		}
		if err := t.submit(func() { t.handleIncoming(conn) }); err != nil {
			t.logger.Errorf("Rejecting connection from %s: %s", conn.RemoteAddr(), err.Reason())
			_ = conn.Close()
		}
	}
}

func (t *TCPTransport) handleIncoming(conn net.Conn) {
	frames := goframe.NewLengthFieldBasedFrameConn(encoderConfig, decoderConfig, conn)
	if t.conf.DialTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(t.conf.DialTimeout))
	}
	frame, err := frames.ReadFrame()
	if err != nil {
		t.logger.Warnf("No handshake from %s: %s", conn.RemoteAddr(), err)
		_ = frames.Close()
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	msg, err := t.handshake.Decode(frame)
	if err != nil {
		t.logger.Warnf("Bad handshake from %s: %s", conn.RemoteAddr(), err)
		_ = frames.Close()
		return
	}
	hs, ok := msg.(message.NodeIDMessage)
	if !ok || hs.NodeName == "" {
		t.logger.Warnf("Expected NodeId handshake from %s, got %s", conn.RemoteAddr(), msg.Type())
		_ = frames.Close()
		return
	}

	c := &tcpConn{remote: peer.NewPeer(hs.NodeName, conn.RemoteAddr()), frames: frames}
	t.logger.Infof("Accepted connection from %s (version %d)", c.remote.ToString(), hs.NodeVersion)
	t.register(c, false)
	t.readLoop(c)
}

// Dial connects to target, which must carry an address, and sends the
// handshake. A connection that already exists is reused.
func (t *TCPTransport) Dial(ctx context.Context, target peer.Peer) errors.Error {
	if _, ok := t.conn(target.Name()); ok {
		return nil
	}
	if target.Addr() == nil {
		return errors.NonFatalError(400, "no address for "+target.Name(), TCPTransportCaller)
	}
	if len(t.slots) == cap(t.slots) {
		return errors.TemporaryError(503, "worker pool full", TCPTransportCaller)
	}
	dialer := net.Dialer{Timeout: t.conf.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", target.Addr().String())
	if err != nil {
		return errors.NonFatalError(500, err.Error(), TCPTransportCaller)
	}
	frames := goframe.NewLengthFieldBasedFrameConn(encoderConfig, decoderConfig, conn)

	hs, err := t.handshake.Encode(message.NodeIDMessage{NodeName: t.conf.NodeName, NodeVersion: t.conf.NodeVersion})
	if err != nil {
		_ = frames.Close()
		return errors.FatalError(500, err.Error(), TCPTransportCaller)
	}
	if err := frames.WriteFrame(hs); err != nil {
		_ = frames.Close()
		return errors.NonFatalError(500, err.Error(), TCPTransportCaller)
	}

	c := &tcpConn{remote: target, frames: frames}
	if existing := t.register(c, true); existing != c {
		// lost a race with a concurrent dial or accept
		_ = frames.Close()
		return nil
	}
	if err := t.submit(func() { t.readLoop(c) }); err != nil {
		t.remove(c)
		return err
	}
	t.logger.Infof("Connected to %s", target.ToString())
	return nil
}

// submit runs task on the pool without ever waiting for a worker. With
// every worker busy it fails with a TemporaryError.
func (t *TCPTransport) submit(task func()) errors.Error {
	select {
	case t.slots <- struct{}{}:
	default:
		return errors.TemporaryError(503, "worker pool full", TCPTransportCaller)
	}
	err := t.pool.Submit(func() {
		defer func() { <-t.slots }()
		task()
	})
	if err != nil {
		<-t.slots
		return errors.TemporaryError(503, err.Error(), TCPTransportCaller)
	}
	return nil
}

// register stores c unless a connection to the same peer exists. It returns
// the connection that ends up registered. Accepted connections are read from
// even when a dialed one is preferred for writing.
func (t *TCPTransport) register(c *tcpConn, dialed bool) *tcpConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	select {
	case <-t.done:
		// closed meanwhile; the read loop exits on the closed frames
		_ = c.frames.Close()
		return c
	default:
	}
	t.open[c] = struct{}{}
	if existing, ok := t.conns[c.remote.Name()]; ok {
		if dialed {
			delete(t.open, c)
			return existing
		}
		return c
	}
	t.conns[c.remote.Name()] = c
	return c
}

func (t *TCPTransport) remove(c *tcpConn) {
	t.mu.Lock()
	if t.conns[c.remote.Name()] == c {
		delete(t.conns, c.remote.Name())
	}
	delete(t.open, c)
	t.mu.Unlock()
	_ = c.frames.Close()
}

func (t *TCPTransport) conn(name string) (*tcpConn, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.conns[name]
	return c, ok
}

func (t *TCPTransport) readLoop(c *tcpConn) {
	defer t.remove(c)
	for {
		frame, err := c.frames.ReadFrame()
		if err != nil {
			select {
			case <-t.done:
			default:
				t.logger.Infof("Connection to %s closed: %s", c.remote.ToString(), err)
			}
			return
		}
		t.mu.Lock()
		inbound := t.inbound
		t.mu.Unlock()
		if inbound == nil {
			continue
		}
		if err := inbound(c.remote, frame); err != nil {
			t.logger.Debugf("Frame from %s rejected: %s", c.remote.ToString(), err)
		}
	}
}

// Send writes data to target, dialing first if needed. Failures are
// reported on Failures and never retried.
func (t *TCPTransport) Send(target peer.Peer, data []byte) {
	c, ok := t.conn(target.Name())
	if !ok {
		ctx := context.Background()
		if t.conf.DialTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, t.conf.DialTimeout)
			defer cancel()
		}
		if err := t.Dial(ctx, target); err != nil {
			t.fail(target, err)
			return
		}
		if c, ok = t.conn(target.Name()); !ok {
			t.fail(target, errors.NonFatalError(500, "connection lost", TCPTransportCaller))
			return
		}
	}
	if err := c.write(data); err != nil {
		t.remove(c)
		t.fail(target, errors.NonFatalError(500, err.Error(), TCPTransportCaller))
	}
}

func (t *TCPTransport) fail(target peer.Peer, err errors.Error) {
	t.logger.Warnf("Could not send to %s: %s", target.ToString(), err.Reason())
	if !reportFailure(t.failures, Failure{Target: target, Err: err}) {
		t.logger.Warn("Failure channel full, dropping failure report")
	}
}

func (t *TCPTransport) Failures() <-chan Failure {
	return t.failures
}

// Peers lists the names of currently connected peers.
func (t *TCPTransport) Peers() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.conns))
	for name := range t.conns {
		names = append(names, name)
	}
	return names
}

func (t *TCPTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		t.mu.Lock()
		if t.listener != nil {
			err = t.listener.Close()
		}
		open := t.open
		t.conns = make(map[string]*tcpConn)
		t.open = make(map[*tcpConn]struct{})
		t.mu.Unlock()
		for c := range open {
			_ = c.frames.Close()
		}
		t.pool.Release()
	})
	if err != nil {
		return fmt.Errorf("closing listener: %w", err)
	}
	return nil
}
