package comm

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/rpc"
	"os"
	"sync"
	"time"

	"distributed-matmul/shared"
)

// MailboxService is registered with net/rpc under the name "Mailbox".
type MailboxService struct {
	rank int
	size int
	box  *mailbox
}

// Deliver blocks until the local rank receives the envelope.
func (s *MailboxService) Deliver(env shared.Envelope, reply *shared.Ack) error {
	if env.Dest != s.rank {
		return fmt.Errorf("envelope for rank %d delivered to rank %d", env.Dest, s.rank)
	}
	if err := checkRank(env.Source, s.size); err != nil {
		return err
	}
	if err := s.box.deliver(env.Source, env.Tag, env.Payload); err != nil {
		return err
	}
	reply.Received = true
	return nil
}

// RPCComm is a rank endpoint over net/rpc. Each rank serves a Mailbox and
// dials its peers lazily on first send.
type RPCComm struct {
	rank     int
	peers    []string
	opts     options
	box      *mailbox
	listener net.Listener
	tls      *tls.Config
	pending  *pending

	mu      sync.Mutex
	clients map[int]*rpc.Client
	closed  bool
}

// ListenRPC listens on peers[rank] and serves the mailbox there.
func ListenRPC(rank int, peers []string, opts ...Option) (*RPCComm, error) {
	if err := checkRank(rank, len(peers)); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	lis, err := listen(peers[rank], o)
	if err != nil {
		return nil, err
	}
	return NewRPC(rank, lis, peers, opts...)
}

// NewRPC serves the mailbox on an existing listener.
func NewRPC(rank int, lis net.Listener, peers []string, opts ...Option) (*RPCComm, error) {
	if err := checkRank(rank, len(peers)); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	tlsConfig, err := clientTLS(o)
	if err != nil {
		return nil, err
	}

	c := &RPCComm{
		rank:     rank,
		peers:    peers,
		opts:     o,
		box:      newMailbox(),
		listener: lis,
		tls:      tlsConfig,
		pending:  newPending(),
		clients:  make(map[int]*rpc.Client),
	}

	server := rpc.NewServer()
	err = server.RegisterName("Mailbox", &MailboxService{rank: rank, size: len(peers), box: c.box})
	if err != nil {
		return nil, fmt.Errorf("failed to register mailbox: %w", err)
	}
	go c.serve(server)

	o.logger.Printf("Mailbox listening on %s", lis.Addr())
	return c, nil
}

func (c *RPCComm) serve(server *rpc.Server) {
	for {
		conn, err := c.listener.Accept()
		if err != nil {
			return
		}
		go server.ServeCodec(newDrainCodec(conn, c.pending))
	}
}

func (c *RPCComm) Rank() int { return c.rank }
func (c *RPCComm) Size() int { return len(c.peers) }

// Addr is the address the mailbox is served on.
func (c *RPCComm) Addr() net.Addr { return c.listener.Addr() }

func (c *RPCComm) Send(dest, tag int, payload []int64) error {
	if err := checkRank(dest, c.Size()); err != nil {
		return err
	}
	client, err := c.client(dest)
	if err != nil {
		return err
	}
	env := shared.Envelope{Source: c.rank, Dest: dest, Tag: tag, Payload: payload}
	var ack shared.Ack
	if err := client.Call("Mailbox.Deliver", env, &ack); err != nil {
		return fmt.Errorf("send to rank %d: %w", dest, err)
	}
	return nil
}

func (c *RPCComm) Recv(src, tag int) ([]int64, error) {
	if err := checkRank(src, c.Size()); err != nil {
		return nil, err
	}
	return c.box.take(src, tag)
}

func (c *RPCComm) client(dest int) (*rpc.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if cl, ok := c.clients[dest]; ok {
		return cl, nil
	}

	var cl *rpc.Client
	var err error
	for attempts := 0; attempts < c.opts.dialAttempts; attempts++ {
		cl, err = c.dial(c.peers[dest])
		if err == nil {
			break
		}
		c.opts.logger.Printf("Attempt %d: Failed to connect to rank %d at %s: %v", attempts+1, dest, c.peers[dest], err)
		time.Sleep(c.opts.dialBackoff)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rank %d after retries: %w", dest, err)
	}
	c.clients[dest] = cl
	return cl, nil
}

func (c *RPCComm) dial(addr string) (*rpc.Client, error) {
	if c.tls == nil {
		return rpc.Dial("tcp", addr)
	}
	conn, err := tls.Dial("tcp", addr, c.tls)
	if err != nil {
		return nil, err
	}
	return rpc.NewClient(conn), nil
}

// Close releases blocked receivers and waits until every delivery already
// taken has been acknowledged to its sender.
func (c *RPCComm) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	clients := c.clients
	c.mu.Unlock()

	c.box.close()
	err := c.listener.Close()
	c.pending.wait()
	for _, cl := range clients {
		cl.Close()
	}
	return err
}

func listen(addr string, o options) (net.Listener, error) {
	config, err := serverTLS(o)
	if err != nil {
		return nil, err
	}
	if config == nil {
		return net.Listen("tcp", addr)
	}
	return tls.Listen("tcp", addr, config)
}

// serverTLS is the listener side configuration, shared with the gRPC transport.
func serverTLS(o options) (*tls.Config, error) {
	if o.certFile == "" {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(o.certFile, o.keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate and key: %w", err)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}}, nil
}

func clientTLS(o options) (*tls.Config, error) {
	if o.certFile == "" {
		return nil, nil
	}
	pem, err := os.ReadFile(o.certFile)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", o.certFile)
	}
	return &tls.Config{RootCAs: pool}, nil
}

var _ Comm = (*RPCComm)(nil)
