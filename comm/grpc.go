package comm

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"distributed-matmul/shared"
)

const (
	mailboxServiceName = "distmatmul.Mailbox"
	deliverMethod      = "/" + mailboxServiceName + "/Deliver"
)

// gobCodec carries shared.Envelope without generated protobuf types.
type gobCodec struct{}

func (gobCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (gobCodec) Name() string { return "gob" }

type mailboxServer interface {
	Deliver(ctx context.Context, env *shared.Envelope) (*shared.Ack, error)
}

func deliverHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(shared.Envelope)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(mailboxServer).Deliver(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: deliverMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(mailboxServer).Deliver(ctx, req.(*shared.Envelope))
	}
	return interceptor(ctx, in, info, handler)
}

var mailboxServiceDesc = grpc.ServiceDesc{
	ServiceName: mailboxServiceName,
	HandlerType: (*mailboxServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Deliver", Handler: deliverHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "comm/grpc.go",
}

type grpcMailbox struct {
	rank int
	size int
	box  *mailbox
}

func (s *grpcMailbox) Deliver(ctx context.Context, env *shared.Envelope) (*shared.Ack, error) {
	if env.Dest != s.rank {
		return nil, status.Errorf(codes.InvalidArgument, "envelope for rank %d delivered to rank %d", env.Dest, s.rank)
	}
	if err := checkRank(env.Source, s.size); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.box.deliver(env.Source, env.Tag, env.Payload); err != nil {
		return nil, status.Error(codes.Unavailable, err.Error())
	}
	return &shared.Ack{Received: true}, nil
}

// GRPCComm is a rank endpoint over gRPC. Calls wait for the peer to come
// up instead of retrying, so startup order does not matter.
type GRPCComm struct {
	rank     int
	peers    []string
	opts     options
	box      *mailbox
	server   *grpc.Server
	listener net.Listener
	creds    credentials.TransportCredentials

	mu     sync.Mutex
	conns  map[int]*grpc.ClientConn
	closed bool
}

// ListenGRPC listens on peers[rank] and serves the mailbox there.
func ListenGRPC(rank int, peers []string, opts ...Option) (*GRPCComm, error) {
	if err := checkRank(rank, len(peers)); err != nil {
		return nil, err
	}
	lis, err := net.Listen("tcp", peers[rank])
	if err != nil {
		return nil, err
	}
	return NewGRPC(rank, lis, peers, opts...)
}

// NewGRPC serves the mailbox on an existing plain TCP listener; TLS, when
// configured, is negotiated by gRPC itself.
func NewGRPC(rank int, lis net.Listener, peers []string, opts ...Option) (*GRPCComm, error) {
	if err := checkRank(rank, len(peers)); err != nil {
		return nil, err
	}
	o := buildOptions(opts)

	serverOpts := []grpc.ServerOption{grpc.ForceServerCodec(gobCodec{})}
	creds := insecure.NewCredentials()
	if o.certFile != "" {
		srvConfig, err := serverTLS(o)
		if err != nil {
			return nil, err
		}
		cliConfig, err := clientTLS(o)
		if err != nil {
			return nil, err
		}
		serverOpts = append(serverOpts, grpc.Creds(credentials.NewTLS(srvConfig)))
		creds = credentials.NewTLS(cliConfig)
	}

	c := &GRPCComm{
		rank:     rank,
		peers:    peers,
		opts:     o,
		box:      newMailbox(),
		server:   grpc.NewServer(serverOpts...),
		listener: lis,
		creds:    creds,
		conns:    make(map[int]*grpc.ClientConn),
	}
	c.server.RegisterService(&mailboxServiceDesc, &grpcMailbox{rank: rank, size: len(peers), box: c.box})

	go func() {
		if err := c.server.Serve(lis); err != nil {
			o.logger.Printf("gRPC mailbox stopped: %v", err)
		}
	}()
	o.logger.Printf("gRPC mailbox listening on %s", lis.Addr())
	return c, nil
}

func (c *GRPCComm) Rank() int { return c.rank }
func (c *GRPCComm) Size() int { return len(c.peers) }

func (c *GRPCComm) Addr() net.Addr { return c.listener.Addr() }

func (c *GRPCComm) Send(dest, tag int, payload []int64) error {
	if err := checkRank(dest, c.Size()); err != nil {
		return err
	}
	conn, err := c.conn(dest)
	if err != nil {
		return err
	}
	env := &shared.Envelope{Source: c.rank, Dest: dest, Tag: tag, Payload: payload}
	ack := new(shared.Ack)
	if err := conn.Invoke(context.Background(), deliverMethod, env, ack, grpc.WaitForReady(true)); err != nil {
		return fmt.Errorf("send to rank %d: %w", dest, err)
	}
	return nil
}

func (c *GRPCComm) Recv(src, tag int) ([]int64, error) {
	if err := checkRank(src, c.Size()); err != nil {
		return nil, err
	}
	return c.box.take(src, tag)
}

func (c *GRPCComm) conn(dest int) (*grpc.ClientConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if cc, ok := c.conns[dest]; ok {
		return cc, nil
	}
	cc, err := grpc.NewClient(c.peers[dest],
		grpc.WithTransportCredentials(c.creds),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(gobCodec{})),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for rank %d: %w", dest, err)
	}
	c.conns[dest] = cc
	return cc, nil
}

func (c *GRPCComm) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conns := c.conns
	c.mu.Unlock()

	c.box.close()
	for _, cc := range conns {
		cc.Close()
	}
	// in-flight Deliver calls finish once the mailbox is closed
	c.server.GracefulStop()
	return nil
}

var _ Comm = (*GRPCComm)(nil)
