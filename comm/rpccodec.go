package comm

import (
	"bufio"
	"encoding/gob"
	"io"
	"net/rpc"
	"sync"
)

// pending counts requests whose response has not been written yet.
type pending struct {
	mu   sync.Mutex
	n    int
	idle *sync.Cond
}

func newPending() *pending {
	p := &pending{}
	p.idle = sync.NewCond(&p.mu)
	return p
}

func (p *pending) begin() {
	p.mu.Lock()
	p.n++
	p.mu.Unlock()
}

func (p *pending) end() {
	p.mu.Lock()
	p.n--
	if p.n == 0 {
		p.idle.Broadcast()
	}
	p.mu.Unlock()
}

func (p *pending) wait() {
	p.mu.Lock()
	for p.n > 0 {
		p.idle.Wait()
	}
	p.mu.Unlock()
}

// drainCodec is the net/rpc gob codec, plus accounting so Close can wait
// until every acknowledgement has reached the wire. net/rpc answers every
// request whose header it read, so begin and end always pair up.
type drainCodec struct {
	rwc     io.ReadWriteCloser
	dec     *gob.Decoder
	enc     *gob.Encoder
	buf     *bufio.Writer
	pending *pending
}

func newDrainCodec(conn io.ReadWriteCloser, p *pending) *drainCodec {
	buf := bufio.NewWriter(conn)
	return &drainCodec{
		rwc:     conn,
		dec:     gob.NewDecoder(conn),
		enc:     gob.NewEncoder(buf),
		buf:     buf,
		pending: p,
	}
}

func (c *drainCodec) ReadRequestHeader(r *rpc.Request) error {
	if err := c.dec.Decode(r); err != nil {
		return err
	}
	c.pending.begin()
	return nil
}

func (c *drainCodec) ReadRequestBody(body any) error {
	return c.dec.Decode(body)
}

func (c *drainCodec) WriteResponse(r *rpc.Response, body any) error {
	defer c.pending.end()
	if err := c.enc.Encode(r); err != nil {
		c.Close()
		return err
	}
	if err := c.enc.Encode(body); err != nil {
		c.Close()
		return err
	}
	return c.buf.Flush()
}

func (c *drainCodec) Close() error {
	return c.rwc.Close()
}
