package connection

import (
	"bytes"
	"io"
	"net"

	"obot/internal"
	"obot/internal/errs"
)

// Conn turns a byte stream into delimiter-framed messages. Bytes are read
// into a fixed-capacity working buffer; every complete message found there
// is moved to a FIFO queue and the partial tail is compacted to the front.
//
// A Conn is owned by one goroutine. Send may be shared if the caller
// serializes it.
type Conn struct {
	rw    io.ReadWriteCloser
	buf   []byte
	n     int
	queue [][]byte

	// discarding is set after an overflow: bytes up to the next delimiter
	// belong to a line that was already dropped.
	discarding bool
	closed     bool
}

// New wraps rw with a working buffer of size bytes (DEFAULT_BUFFER_SIZE when
// size is not positive).
func New(rw io.ReadWriteCloser, size int) *Conn {
	if size <= 0 {
		size = internal.DEFAULT_BUFFER_SIZE
	}
	return &Conn{rw: rw, buf: make([]byte, size)}
}

// Send writes all of p, retrying short and interrupted writes.
func (c *Conn) Send(p []byte) (int, error) {
	if c.closed {
		return 0, errs.Classify("write", net.ErrClosed)
	}
	written := 0
	for written < len(p) {
		n, err := c.rw.Write(p[written:])
		written += n
		if err != nil {
			if errs.Transient(err) {
				continue
			}
			return written, errs.Classify("write", err)
		}
		if n == 0 {
			return written, errs.Classify("write", io.ErrShortWrite)
		}
	}
	return written, nil
}

// Receive reads until delim appears in the working buffer or the buffer is
// full, then queues every complete message. It returns the number of bytes
// read by this call.
//
// A full buffer without a delimiter drops the oversized line and returns
// errs.ErrLineTooLong; the connection stays usable.
func (c *Conn) Receive(delim []byte) (int, error) {
	if len(delim) == 0 {
		return 0, errs.ErrInvalidArgument
	}
	if c.closed {
		return 0, errs.Classify("read", net.ErrClosed)
	}

	total := 0
	for !bytes.Contains(c.buf[:c.n], delim) {
		if c.n == len(c.buf) {
			c.overflow(delim)
			return total, errs.ErrLineTooLong
		}

		k, err := c.rw.Read(c.buf[c.n:])
		c.n += k
		total += k
		if err != nil {
			if errs.Transient(err) {
				continue
			}
			c.chunk(delim)
			return total, errs.Classify("read", err)
		}
	}

	c.chunk(delim)
	return total, nil
}

// ReceiveExact returns exactly count bytes, taking whatever the working
// buffer already holds before reading from the transport.
func (c *Conn) ReceiveExact(count int) ([]byte, error) {
	if count < 0 {
		return nil, errs.ErrInvalidArgument
	}
	if c.closed {
		return nil, errs.Classify("read", net.ErrClosed)
	}

	out := make([]byte, count)
	got := copy(out, c.buf[:c.n])
	c.compact(got)

	for got < count {
		k, err := c.rw.Read(out[got:])
		got += k
		if err != nil {
			if errs.Transient(err) {
				continue
			}
			return out[:got], errs.Classify("read", err)
		}
	}
	return out, nil
}

// NextMessage pops the oldest queued message, or nil when none is pending.
// The caller owns the returned slice.
func (c *Conn) NextMessage() []byte {
	if len(c.queue) == 0 {
		return nil
	}
	msg := c.queue[0]
	c.queue[0] = nil
	c.queue = c.queue[1:]
	return msg
}

// Pending reports how many messages are queued.
func (c *Conn) Pending() int { return len(c.queue) }

// Buffered returns a copy of the bytes not yet resolved into a message.
func (c *Conn) Buffered() []byte {
	return bytes.Clone(c.buf[:c.n])
}

// Close releases the transport and every buffered byte. A second call
// reports errs.ErrInvalidDescriptor.
func (c *Conn) Close() error {
	if c.closed {
		return errs.Classify("close", net.ErrClosed)
	}
	c.closed = true
	c.buf, c.n, c.queue = nil, 0, nil
	if err := c.rw.Close(); err != nil {
		return errs.Classify("close", err)
	}
	return nil
}

func (c *Conn) chunk(delim []byte) {
	start := 0
	for {
		i := bytes.Index(c.buf[start:c.n], delim)
		if i < 0 {
			break
		}
		seg := c.buf[start : start+i]
		start += i + len(delim)

		if c.discarding {
			c.discarding = false
			continue
		}
		if len(seg) == 0 {
			continue
		}
		c.queue = append(c.queue, bytes.Clone(seg))
	}
	c.compact(start)
}

// compact drops the first k bytes of the working buffer and zero-fills
// the freed tail.
func (c *Conn) compact(k int) {
	if k == 0 {
		return
	}
	rest := copy(c.buf, c.buf[k:c.n])
	clear(c.buf[rest:c.n])
	c.n = rest
}

func (c *Conn) overflow(delim []byte) {
	// Keep a possible delimiter prefix so a delimiter split across reads
	// still ends the discarded line.
	keep := len(delim) - 1
	if keep > c.n {
		keep = c.n
	}
	c.compact(c.n - keep)
	c.discarding = true
}
