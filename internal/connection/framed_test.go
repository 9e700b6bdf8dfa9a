package connection

import (
	"bytes"
	"io"
	"math/rand"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"obot/internal/errs"
)

var crlf = []byte("\r\n")

// stream replays chunks, one per Read call, then reports readErr.
type stream struct {
	chunks   [][]byte
	readErr  error
	written  bytes.Buffer
	maxWrite int
	writeErr []error
	closes   int
}

func newStream(chunks ...string) *stream {
	s := &stream{readErr: io.EOF}
	for _, c := range chunks {
		s.chunks = append(s.chunks, []byte(c))
	}
	return s
}

func (s *stream) Read(p []byte) (int, error) {
	if len(s.chunks) == 0 {
		return 0, s.readErr
	}
	n := copy(p, s.chunks[0])
	s.chunks[0] = s.chunks[0][n:]
	if len(s.chunks[0]) == 0 {
		s.chunks = s.chunks[1:]
	}
	return n, nil
}

func (s *stream) Write(p []byte) (int, error) {
	if len(s.writeErr) > 0 {
		err := s.writeErr[0]
		s.writeErr = s.writeErr[1:]
		return 0, err
	}
	if s.maxWrite > 0 && len(p) > s.maxWrite {
		p = p[:s.maxWrite]
	}
	return s.written.Write(p)
}

func (s *stream) Close() error {
	s.closes++
	return nil
}

func drain(c *Conn) []string {
	var out []string
	for msg := c.NextMessage(); msg != nil; msg = c.NextMessage() {
		out = append(out, string(msg))
	}
	return out
}

func receiveAll(t *testing.T, c *Conn) []string {
	t.Helper()
	var got []string
	for {
		_, err := c.Receive(crlf)
		got = append(got, drain(c)...)
		if err != nil {
			require.ErrorIs(t, err, errs.ErrConnectionReset)
			return got
		}
	}
}

func randomLine(r *rand.Rand, max int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz :#!@.0123456789"
	n := 1 + r.Intn(max)
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteByte(alphabet[r.Intn(len(alphabet))])
	}
	return sb.String()
}

func TestReceiveMatchesReferenceSplit(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for _, size := range []int{64, 4096} {
		for round := 0; round < 50; round++ {
			var want []string
			lines := 1 + r.Intn(30)
			for i := 0; i < lines; i++ {
				want = append(want, randomLine(r, 40))
			}
			raw := strings.Join(want, "\r\n") + "\r\n"

			var chunks []string
			for rest := raw; len(rest) > 0; {
				k := 1 + r.Intn(len(rest))
				chunks = append(chunks, rest[:k])
				rest = rest[k:]
			}

			c := New(newStream(chunks...), size)
			assert.Equal(t, want, receiveAll(t, c), "size %d round %d", size, round)
			assert.Empty(t, c.Buffered())
		}
	}
}

func TestRemainderIsBytesAfterLastDelimiter(t *testing.T) {
	c := New(newStream("PING :a\r\n:srv 001 bot :hi\r\n:srv NOT"), 0)

	n, err := c.Receive(crlf)
	require.NoError(t, err)
	assert.Equal(t, 35, n)
	assert.Equal(t, []string{"PING :a", ":srv 001 bot :hi"}, drain(c))
	assert.Equal(t, []byte(":srv NOT"), c.Buffered())
}

func TestDelimiterSplitAcrossReads(t *testing.T) {
	c := New(newStream("PING :a\r", "\nPONG :b\r\n"), 0)
	assert.Equal(t, []string{"PING :a", "PONG :b"}, receiveAll(t, c))
}

func TestEmptySegmentsSkipped(t *testing.T) {
	c := New(newStream("\r\n\r\nPING :a\r\n\r\n"), 0)
	assert.Equal(t, []string{"PING :a"}, receiveAll(t, c))
}

func TestOverflowDropsOversizedLine(t *testing.T) {
	c := New(newStream("0123456789\r\nok\r\n"), 8)

	_, err := c.Receive(crlf)
	require.ErrorIs(t, err, errs.ErrLineTooLong)
	assert.Nil(t, c.NextMessage())

	assert.Equal(t, []string{"ok"}, receiveAll(t, c))
}

func TestReceiveExactDrainsBufferFirst(t *testing.T) {
	c := New(newStream("HDR\r\nbod", "y123", "tail"), 0)

	_, err := c.Receive(crlf)
	require.NoError(t, err)
	assert.Equal(t, []byte("HDR"), c.NextMessage())

	body, err := c.ReceiveExact(7)
	require.NoError(t, err)
	assert.Equal(t, "body123", string(body))
	assert.Empty(t, c.Buffered())

	body, err = c.ReceiveExact(10)
	assert.ErrorIs(t, err, errs.ErrConnectionReset)
	assert.Equal(t, "tail", string(body))

	_, err = c.ReceiveExact(-1)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestSendRetriesShortWrites(t *testing.T) {
	s := newStream()
	s.maxWrite = 3
	s.writeErr = []error{syscall.EINTR}
	c := New(s, 0)

	line := []byte("PRIVMSG #chan :hello there\r\n")
	n, err := c.Send(line)
	require.NoError(t, err)
	assert.Equal(t, len(line), n)
	assert.Equal(t, line, s.written.Bytes())
}

func TestSendFatal(t *testing.T) {
	s := newStream()
	s.writeErr = []error{syscall.EPIPE}
	c := New(s, 0)

	_, err := c.Send([]byte("QUIT\r\n"))
	assert.ErrorIs(t, err, errs.ErrConnectionReset)
}

func TestCloseTwice(t *testing.T) {
	s := newStream("PING :a\r\n")
	c := New(s, 0)
	_, err := c.Receive(crlf)
	require.NoError(t, err)

	require.NoError(t, c.Close())
	assert.Equal(t, 1, s.closes)
	assert.Nil(t, c.NextMessage())

	assert.ErrorIs(t, c.Close(), errs.ErrInvalidDescriptor)
	_, err = c.Receive(crlf)
	assert.ErrorIs(t, err, errs.ErrInvalidDescriptor)
	_, err = c.Send([]byte("x"))
	assert.ErrorIs(t, err, errs.ErrInvalidDescriptor)
}

func TestReceiveRejectsEmptyDelimiter(t *testing.T) {
	c := New(newStream("x"), 0)
	_, err := c.Receive(nil)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}
