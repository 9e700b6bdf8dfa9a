package connection

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"obot/internal"
	"obot/internal/errs"
)

// Dialer opens the raw stream. *net.Dialer satisfies it; tests substitute
// an in-memory pipe.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Endpoint describes where and how to connect.
type Endpoint struct {
	Host       string
	Port       int
	Secure     bool
	SkipVerify bool
	Timeout    time.Duration
}

func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// DefaultDialer is a TCP dialer with keep-alive enabled.
func DefaultDialer() Dialer {
	return &net.Dialer{KeepAlive: 30 * time.Second}
}

// Open dials the endpoint and, in secure mode, completes a TLS handshake
// before returning the stream.
func Open(ctx context.Context, d Dialer, ep Endpoint) (net.Conn, error) {
	if d == nil {
		d = DefaultDialer()
	}
	timeout := ep.Timeout
	if timeout <= 0 {
		timeout = time.Duration(internal.DEFAULT_CONNECT_TIMEOUT) * time.Second
	}

	// Use DialContext so that dialing can be canceled with a timeout
	connectCtx, connectCancel := context.WithTimeout(ctx, timeout)
	defer connectCancel()

	conn, err := d.DialContext(connectCtx, "tcp", ep.Address())
	if err != nil {
		return nil, &errs.TransportError{Op: "dial", Kind: errs.ErrNotConnected,
			Err: fmt.Errorf("%s: %w", ep.Address(), err)}
	}
	if !ep.Secure {
		return conn, nil
	}

	tc := tls.Client(conn, &tls.Config{
		ServerName:         ep.Host,
		InsecureSkipVerify: ep.SkipVerify,
		MinVersion:         tls.VersionTLS12,
	})
	if err := tc.HandshakeContext(connectCtx); err != nil {
		conn.Close()
		return nil, &errs.TransportError{Op: "handshake", Kind: errs.ErrNotConnected,
			Err: fmt.Errorf("%s: %w", ep.Address(), err)}
	}
	return tc, nil
}
