// Package wireclient is a small synchronous client for the internal/wire
// protocol, used by cmd/liquifyctl. One request in flight per connection at
// a time, matching the daemon's one-frame-per-turn connection model.
package wireclient

import (
	"fmt"
	"net"
	"time"

	"github.com/liquify/liquify-engine/internal/wire"
)

// Client holds one open TCP connection to a liquifyd daemon.
type Client struct {
	conn net.Conn
}

// Dial connects to addr ("host:port").
func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("wireclient: dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

// Authenticate presents token to unlock admin operations for the lifetime
// of this connection.
func (c *Client) Authenticate(token string) error {
	resp, err := c.call(wire.MsgAuthenticate, wire.AuthenticateRequest{Token: token}.Encode())
	if err != nil {
		return err
	}
	return errorIfFailure(resp)
}

// Call sends a request frame of type t with the given encoded body and
// returns the decoded response frame, surfacing a remote MsgError as a Go
// error.
func (c *Client) Call(t wire.MessageType, body []byte) (wire.Frame, error) {
	resp, err := c.call(t, body)
	if err != nil {
		return wire.Frame{}, err
	}
	if err := errorIfFailure(resp); err != nil {
		return wire.Frame{}, err
	}
	return resp, nil
}

func (c *Client) call(t wire.MessageType, body []byte) (wire.Frame, error) {
	req := wire.NewFrame(t, body)
	if err := wire.WriteFrame(c.conn, req); err != nil {
		return wire.Frame{}, fmt.Errorf("wireclient: write: %w", err)
	}
	resp, err := wire.ReadFrame(c.conn)
	if err != nil {
		return wire.Frame{}, fmt.Errorf("wireclient: read: %w", err)
	}
	return resp, nil
}

func errorIfFailure(resp wire.Frame) error {
	if resp.Header.Type != wire.MsgError {
		return nil
	}
	msg, err := wire.DecodeError(resp.Body)
	if err != nil {
		return fmt.Errorf("wireclient: malformed error response: %w", err)
	}
	return fmt.Errorf("remote: %s", msg)
}
