package cache

import (
	"encoding/json"
	"errors"
	"net"
	"time"
)

// Client implements KV over a Unix socket.
type Client struct {
	socketPath  string
	dialTimeout time.Duration
	// ioTimeout bounds one request/response exchange.
	ioTimeout time.Duration
}

var _ KV = (*Client)(nil)

func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath, dialTimeout: 500 * time.Millisecond, ioTimeout: 2 * time.Second}
}

// Ping dials the daemon once and hangs up.
func (c *Client) Ping() error {
	conn, err := net.DialTimeout("unix", c.socketPath, c.dialTimeout)
	if err != nil {
		return err
	}
	return conn.Close()
}

func (c *Client) Get(key string) ([]byte, error) {
	resp, err := c.roundTrip(Request{Op: OpGet, Key: key})
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), resp.Value...), nil
}

func (c *Client) Set(key string, value []byte) error {
	_, err := c.roundTrip(Request{Op: OpSet, Key: key, Value: value})
	return err
}

func (c *Client) Remove(key string) error {
	_, err := c.roundTrip(Request{Op: OpRemove, Key: key})
	return err
}

func (c *Client) roundTrip(req Request) (Response, error) {
	var resp Response
	conn, err := net.DialTimeout("unix", c.socketPath, c.dialTimeout)
	if err != nil {
		return resp, err
	}
	defer conn.Close()
	if err := conn.SetDeadline(time.Now().Add(c.ioTimeout)); err != nil {
		return resp, err
	}

	if err := json.NewEncoder(conn).Encode(&req); err != nil {
		return resp, err
	}
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return resp, err
	}
	if !resp.OK {
		if resp.Error == ErrNotFound.Error() {
			return resp, ErrNotFound
		}
		return resp, errors.New(resp.Error)
	}
	return resp, nil
}
