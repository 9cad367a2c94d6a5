package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Ping checks daemon reachability.
func (c *Client) Ping() (*PingResponse, error) {
	var resp PingResponse
	if err := c.client.Call("Flashd.Ping", PingRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Flashd.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Trigger asks the daemon to send manual_trigger.
func (c *Client) Trigger() (*SendResponse, error) {
	var resp SendResponse
	if err := c.client.Call("Flashd.Trigger", SendRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Lock asks the daemon to send flash_lock.
func (c *Client) Lock() (*SendResponse, error) {
	var resp SendResponse
	if err := c.client.Call("Flashd.Lock", SendRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Unlock asks the daemon to send flash_unlock.
func (c *Client) Unlock() (*SendResponse, error) {
	var resp SendResponse
	if err := c.client.Call("Flashd.Unlock", SendRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Events fetches recent journal entries.
func (c *Client) Events(limit int) (*EventsResponse, error) {
	var resp EventsResponse
	if err := c.client.Call("Flashd.Events", EventsRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
