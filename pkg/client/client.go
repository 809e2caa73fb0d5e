// Package client implements a TCP client for the framed wire protocol
// consumed by the ingestion server: connect once, then send sample, batch,
// text, and profile-event frames as they occur.
package client

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/grafana/tsdb/pkg/wire"
)

// Client is a TCP client for the ingestion server's wire protocol. It is
// safe for concurrent use: writes are serialized under an internal mutex,
// matching one socket carrying interleaved signals from multiple
// goroutines in the same process.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
}

// Dial connects to addr (host:port) with the given timeout.
func Dial(addr string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Close shuts down the connection gracefully.
func (c *Client) Close() error {
	return c.conn.Close()
}

// SendSample transmits a single (timestamp, value) sample under name.
func (c *Client) SendSample(name string, timestamp, value float64) error {
	return c.send(name, wire.NewSample(timestamp, value))
}

// SendSamples transmits an irregularly-spaced batch of (timestamp, value)
// pairs under name.
func (c *Client) SendSamples(name string, samples []wire.SamplePair) error {
	return c.send(name, wire.NewBatch(samples))
}

// SendSampledSamples transmits a batch of values taken at a fixed rate,
// starting at t0 and spaced dt apart. Useful when a source already
// produces evenly-spaced data and does not want to pay for a timestamp per
// sample on the wire.
func (c *Client) SendSampledSamples(name string, t0, dt float64, values []float64) error {
	return c.send(name, wire.NewSamples(t0, dt, values))
}

// SendText transmits a single timestamped text event under name.
func (c *Client) SendText(name string, timestamp float64, text string) error {
	return c.send(name, wire.NewText(timestamp, text))
}

// SendProfileEnter transmits a function-entry profile event under name.
func (c *Client) SendProfileEnter(name string, timestamp float64, callee string) error {
	return c.send(name, wire.NewProfileEnter(timestamp, callee))
}

// SendProfileExit transmits a function-exit profile event under name.
func (c *Client) SendProfileExit(name string, timestamp float64) error {
	return c.send(name, wire.NewProfileExit(timestamp))
}

func (c *Client) send(name string, payload wire.SamplePayload) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	batch := wire.SampleBatch{Name: name, Payload: payload}
	w := bufio.NewWriter(c.conn)
	if err := wire.EncodeFrame(w, batch); err != nil {
		return fmt.Errorf("client: encode frame: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("client: write frame: %w", err)
	}
	return nil
}
