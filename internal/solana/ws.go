package solana

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is one WebSocket connection to an RPC endpoint. Exactly one goroutine
// may call ReadMessage at a time; writes are serialized internally.
type Conn interface {
	// WriteJSON sends one JSON message under the write deadline.
	WriteJSON(v interface{}) error

	// ReadMessage blocks until the next message arrives or the connection
	// fails. Closing the connection unblocks a pending read.
	ReadMessage() ([]byte, error)

	// Ping sends a transport-level ping frame.
	Ping() error

	// Close releases the connection. Safe to call more than once.
	Close() error
}

// Dialer opens connections to a WebSocket endpoint.
type Dialer interface {
	Dial(ctx context.Context, endpoint string) (Conn, error)
}

// WSDialerConfig configures the gorilla-backed dialer.
type WSDialerConfig struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration // zero disables the read deadline
}

// DefaultWSDialerConfig returns the default dialer configuration.
func DefaultWSDialerConfig() WSDialerConfig {
	return WSDialerConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		ReadTimeout:      0,
	}
}

// WSDialer implements Dialer using gorilla/websocket.
type WSDialer struct {
	config WSDialerConfig
}

// NewWSDialer creates a dialer. config may be nil for defaults.
func NewWSDialer(config *WSDialerConfig) *WSDialer {
	cfg := DefaultWSDialerConfig()
	if config != nil {
		cfg = *config
	}
	return &WSDialer{config: cfg}
}

// Dial opens a WebSocket connection to the endpoint.
func (d *WSDialer) Dial(ctx context.Context, endpoint string) (Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: d.config.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	return &wsConn{
		conn:         conn,
		writeTimeout: d.config.WriteTimeout,
		readTimeout:  d.config.ReadTimeout,
	}, nil
}

// wsConn adapts a gorilla connection to the Conn interface.
type wsConn struct {
	conn         *websocket.Conn
	writeMu      sync.Mutex
	closeOnce    sync.Once
	writeTimeout time.Duration
	readTimeout  time.Duration
}

func (c *wsConn) WriteJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.conn.WriteJSON(v)
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	if c.readTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
	_, message, err := c.conn.ReadMessage()
	return message, err
}

func (c *wsConn) Ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return c.conn.WriteControl(websocket.PingMessage, nil,
		time.Now().Add(c.writeTimeout))
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}
