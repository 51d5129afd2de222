// Package cloudbridge implements the outbound WebSocket link to Cloud
// Cortex (spec §6): unlike the teacher's websocket.Hub, which serves
// inbound browser/VS-Code connections, Cortex is the server here, so
// this package is a reconnecting client rather than a Hub/Client pair.
// The wire vocabulary (tagged-by-type JSON messages) is grounded on the
// teacher's interfaces/websocket.WSMessage.
package cloudbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// MessageType tags every frame exchanged with Cortex (spec §6).
type MessageType string

const (
	TypeAuth         MessageType = "AUTH"
	TypeHeartbeat    MessageType = "HEARTBEAT"
	TypeHeartbeatAck MessageType = "HEARTBEAT_ACK"
	TypeDeployAgent  MessageType = "DEPLOY_AGENT"
	TypeError        MessageType = "ERROR"
)

// Message is the tagged envelope for every frame, grounded on the
// teacher's WSMessage shape but narrowed to the Cortex vocabulary.
type Message struct {
	Type        MessageType `json:"type"`
	APIKey      string      `json:"api_key,omitempty"`
	SpecID      string      `json:"spec_id,omitempty"`
	DownloadURL string      `json:"download_url,omitempty"`
	Message     string      `json:"message,omitempty"`
	Timestamp   int64       `json:"timestamp,omitempty"`
}

const (
	defaultHeartbeatPeriod  = 30 * time.Second
	defaultReconnectBackoff = 10 * time.Second
	handshakeTimeout        = 10 * time.Second
)

// DeployHandler is invoked whenever Cortex pushes a DEPLOY_AGENT frame.
type DeployHandler func(specID, downloadURL string)

// Client maintains one reconnecting connection to Cortex, authenticating
// with an API key and sending a heartbeat every 30s, per spec §6.
type Client struct {
	url              string
	apiKey           string
	heartbeatPeriod  time.Duration
	reconnectBackoff time.Duration
	logger           *zap.Logger
	onDeploy         DeployHandler
	mu               sync.Mutex
	conn             *websocket.Conn
	connected        bool
}

// NewClient builds a bridge client. A zero heartbeatPeriod/reconnectBackoff
// falls back to the spec's 30s/10s defaults.
func NewClient(url, apiKey string, heartbeatPeriod, reconnectBackoff time.Duration, onDeploy DeployHandler, logger *zap.Logger) *Client {
	if heartbeatPeriod <= 0 {
		heartbeatPeriod = defaultHeartbeatPeriod
	}
	if reconnectBackoff <= 0 {
		reconnectBackoff = defaultReconnectBackoff
	}
	return &Client{
		url: url, apiKey: apiKey,
		heartbeatPeriod: heartbeatPeriod, reconnectBackoff: reconnectBackoff,
		onDeploy: onDeploy, logger: logger,
	}
}

// Run connects and reconnects with a fixed 10s backoff until ctx is
// cancelled, mirroring the teacher's persistent-Hub lifetime but from
// the client side of the connection.
func (c *Client) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := c.runOnce(ctx); err != nil {
			c.logger.Warn("cloud bridge connection dropped", zap.Error(err))
		}
		c.setConnected(false)
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.reconnectBackoff):
		}
	}
}

func (c *Client) runOnce(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("cloudbridge: dial: %w", err)
	}
	defer conn.Close()

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setConnected(true)
	c.logger.Info("cloud bridge connected", zap.String("url", c.url))

	if err := conn.WriteJSON(Message{Type: TypeAuth, APIKey: c.apiKey, Timestamp: time.Now().Unix()}); err != nil {
		return fmt.Errorf("cloudbridge: auth: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go c.heartbeatLoop(ctx, conn, errCh)
	go c.readLoop(conn, errCh)

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (c *Client) heartbeatLoop(ctx context.Context, conn *websocket.Conn, errCh chan<- error) {
	ticker := time.NewTicker(c.heartbeatPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteJSON(Message{Type: TypeHeartbeat, Timestamp: time.Now().Unix()}); err != nil {
				select {
				case errCh <- fmt.Errorf("cloudbridge: heartbeat: %w", err):
				default:
				}
				return
			}
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn, errCh chan<- error) {
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			select {
			case errCh <- fmt.Errorf("cloudbridge: read: %w", err):
			default:
			}
			return
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg Message) {
	switch msg.Type {
	case TypeHeartbeatAck:
		c.logger.Debug("cloud bridge heartbeat ack")
	case TypeDeployAgent:
		c.logger.Info("cloud bridge deploy command", zap.String("spec_id", msg.SpecID))
		if c.onDeploy != nil {
			c.onDeploy(msg.SpecID, msg.DownloadURL)
		}
	case TypeError:
		c.logger.Error("cloud bridge reported an error", zap.String("message", msg.Message))
	default:
		// unknown frames from Cortex are forward-compatible no-ops
		raw, _ := json.Marshal(msg)
		c.logger.Debug("cloud bridge unrecognized frame", zap.ByteString("raw", raw))
	}
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

// Connected reports whether the bridge currently has a live connection.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
