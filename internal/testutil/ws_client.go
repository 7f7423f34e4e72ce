package testutil

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/farmercorner/motor-dashboard/internal/websocket"
	gorillaWS "github.com/gorilla/websocket"
)

// WSClient is a test WebSocket client
type WSClient struct {
	t        *testing.T
	conn     *gorillaWS.Conn
	messages chan *websocket.Message
	done     chan struct{}
	mu       sync.Mutex
}

// DialWS connects to the live feed sending the cookies client holds for the server.
func DialWS(t *testing.T, ts *TestServer, client *http.Client) (*WSClient, *http.Response, error) {
	t.Helper()

	header := http.Header{}
	if client != nil && client.Jar != nil {
		base, err := url.Parse(ts.BaseURL())
		if err != nil {
			t.Fatalf("failed to parse server url: %v", err)
		}
		for _, c := range client.Jar.Cookies(base) {
			header.Add("Cookie", c.String())
		}
	}

	dialer := gorillaWS.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial(ts.WebSocketURL(), header)
	if err != nil {
		return nil, resp, err
	}

	c := &WSClient{
		t:        t,
		conn:     conn,
		messages: make(chan *websocket.Message, 100),
		done:     make(chan struct{}),
	}

	go c.readPump()

	t.Cleanup(func() {
		c.Close()
	})

	return c, resp, nil
}

// readPump reads messages from the WebSocket connection
func (c *WSClient) readPump() {
	defer close(c.messages)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg websocket.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		select {
		case c.messages <- &msg:
		case <-c.done:
			return
		}
	}
}

// WaitForMessage returns the next message of msgType, or fails the test after timeout
func (c *WSClient) WaitForMessage(msgType websocket.MessageType, timeout time.Duration) *websocket.Message {
	c.t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case msg, ok := <-c.messages:
			if !ok {
				c.t.Fatalf("connection closed while waiting for %s", msgType)
				return nil
			}
			if msg.Type == msgType {
				return msg
			}
		case <-deadline:
			c.t.Fatalf("timeout waiting for %s", msgType)
			return nil
		}
	}
}

// ExpectNoMessage fails if any message arrives within wait
func (c *WSClient) ExpectNoMessage(wait time.Duration) {
	c.t.Helper()

	select {
	case msg, ok := <-c.messages:
		if ok {
			c.t.Fatalf("unexpected message %s", msg.Type)
		}
	case <-time.After(wait):
	}
}

// Close closes the WebSocket connection gracefully
func (c *WSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return
	default:
		close(c.done)
		c.conn.WriteMessage(gorillaWS.CloseMessage, gorillaWS.FormatCloseMessage(gorillaWS.CloseNormalClosure, ""))
		c.conn.Close()
	}
}
