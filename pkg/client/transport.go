package client

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
)

// Transport is the minimal surface the client needs from the underlying
// streaming connection. Production uses a gorilla websocket; tests inject
// their own implementation.
type Transport interface {
	// ReadMessage blocks until the next text message arrives.
	ReadMessage() (string, error)
	WriteMessage(msg string) error
	Close() error
}

type wsTransport struct {
	conn *websocket.Conn
}

func dialWebsocket(ctx context.Context, endpoint string) (Transport, error) {
	//nolint:bodyclose // gorilla keeps the response body for the connection
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	return &wsTransport{conn: conn}, nil
}

func (t *wsTransport) ReadMessage() (string, error) {
	for {
		msgType, data, err := t.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		// the protocol is text only; anything else is dropped
		if msgType == websocket.TextMessage {
			return string(data), nil
		}
	}
}

func (t *wsTransport) WriteMessage(msg string) error {
	return t.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}
