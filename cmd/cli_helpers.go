package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nextlevelbuilder/mcpgate/internal/config"
	"github.com/nextlevelbuilder/mcpgate/pkg/protocol"
)

// errGatewayDown means nothing is listening on the configured address.
var errGatewayDown = errors.New("server is not running")

// gatewayAddr is the dialable address of the configured server.
func gatewayAddr(cfg *config.Config) string {
	host := cfg.Gateway.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, strconv.Itoa(cfg.Gateway.Port))
}

func isGatewayRunning(addr string) bool {
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// cliToken returns the bearer token the CLI presents: an explicit --token,
// then MCPGATE_TOKEN, then one minted locally with the configured JWT secret.
func cliToken(cfg *config.Config, username, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if env := os.Getenv("MCPGATE_TOKEN"); env != "" {
		return env, nil
	}
	if username == "" {
		return "", fmt.Errorf("--user is required to mint a token (or pass --token)")
	}
	issuer, err := newTokenIssuer(cfg, false)
	if err != nil {
		return "", err
	}
	return issuer.Issue(username)
}

// gatewayClient is a minimal request/response client for the WS gateway.
type gatewayClient struct {
	conn *websocket.Conn
	user string
	// onEvent receives events that arrive while waiting for a response.
	onEvent func(protocol.EventFrame)
}

// dialGateway connects and completes the connect handshake.
func dialGateway(ctx context.Context, cfg *config.Config, token string) (*gatewayClient, error) {
	addr := gatewayAddr(cfg)
	if !isGatewayRunning(addr) {
		return nil, fmt.Errorf("%w at %s (start it with 'mcpgate serve')", errGatewayDown, addr)
	}
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("connect to gateway at %s: %w", u.String(), err)
	}

	c := &gatewayClient{conn: conn, onEvent: printEvent}
	raw, err := c.call(protocol.MethodConnect, map[string]any{"token": token}, 5*time.Second)
	if err != nil {
		conn.Close()
		return nil, err
	}
	var hello struct {
		User string `json:"user"`
	}
	_ = json.Unmarshal(raw, &hello)
	c.user = hello.User
	return c, nil
}

func (c *gatewayClient) Close() error { return c.conn.Close() }

// call sends one request and waits for its response, handing any events to
// onEvent. A non-OK response is returned as an error.
func (c *gatewayClient) call(method string, params any, timeout time.Duration) (json.RawMessage, error) {
	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("encode params: %w", err)
		}
		raw = data
	}

	id := uuid.NewString()[:8]
	req := protocol.RequestFrame{Type: protocol.FrameTypeRequest, ID: id, Method: method, Params: raw}
	if err := c.conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	deadline := time.Now().Add(timeout)
	for {
		c.conn.SetReadDeadline(deadline)
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("read %s response: %w", method, err)
		}

		frameType, _ := protocol.ParseFrameType(msg)
		switch frameType {
		case protocol.FrameTypeEvent:
			var evt protocol.EventFrame
			if err := json.Unmarshal(msg, &evt); err == nil && c.onEvent != nil {
				c.onEvent(evt)
			}
		case protocol.FrameTypeResponse:
			var resp struct {
				ID      string               `json:"id"`
				OK      bool                 `json:"ok"`
				Payload json.RawMessage      `json:"payload"`
				Error   *protocol.ErrorShape `json:"error"`
			}
			if err := json.Unmarshal(msg, &resp); err != nil || resp.ID != id {
				continue
			}
			if !resp.OK {
				if resp.Error != nil {
					return nil, fmt.Errorf("%s: %s", resp.Error.Code, resp.Error.Message)
				}
				return nil, fmt.Errorf("%s failed", method)
			}
			return resp.Payload, nil
		}
	}
}

// printEvent shows server events on stderr so they never mix with replies.
func printEvent(evt protocol.EventFrame) {
	switch evt.Event {
	case protocol.EventShutdown:
		fmt.Fprintln(os.Stderr, "  [server] shutting down")
	default:
		data, _ := json.Marshal(evt.Payload)
		fmt.Fprintf(os.Stderr, "  [event] %s %s\n", evt.Event, data)
	}
}
