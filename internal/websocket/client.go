// Package websocket streams signature-pad strokes from the browser into the
// session's stroke buffer while the technician is still drawing.
package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xelth-com/eckreport/internal/signature"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB
)

// Message types of the pad protocol
const (
	TypeResize = "PAD_RESIZE"
	TypeStroke = "PAD_STROKE"
	TypeClear  = "PAD_CLEAR"
	TypeAck    = "ACK"
	TypeError  = "ERROR"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// PadMessage is one frame sent by the pad widget
type PadMessage struct {
	Type     string           `json:"type"`
	MsgID    string           `json:"msgId,omitempty"`
	Width    int              `json:"width,omitempty"`
	Height   int              `json:"height,omitempty"`
	PenWidth float64          `json:"penWidth,omitempty"`
	Points   signature.Stroke `json:"points,omitempty"`
}

// Ack answers every frame
type Ack struct {
	Type    string `json:"type"`
	MsgID   string `json:"msgId,omitempty"`
	Strokes int    `json:"strokes"`
	Error   string `json:"error,omitempty"`
}

// Client is a middleman between the websocket connection and a stroke buffer.
type Client struct {
	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan []byte

	buffer *signature.StrokeBuffer
	logger *zap.Logger
}

// ServePad upgrades the request and pumps pad frames into buffer until the
// peer disconnects.
func ServePad(w http.ResponseWriter, r *http.Request, buffer *signature.StrokeBuffer, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &Client{
		conn:   conn,
		send:   make(chan []byte, 16),
		buffer: buffer,
		logger: logger,
	}
	logger.Debug("✍️ Pad connected")

	go c.writePump()
	c.readPump()
	return nil
}

// handle applies one frame to the buffer and builds the reply
func (c *Client) handle(raw []byte) Ack {
	var msg PadMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Ack{Type: TypeError, Error: "invalid frame"}
	}

	ack := Ack{Type: TypeAck, MsgID: msg.MsgID}
	switch msg.Type {
	case TypeResize:
		c.buffer.Resize(msg.Width, msg.Height, msg.PenWidth)
	case TypeStroke:
		if len(msg.Points) == 0 {
			return Ack{Type: TypeError, MsgID: msg.MsgID, Error: "empty stroke"}
		}
		c.buffer.Add(msg.Points)
	case TypeClear:
		c.buffer.Clear()
	default:
		return Ack{Type: TypeError, MsgID: msg.MsgID, Error: "unknown type " + msg.Type}
	}
	ack.Strokes = len(c.buffer.Snapshot().Strokes)
	return ack
}

// readPump pumps frames from the websocket connection to the buffer.
func (c *Client) readPump() {
	defer func() {
		close(c.send)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WS error", zap.Error(err))
			}
			break
		}

		reply, err := json.Marshal(c.handle(message))
		if err != nil {
			continue
		}
		select {
		case c.send <- reply:
		default:
			// Peer is not reading its acks
		}
	}
}

// writePump pumps replies to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
