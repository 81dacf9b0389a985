package ws

import (
	"errors"

	"github.com/gorilla/websocket"
)

type messageInfo struct {
	msg             []byte
	needCompression bool
}

// Client pumps a websocket connection. Inbound text frames arrive on R,
// outbound messages are queued with Write. Both pumps stop when the peer
// goes away; R is closed so the owner can unwind.
type Client struct {
	Conn *websocket.Conn
	R    chan []byte
	W    chan messageInfo
}

func NewClient(conn *websocket.Conn) *Client {
	if conn == nil {
		return nil
	}

	c := &Client{
		Conn: conn,
		R:    make(chan []byte, 128),
		W:    make(chan messageInfo, 128),
	}

	go c.runReader()
	go c.runWriter()
	return c
}

func (c *Client) runReader() {
	defer close(c.R)

	for {
		t, msg, err := c.Conn.ReadMessage()
		if err != nil {
			return
		}

		if t == websocket.CloseMessage {
			return
		}

		if t == websocket.TextMessage {
			c.R <- msg
		}
	}
}

func (c *Client) runWriter() {
	for msgInfo := range c.W {
		msg := msgInfo.msg
		if msgInfo.needCompression {
			var err error
			msg, err = Compress(msgInfo.msg)
			if err != nil {
				continue
			}
		}

		if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// Write never blocks forever: a closed client surfaces as an error instead
// of a panic so the broadcaster can drop the viewer.
func (c *Client) Write(msg []byte, needCompression bool) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		if s, ok := r.(string); ok {
			err = errors.New(s)
		} else {
			err = errors.New("connection is closed")
		}
	}()

	c.W <- messageInfo{msg: msg, needCompression: needCompression}
	return nil
}

func (c *Client) Close() {
	close(c.W)
	c.Conn.Close()
}
