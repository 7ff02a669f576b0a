package ws

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/suitecast/packages/logx"
	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 10 * time.Second
	// DefaultQueueSize is the number of messages buffered per connection
	DefaultQueueSize = 256
)

// ErrClosed is returned by Send once the channel is closed or the peer is gone
var ErrClosed = errors.New("ws: channel closed")

// Outbound is an ordered, exclusively owned message channel over one
// websocket connection. Send enqueues and returns; a write pump goroutine
// delivers messages in the order they were sent.
type Outbound struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}

	// mu guards closed and the close of send. Send holds it shared while
	// queueing; the write pump never takes it.
	mu        sync.RWMutex
	closed    bool
	closeCode int
	closeText string

	// err is written by the write pump before done is closed
	err error
}

// NewOutbound starts the write pump for conn
func NewOutbound(conn *websocket.Conn, queueSize int) *Outbound {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	o := &Outbound{
		conn: conn,
		send: make(chan []byte, queueSize),
		done: make(chan struct{}),
	}
	go o.writePump()
	return o
}

func (o *Outbound) writePump() {
	defer close(o.done)
	for msg := range o.send {
		_ = o.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := o.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			o.err = err
			logx.WithComponent("ws").WithError(err).Debug("write failed, dropping queued messages")
			return
		}
	}
	msg := websocket.FormatCloseMessage(o.closeCode, o.closeText)
	_ = o.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
}

// Send marshals v to JSON and queues it. It blocks only while the queue is
// full and the peer is still reading, never on delivery.
func (o *Outbound) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return ErrClosed
	}

	select {
	case <-o.done:
		return ErrClosed
	default:
	}

	select {
	case o.send <- data:
		return nil
	case <-o.done:
		return ErrClosed
	}
}

// Close flushes queued messages, sends a normal close frame and closes the
// connection. It returns the write error that stopped the pump, if any.
func (o *Outbound) Close() error {
	return o.close(websocket.CloseNormalClosure, "run finished")
}

// Abort flushes queued messages and closes the connection with an internal
// error frame carrying reason, so the peer can tell the run did not finish.
func (o *Outbound) Abort(reason string) error {
	return o.close(websocket.CloseInternalServerErr, closeReason(reason))
}

func (o *Outbound) close(code int, text string) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	o.closeCode = code
	o.closeText = text
	close(o.send)
	o.mu.Unlock()

	<-o.done

	err := o.err
	if cerr := o.conn.Close(); err == nil {
		err = cerr
	}
	return err
}

// closeReason trims reason to what fits in a close frame
func closeReason(reason string) string {
	const maxReason = 123
	if len(reason) <= maxReason {
		return reason
	}
	return strings.ToValidUTF8(reason[:maxReason], "")
}
