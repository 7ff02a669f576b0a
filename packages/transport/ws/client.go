package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/websocket"
)

// Inbound receives the envelopes of one remote run
type Inbound struct {
	conn *websocket.Conn
}

// Dial connects to a suitecast server. Verbosity below zero leaves the
// server default in place.
func Dial(ctx context.Context, rawURL, token string, verbosity int) (*Inbound, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if verbosity >= 0 {
		q := u.Query()
		q.Set("verbosity", strconv.Itoa(verbosity))
		u.RawQuery = q.Encode()
	}

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", u.Redacted(), err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}
	return &Inbound{conn: conn}, nil
}

// AbortedError is returned by Next when the server ended the run before it
// finished
type AbortedError struct {
	Reason string
}

func (e *AbortedError) Error() string {
	if e.Reason == "" {
		return "remote run aborted"
	}
	return "remote run aborted: " + e.Reason
}

// Next returns the next message. It returns ErrClosed once the server ends
// the run with a normal close, and *AbortedError when it gave up early.
func (in *Inbound) Next() ([]byte, error) {
	_, data, err := in.conn.ReadMessage()
	if err != nil {
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) {
			switch closeErr.Code {
			case websocket.CloseNormalClosure:
				return nil, ErrClosed
			case websocket.CloseInternalServerErr:
				return nil, &AbortedError{Reason: closeErr.Text}
			}
		}
		return nil, err
	}
	return data, nil
}

func (in *Inbound) Close() error {
	return in.conn.Close()
}
