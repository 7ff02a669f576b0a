package report

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/abdul-hamid-achik/suitecast/packages/event"
	"github.com/abdul-hamid-achik/suitecast/packages/logx"
	"github.com/abdul-hamid-achik/suitecast/packages/output"
)

// Channel is an ordered outbound message channel. Each Send carries one
// message; implementations may queue it and return before delivery.
type Channel interface {
	Send(v any) error
}

// StreamReporter sends every notification as a JSON envelope over a Channel
// it owns exclusively. Delivery failures are logged and dropped so a
// vanished observer never fails the test run. Build it with
// NewStreamReporter; the zero value returns ErrNotConstructed.
type StreamReporter struct {
	gate
	formatter *output.Formatter
	channel   Channel
}

type StreamOption func(*StreamReporter)

func NewStreamReporter(f *output.Formatter, ch Channel, opts ...StreamOption) *StreamReporter {
	r := &StreamReporter{
		formatter: f,
		channel:   ch,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.gate.out = r
	return r
}

func StreamWithVerbosity(v Verbosity) StreamOption {
	return func(r *StreamReporter) {
		r.verbosity = v
	}
}

func (r *StreamReporter) emit(ev event.Event) error {
	env, err := r.formatter.ToStructured(ev)
	if err != nil {
		return err
	}
	if err := r.channel.Send(env); err != nil {
		logx.WithComponent("stream").
			WithError(err).
			WithField("category", env.Category).
			Warn("report message not delivered")
	}
	return nil
}

// WriterChannel sends each message as one line of JSON on an io.Writer
type WriterChannel struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewWriterChannel(w io.Writer) *WriterChannel {
	return &WriterChannel{enc: json.NewEncoder(w)}
}

func (c *WriterChannel) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enc.Encode(v)
}
