// Package pubsub republishes dispatched axis values to NATS so recorders or
// secondary overlay instances can consume the live feed.
package pubsub

import (
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/ohler55/ojg/oj"

	"github.com/racedash/rsc-input-service-go/log"
	"github.com/racedash/rsc-input-service-go/pkg/client"
	"github.com/racedash/rsc-input-service-go/pkg/model"
)

const defaultSubjectPrefix = "overlay"

type (
	AxisPublisher struct {
		conn          *nats.Conn
		subjectPrefix string
		l             *log.Logger
	}
	Option func(*AxisPublisher)
)

func WithSubjectPrefix(prefix string) Option {
	return func(p *AxisPublisher) {
		p.subjectPrefix = prefix
	}
}

func WithLogger(l *log.Logger) Option {
	return func(p *AxisPublisher) {
		p.l = l
	}
}

func NewAxisPublisher(conn *nats.Conn, opts ...Option) *AxisPublisher {
	ret := &AxisPublisher{
		conn:          conn,
		subjectPrefix: defaultSubjectPrefix,
		l:             log.Default().Named("pubsub"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Bind registers one listener per axis on the client. The returned handles
// can be used to detach the publisher again.
func (p *AxisPublisher) Bind(c *client.TelemetryClient) []client.Handle {
	handles := make([]client.Handle, 0, len(model.KnownAxes()))
	for _, axis := range model.KnownAxes() {
		handles = append(handles, c.AddListener(axis, func(value model.AxisValue) {
			p.publish(axis, value)
		}))
	}
	return handles
}

// publish is fire and forget; a broken NATS connection must never stall or
// kill the dispatch loop.
func (p *AxisPublisher) publish(axis model.Axis, value model.AxisValue) {
	subject := fmt.Sprintf("%s.axis.%s", p.subjectPrefix,
		strings.ToLower(axis.String()))
	if err := p.conn.Publish(subject, []byte(oj.JSON(value))); err != nil {
		p.l.Warn("could not publish axis value",
			log.String("subject", subject), log.ErrorField(err))
	}
}
