package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	logrus "github.com/sirupsen/logrus"

	"route_tracker/internal/metrics"
)

// NATSPublisher publishes events as JSON on subjects of the form
// <prefix>.<kind>.<vehicle id>.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
}

func NewNATSPublisher(url, prefix string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("route-tracker"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			metrics.EventsConnected.Set(0)
			logrus.WithError(err).Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			metrics.EventsConnected.Set(1)
			logrus.WithField("url", nc.ConnectedUrl()).Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			metrics.EventsConnected.Set(0)
			logrus.Info("nats closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	metrics.EventsConnected.Set(1)
	return &NATSPublisher{nc: nc, prefix: subjectToken(prefix)}, nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		if err := p.nc.Drain(); err != nil {
			logrus.WithError(err).Warn("nats drain failed")
		}
		p.nc.Close()
	}
}

func (p *NATSPublisher) PublishRun(ctx context.Context, kind string, ev RunEvent) error {
	return p.publish(Subject(p.prefix, kind, ev.VehicleID.String()), ev)
}

func (p *NATSPublisher) PublishPosition(ctx context.Context, ev PositionEvent) error {
	return p.publish(Subject(p.prefix, PositionRecorded, ev.VehicleID.String()), ev)
}

func (p *NATSPublisher) publish(subject string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(subject, b); err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	metrics.EventsPublished.WithLabelValues("ok").Inc()
	logrus.WithField("subject", subject).Debug("event published")
	return nil
}

// Subject joins sanitised tokens into a NATS subject. Event kinds keep their dots.
func Subject(prefix, kind, key string) string {
	parts := []string{prefix}
	for _, k := range strings.Split(kind, ".") {
		parts = append(parts, subjectToken(k))
	}
	parts = append(parts, subjectToken(key))
	return strings.Join(parts, ".")
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}

var _ Publisher = (*NATSPublisher)(nil)
