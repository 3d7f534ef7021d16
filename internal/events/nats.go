package events

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// flushTimeout bounds how long Close waits for buffered events to reach
// the server.
const flushTimeout = 2 * time.Second

// natsConn is the part of *nats.Conn the sink uses.
type natsConn interface {
	Publish(subj string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
	IsClosed() bool
}

// NATSSink publishes every event as JSON on a NATS subject so that a remote
// control panel can follow the appliance.
type NATSSink struct {
	nc      natsConn
	subject string
	logger  *zap.Logger
}

// NewNATSSink connects to url. The connection reconnects forever in the
// background; publishes while disconnected are buffered by the client.
func NewNATSSink(url, subject string, logger *zap.Logger) (*NATSSink, error) {
	opts := []nats.Option{
		nats.Name("pianod"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	return newNATSSink(nc, subject, logger), nil
}

func newNATSSink(nc natsConn, subject string, logger *zap.Logger) *NATSSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSSink{nc: nc, subject: subject, logger: logger}
}

// Send implements Sink.
func (s *NATSSink) Send(e Event) {
	if s.nc == nil || s.nc.IsClosed() {
		return
	}
	payload, err := json.Marshal(e)
	if err != nil {
		s.logger.Warn("encoding event", zap.Error(err))
		return
	}
	if err := s.nc.Publish(s.subject+"."+string(e.Type), payload); err != nil {
		s.logger.Warn("publishing event", zap.String("type", string(e.Type)), zap.Error(err))
	}
}

// Close flushes pending events and closes the connection.
func (s *NATSSink) Close() {
	if s.nc == nil || s.nc.IsClosed() {
		return
	}
	if err := s.nc.FlushTimeout(flushTimeout); err != nil {
		s.logger.Warn("flushing events", zap.Error(err))
	}
	s.nc.Close()
}
