package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/ftdocs/internal/config"
	"git.home.luguber.info/inful/ftdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/ftdocs/internal/logfields"
)

// streamName is the JetStream stream holding run events.
const streamName = "FTDOCS_RUNS"

// eventPublisher is the part of JetStream the notifier needs.
type eventPublisher interface {
	publish(ctx context.Context, subject, msgID string, data []byte) error
}

type jetStreamPublisher struct {
	js jetstream.JetStream
}

func (p jetStreamPublisher) publish(ctx context.Context, subject, msgID string, data []byte) error {
	_, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(msgID))
	return err
}

// NATSNotifier publishes run events to a JetStream subject. The subject of
// one event is `<subject>.<state>`.
type NATSNotifier struct {
	conn    *nats.Conn
	pub     eventPublisher
	subject string
}

// NewNATSNotifier connects to cfg.NATSURL and makes sure the stream exists.
func NewNATSNotifier(ctx context.Context, cfg config.NotifyConfig) (*NATSNotifier, error) {
	if cfg.NATSURL == "" {
		return nil, errors.ConfigError("notify.nats_url is not set").Build()
	}
	conn, err := nats.Connect(cfg.NATSURL, nats.Name("ftdocs"), nats.Timeout(5*time.Second))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNetwork, "failed to connect to NATS").
			WithContext("url", cfg.NATSURL).Retryable().Build()
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.WrapError(err, errors.CategoryNetwork, "failed to create JetStream context").Build()
	}

	subject := strings.TrimSuffix(cfg.Subject, ".")
	streamCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := js.CreateOrUpdateStream(streamCtx, jetstream.StreamConfig{
		Name:        streamName,
		Description: "ftdocs pipeline run transitions",
		Subjects:    []string{subject + ".>"},
		MaxAge:      30 * 24 * time.Hour,
	}); err != nil {
		conn.Close()
		return nil, errors.WrapError(err, errors.CategoryNetwork, "failed to create run event stream").
			WithContext("subject", subject).Build()
	}

	slog.Info("NATS run notifications enabled", logfields.URL(cfg.NATSURL), slog.String("subject", subject))
	return &NATSNotifier{conn: conn, pub: jetStreamPublisher{js: js}, subject: subject}, nil
}

func newNotifier(pub eventPublisher, subject string) *NATSNotifier {
	return &NATSNotifier{pub: pub, subject: strings.TrimSuffix(subject, ".")}
}

// Handle publishes e. It is a Handler.
func (n *NATSNotifier) Handle(ctx context.Context, e RunEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	// The message id makes JetStream drop a redelivered transition.
	if err := n.pub.publish(pubCtx, n.subject+"."+e.Transition.To, e.RunID+"-"+e.Transition.To, data); err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "failed to publish run event").
			WithContext("run_id", e.RunID).
			WithContext("state", e.Transition.To).
			Retryable().
			Build()
	}
	return nil
}

// Close drains the connection.
func (n *NATSNotifier) Close() {
	if n.conn != nil {
		_ = n.conn.Drain()
	}
}
