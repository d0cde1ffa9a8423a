// Package broker publishes accepted submissions to Kafka. One producer exists
// per submission variant, owns its topic, and doubles as the health probe for
// the broker connection.
package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/navikt/omsorgspenger-mottak/internal/health"
	"github.com/navikt/omsorgspenger-mottak/internal/jsoncodec"
	"github.com/navikt/omsorgspenger-mottak/internal/logging"
	"github.com/navikt/omsorgspenger-mottak/internal/metadata"
	"github.com/navikt/omsorgspenger-mottak/internal/submission"
)

// SupportedVersion is the single schema version this producer generation can
// publish. A mismatch is a configuration fault, not a per-message problem.
const SupportedVersion = 1

// metadataKeySubmissionID carries the partition key on the Watermill message,
// so every message for one submission lands in the same partition.
const metadataKeySubmissionID = "submission_id"

// ErrUnsupportedVersion is returned when the caller-declared schema version
// does not match SupportedVersion.
var ErrUnsupportedVersion = errors.New("mottak: unsupported metadata version")

// PublishError wraps a failed publish. No partial state was persisted by the
// gateway, so the caller may safely retry the whole request.
type PublishError struct {
	Topic string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("mottak: publish to topic %q failed: %v", e.Topic, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// Envelope is the wire record: the caller metadata plus the outgoing payload
// verbatim.
type Envelope struct {
	Metadata metadata.Metadata `json:"metadata"`
	Data     map[string]any    `json:"data"`
}

// MetadataClient is the slice of the Kafka client the health probe needs.
// sarama.Client satisfies it.
type MetadataClient interface {
	RefreshMetadata(topics ...string) error
	Partitions(topic string) ([]int32, error)
	Close() error
}

// Factories allow overriding client creation for testing.
var (
	PublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		return kafka.NewPublisher(cfg, logger)
	}
	ClientFactory = func(brokers []string, cfg *sarama.Config) (MetadataClient, error) {
		return sarama.NewClient(brokers, cfg)
	}
)

// Producer publishes one variant's submissions to its fixed topic, keyed by
// submission id. Safe for concurrent use by many simultaneous submissions.
type Producer struct {
	name      string
	topic     string
	publisher message.Publisher
	client    MetadataClient
	logger    logging.ServiceLogger
}

// NewProducer builds the producer for a variant. The publisher acknowledges
// synchronously (acks from all in-sync replicas) before Produce returns.
func NewProducer(variant submission.Variant, brokers []string, clientID string, logger logging.ServiceLogger) (*Producer, error) {
	name := variant.Name + "-producer"

	publisher, err := PublisherFactory(
		kafka.PublisherConfig{
			Brokers:               brokers,
			Marshaler:             kafka.NewWithPartitioningMarshaler(partitionBySubmissionID),
			OverwriteSaramaConfig: saramaPublisherConfig(clientID),
		},
		logging.NewWatermillAdapter(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("creating publisher for topic %q: %w", variant.Topic, err)
	}

	client, err := ClientFactory(brokers, saramaClientConfig(clientID))
	if err != nil {
		publisher.Close()
		return nil, fmt.Errorf("creating health probe client for topic %q: %w", variant.Topic, err)
	}

	return &Producer{
		name:      name,
		topic:     variant.Topic,
		publisher: publisher,
		client:    client,
		logger:    logger.With(logging.LogFields{"producer": name}),
	}, nil
}

func saramaPublisherConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	return cfg
}

func saramaClientConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID + "-health"
	return cfg
}

func partitionBySubmissionID(topic string, msg *message.Message) (string, error) {
	key := msg.Metadata.Get(metadataKeySubmissionID)
	if key == "" {
		return "", fmt.Errorf("message %s carries no submission id", msg.UUID)
	}
	return key, nil
}

// Name identifies the producer on the health endpoint.
func (p *Producer) Name() string { return p.name }

// Topic returns the fixed topic this producer publishes to.
func (p *Producer) Topic() string { return p.topic }

// Produce publishes one outgoing submission and blocks until the broker
// acknowledges it. The message is keyed by submission id.
func (p *Producer) Produce(ctx context.Context, md metadata.Metadata, out submission.Outgoing) error {
	if md.Version != SupportedVersion {
		return fmt.Errorf("%w: cannot publish version %d to topic %q", ErrUnsupportedVersion, md.Version, p.topic)
	}

	payload, err := jsoncodec.Marshal(Envelope{Metadata: md, Data: out.Payload()})
	if err != nil {
		return fmt.Errorf("mottak: marshalling envelope for topic %q: %w", p.topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(metadataKeySubmissionID, string(out.SubmissionID()))
	msg.Metadata.Set("correlation_id", md.CorrelationID)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return &PublishError{Topic: p.topic, Err: err}
	}

	p.logger.Info("Submission published", logging.LogFields{
		"topic":         p.topic,
		"submission_id": string(out.SubmissionID()),
	})
	return nil
}

// Check probes the broker by fetching partition metadata for the topic. It
// performs no data plane traffic.
func (p *Producer) Check(ctx context.Context) health.CheckResult {
	if err := p.client.RefreshMetadata(p.topic); err != nil {
		return p.unhealthy(err)
	}
	if _, err := p.client.Partitions(p.topic); err != nil {
		return p.unhealthy(err)
	}
	return health.CheckResult{Name: p.name, Healthy: true, Message: "connected to Kafka"}
}

func (p *Producer) unhealthy(err error) health.CheckResult {
	p.logger.Error("Kafka connection check failed", err, nil)
	return health.CheckResult{Name: p.name, Healthy: false, Message: err.Error()}
}

// Stop closes the broker connection gracefully, flushing buffered sends
// before returning.
func (p *Producer) Stop() error {
	return errors.Join(p.publisher.Close(), p.client.Close())
}
