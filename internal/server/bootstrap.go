package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/openjobspec/ojs-monitor/internal/events"
	"github.com/openjobspec/ojs-monitor/internal/monitor"
	"github.com/openjobspec/ojs-monitor/internal/remote"
	"github.com/openjobspec/ojs-monitor/internal/state"
)

// OpenInstances connects to every configured store. Stores opened before a
// failure are closed again.
func OpenInstances(cfg Config) ([]monitor.Instance, error) {
	instances := make([]monitor.Instance, 0, len(cfg.Instances))
	for _, ic := range cfg.Instances {
		store, err := state.NewRedisStore(ic.URL)
		if err != nil {
			for _, inst := range instances {
				inst.Store.Close()
			}
			return nil, fmt.Errorf("instance %s: %w", ic.Name, err)
		}
		slog.Info("connected to Redis instance", "instance", ic.Name)
		instances = append(instances, monitor.Instance{Name: ic.Name, Store: store})
	}
	return instances, nil
}

// NewDispatcher builds the worker termination dispatcher from the SSH
// configuration files.
func NewDispatcher(cfg Config) (*remote.Dispatcher, error) {
	sshConfig, err := remote.LoadSSHConfig(cfg.SSHConfigPaths...)
	if err != nil {
		return nil, err
	}
	if cfg.SSHInsecure {
		slog.Warn("SSH host key verification disabled")
	}
	dialer := remote.NewSSHDialer(sshConfig, cfg.KnownHosts, cfg.SSHInsecure, cfg.SSHTimeout)
	return remote.NewDispatcher(sshConfig, dialer,
		remote.WithSignal(cfg.Signal),
		remote.WithTimeout(cfg.SSHTimeout),
	), nil
}

// NewPublisher returns a Kafka audit event publisher when events are enabled
// and a log publisher otherwise. The returned func flushes and closes it.
func NewPublisher(ctx context.Context, cfg Config) (events.Publisher, func(context.Context), error) {
	if !cfg.EventsEnabled {
		return events.LogPublisher{}, func(context.Context) {}, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.KafkaBrokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RequiredAcks(kgo.LeaderAck()),
		kgo.DisableIdempotentWrite(),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("creating Kafka client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connecting to Kafka %v: %w", cfg.KafkaBrokers, err)
	}
	slog.Info("connected to Kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.EventsTopic)

	producer := events.NewProducer(client, cfg.EventsTopic)
	return producer, producer.Close, nil
}
