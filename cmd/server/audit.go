package main

import (
	"context"
	"fmt"
	"log/slog"

	"screener/internal/platform/config"
	"screener/internal/platform/postgres"
	"screener/pkg/platform/audit"
	"screener/pkg/platform/audit/publishers/kafka"
	auditpostgres "screener/pkg/platform/audit/store/postgres"
	"screener/pkg/platform/audit/store/memory"
	"screener/pkg/platform/circuit"
)

// openAuditStore selects the audit backend. The returned close func is
// always safe to call.
func openAuditStore(ctx context.Context, cfg config.Config, log *slog.Logger) (audit.Store, func(), error) {
	switch cfg.Audit.Backend {
	case "", "memory":
		return memory.NewInMemoryStore(), func() {}, nil

	case "postgres":
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		store := auditpostgres.New(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Info("audit events persisted to postgres")
		return guard(store, "audit-postgres", log), func() { _ = db.Close() }, nil

	case "kafka":
		pub, err := kafka.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, nil, err
		}
		if err := pub.EnsureTopic(ctx, 1, 1); err != nil {
			pub.Close()
			return nil, nil, err
		}
		log.Info("audit events published to kafka", "topic", cfg.Kafka.Topic)
		return guard(pub, "audit-kafka", log), pub.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown audit backend %q", cfg.Audit.Backend)
	}
}

func guard(store audit.Store, name string, log *slog.Logger) audit.Store {
	return audit.NewGuardedStore(store, circuit.New(name), log)
}
