package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/utafrali/storefront/internal/event"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
)

func init() {
	register("events", command{summary: "follow favorite and order activity from Kafka", run: (*cli).events})
}

func (c *cli) events(args []string) error {
	fs := c.flags("events", "[-group ID] [-from-start]")
	group := fs.String("group", "", "consumer group, a fresh one when empty")
	fromStart := fs.Bool("from-start", false, "replay retained events instead of only new ones")
	if err := parse(fs, args); err != nil {
		return err
	}
	if len(c.cfg.KafkaBrokers) == 0 {
		return apperrors.InvalidInput("KAFKA_BROKERS is not set")
	}
	if *group == "" {
		*group = "storefront-cli-" + uuid.NewString()
	}

	pingCtx, cancel := context.WithTimeout(c.ctx, 5*time.Second)
	err := pkgkafka.PingBrokers(pingCtx, c.cfg.KafkaBrokers)
	cancel()
	if err != nil {
		return apperrors.Network(err)
	}

	cfg := pkgkafka.ConsumerConfig{
		Brokers: c.cfg.KafkaBrokers,
		GroupID: *group,
		Topics:  []string{event.TopicFavoriteChanged, event.TopicOrderStatusChanged},
	}
	if *fromStart {
		cfg.StartOffset = kafka.FirstOffset
	}
	consumer := pkgkafka.NewConsumer(cfg, printEvents(c.out), c.logger)
	return consumer.Start(c.ctx)
}

// printEvents writes one line per event to w.
func printEvents(w io.Writer) pkgkafka.Handler {
	return func(_ context.Context, e *pkgkafka.Event) error {
		_, err := fmt.Fprintln(w, event.Describe(e))
		return err
	}
}
