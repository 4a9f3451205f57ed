// Package telemetry publishes per-tick output records to NATS for
// downstream dashboards. It is a read-only consumer of the engine's
// output stream; there is no feedback path into the core.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"nanotrade/internal/core"
)

// Publisher drains the engine's telemetry channel and publishes each
// record outbound. The channel is lossy by design: a slow publisher
// never stalls the tick loop.
type Publisher struct {
	js        jetstream.JetStream
	inputChan <-chan core.TickOutput
}

func NewPublisher(js jetstream.JetStream, inputChan <-chan core.TickOutput) *Publisher {
	return &Publisher{
		js:        js,
		inputChan: inputChan,
	}
}

// Run starts the publisher loop. Publish failures are non-fatal:
// downstream consumers can replay from the persisted alert history.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case out, ok := <-p.inputChan:
			if !ok {
				return nil
			}
			if err := p.publish(ctx, out); err != nil {
				log.Printf("WARN: telemetry publish failed tick=%d: %v", out.Tick, err)
			}
		}
	}
}

func (p *Publisher) publish(ctx context.Context, out core.TickOutput) error {
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}

	subject := "nano.engine.out.ticks"
	if out.AlertActive || out.Intervention != nil {
		subject = "nano.engine.out.alerts"
	}

	_, err = p.js.Publish(ctx, subject, data)
	return err
}

// EnsureOutboundStream creates the outbound records stream.
func EnsureOutboundStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      "NANO_ENGINE_OUT",
		Subjects:  []string{"nano.engine.out.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create outbound stream: %w", err)
	}
	log.Println("INFO: ensured outbound stream NANO_ENGINE_OUT")
	return nil
}
