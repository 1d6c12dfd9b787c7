package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/seu-repo/ai-waiter/internal/adapter/queue"
)

// startNATS starts a NATS container unless NATS_URL points at an
// external server (CI environment).
func startNATS(t *testing.T, ctx context.Context) (string, func()) {
	if url := os.Getenv("NATS_URL"); url != "" {
		return url, func() {}
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2-alpine",
			ExposedPorts: []string{"4222/tcp"},
			WaitingFor:   wait.ForLog("Server is ready").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start nats container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get nats host: %v", err)
	}
	port, err := container.MappedPort(ctx, "4222")
	if err != nil {
		t.Fatalf("Failed to get nats port: %v", err)
	}

	return fmt.Sprintf("nats://%s:%s", host, port.Port()), func() {
		_ = container.Terminate(ctx)
	}
}

func TestAuditStreamRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	// Arrange
	ctx := context.Background()
	url, stop := startNATS(t, ctx)
	defer stop()

	logger, _ := zap.NewDevelopment()
	mq, err := queue.NewNATSQueue(url, logger)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}

	received := make(chan map[string]any, 1)
	err = mq.Subscribe(queue.SubjectOrderSubmitted, func(data []byte) error {
		var event map[string]any
		if err := json.Unmarshal(data, &event); err != nil {
			return err
		}
		received <- event
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	// Act
	err = queue.PublishJSON(mq, queue.SubjectOrderSubmitted, map[string]any{
		"order_id":   "order-1",
		"session_id": "session-1",
	})
	if err != nil {
		t.Fatalf("Failed to publish: %v", err)
	}

	// Assert
	select {
	case event := <-received:
		if event["order_id"] != "order-1" {
			t.Errorf("unexpected event payload: %v", event)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("audit event never arrived")
	}

	// Close drains, so the flush must not error
	if err := mq.Close(); err != nil {
		t.Errorf("Failed to drain connection: %v", err)
	}
}
