//go:build integration

package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"certledger/pkg/testutil/containers"
)

func TestKafkaSinkPublishesEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	rp := containers.NewRedpandaContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	sink, err := NewKafkaSink(ctx, rp.Brokers, "certledger.audit.test", nil, nil)
	require.NoError(t, err)

	event := Event{
		ID:         uuid.New(),
		Action:     ActionCertificateIssued,
		Actor:      "ST1INSTITUTION",
		EntityKind: EntityCertificate,
		EntityID:   1,
		Timestamp:  time.Now().UTC(),
	}
	sink.Publish(ctx, event)
	require.NoError(t, sink.Close(ctx))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Brokers...),
		kgo.ConsumeTopics("certledger.audit.test"),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "certificate:1", string(records[0].Key))

	var got Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, ActionCertificateIssued, got.Action)
}
