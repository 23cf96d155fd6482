package lockevents

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/campaign-notes/internal/domain"
)

func setupTestRedis(t *testing.T, opts ...Option) (*Publisher, *redis.Client, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, opts...), client, s
}

func event(campaignID uuid.UUID, typ domain.NoteEventType) domain.NoteEvent {
	return domain.NoteEvent{
		Type:       typ,
		NoteID:     uuid.New(),
		CampaignID: campaignID,
		ActorID:    uuid.New(),
		At:         time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC),
	}
}

func TestPublish_DeliversToSubscribers(t *testing.T) {
	p, client, _ := setupTestRedis(t)
	ctx := context.Background()
	campaignID := uuid.New()

	sub := client.Subscribe(ctx, p.Channel(campaignID))
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	holder := uuid.New()
	ev := event(campaignID, domain.NoteEventLeaseAcquired)
	ev.HolderID = &holder
	require.NoError(t, p.Publish(ctx, ev))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "notes:campaign:"+campaignID.String(), msg.Channel)

	var got domain.NoteEvent
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, ev.Type, got.Type)
	assert.Equal(t, ev.NoteID, got.NoteID)
	require.NotNil(t, got.HolderID)
	assert.Equal(t, holder, *got.HolderID)
}

func TestPublish_BacklogIsCapped(t *testing.T) {
	p, _, s := setupTestRedis(t, WithPrefix("test"), WithBacklog(3))
	ctx := context.Background()
	campaignID := uuid.New()

	types := []domain.NoteEventType{
		domain.NoteEventLeaseAcquired,
		domain.NoteEventUpdated,
		domain.NoteEventUpdated,
		domain.NoteEventLeaseReleased,
		domain.NoteEventDeleted,
	}
	for _, typ := range types {
		require.NoError(t, p.Publish(ctx, event(campaignID, typ)))
	}

	recent, err := p.Recent(ctx, campaignID, 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, domain.NoteEventDeleted, recent[0].Type)
	assert.Equal(t, domain.NoteEventLeaseReleased, recent[1].Type)
	assert.Equal(t, domain.NoteEventUpdated, recent[2].Type)

	key := "test:campaign:" + campaignID.String() + ":recent"
	assert.Equal(t, backlogTTL, s.TTL(key))
}

func TestRecent_IsolatedPerCampaign(t *testing.T) {
	p, _, _ := setupTestRedis(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	require.NoError(t, p.Publish(ctx, event(a, domain.NoteEventUpdated)))

	recent, err := p.Recent(ctx, b, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestRecent_SkipsGarbage(t *testing.T) {
	p, client, _ := setupTestRedis(t)
	ctx := context.Background()
	campaignID := uuid.New()

	require.NoError(t, p.Publish(ctx, event(campaignID, domain.NoteEventUpdated)))
	require.NoError(t, client.LPush(ctx, p.backlogKey(campaignID), "not json").Err())

	recent, err := p.Recent(ctx, campaignID, 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, domain.NoteEventUpdated, recent[0].Type)
}

func TestPublish_ServerDown(t *testing.T) {
	p, _, s := setupTestRedis(t)
	s.Close()

	err := p.Publish(context.Background(), event(uuid.New(), domain.NoteEventUpdated))
	assert.Error(t, err)
	assert.Error(t, p.Ping(context.Background()))
}

func TestNoop(t *testing.T) {
	var n Noop
	assert.NoError(t, n.Publish(context.Background(), domain.NoteEvent{}))
	recent, err := n.Recent(context.Background(), uuid.New(), 5)
	require.NoError(t, err)
	assert.NotNil(t, recent)
}
