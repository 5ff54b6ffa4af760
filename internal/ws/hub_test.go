package ws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func testClient(userID uuid.UUID) *Client {
	return &Client{userID: userID, send: make(chan []byte, 4)}
}

func TestHub_BroadcastToUser(t *testing.T) {
	hub := NewHub(context.Background())
	userID := uuid.New()
	other := uuid.New()

	first := testClient(userID)
	second := testClient(userID)
	stranger := testClient(other)
	hub.Register(first)
	hub.Register(second)
	hub.Register(stranger)

	err := hub.BroadcastToUser(userID, "dispute.transition", map[string]string{"to_status": "resolved"})
	assert.NoError(t, err)

	// Событие приходит в каждое соединение пользователя.
	for _, client := range []*Client{first, second} {
		var envelope Envelope
		assert.NoError(t, json.Unmarshal(<-client.send, &envelope))
		assert.Equal(t, "dispute.transition", envelope.Type)
	}
	assert.Empty(t, stranger.send)
}

func TestHub_Online(t *testing.T) {
	hub := NewHub(context.Background())
	userID := uuid.New()
	client := testClient(userID)

	assert.False(t, hub.Online(userID))
	hub.Register(client)
	assert.True(t, hub.Online(userID))
	hub.Unregister(client)
	assert.False(t, hub.Online(userID))
}

func TestHub_RunClosesClientsOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(ctx)
	client := testClient(uuid.New())
	hub.Register(client)

	cancel()
	hub.Run()

	_, open := <-client.send
	assert.False(t, open)
	assert.False(t, hub.Online(client.userID))
}
