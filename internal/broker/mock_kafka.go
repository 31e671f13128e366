package appkafka

import (
	"context"
	"encoding/json"
	"errors"

	"example.com/microblog/internal/models"
	"example.com/microblog/internal/store"
	"github.com/segmentio/kafka-go"
)

// MockKafka applies the fan-out synchronously: every post written is delivered
// straight into the followers' feeds of its author, as the worker would.
type MockKafka struct {
	Store           *store.MockStore
	WrittenMessages []kafka.Message // stores messages written via WriteMessages
	ReadMessages    []kafka.Message // queue of messages to be read via ReadMessage
	ShouldFail      bool            // flag to simulate failures during write or read operations
}

// WriteMessages simulates publishing a post event, immediately adding the post
// to the feeds of the author's followers.
func (m *MockKafka) WriteMessages(messages ...kafka.Message) error {
	if m.Store == nil {
		return errors.New("store is nil")
	}

	for _, msg := range messages {
		m.WrittenMessages = append(m.WrittenMessages, msg)

		var post models.Post
		if err := json.Unmarshal(msg.Value, &post); err != nil {
			return err
		}

		followers, _ := m.Store.GetFollowers(post.AuthorID)
		for _, followerID := range followers {
			_ = m.Store.AddToFeed(followerID, post)
		}
	}

	return nil
}

// ReadMessage pops the next queued message, for worker tests.
func (m *MockKafka) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if m.ShouldFail {
		return kafka.Message{}, errors.New("mock kafka read failed")
	}
	if len(m.ReadMessages) == 0 {
		return kafka.Message{}, errors.New("no messages")
	}
	// Take the first message from the queue and remove it
	msg := m.ReadMessages[0]
	m.ReadMessages = m.ReadMessages[1:]
	return msg, nil
}

// Close is a no-op.
func (m *MockKafka) Close() error { return nil }

// MockKafkaFail always fails.
type MockKafkaFail struct{}

func (m *MockKafkaFail) WriteMessages(messages ...kafka.Message) error {
	return errors.New("mock kafka write failed")
}

func (m *MockKafkaFail) ReadMessage(ctx context.Context) (kafka.Message, error) {
	return kafka.Message{}, errors.New("mock kafka read failed")
}

func (m *MockKafkaFail) Close() error { return nil }
