package slack

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonit-dev/night-watch-cli-sub005/clients"
)

// PostedMessage is a message captured by MockSlackClient
type PostedMessage struct {
	ChannelID string
	Message   clients.SlackMessage
}

// MockSlackClient implements SlackClient interface for testing
type MockSlackClient struct {
	MockAuthTest    func(ctx context.Context) (*clients.SlackAuthTestResponse, error)
	MockPostMessage func(ctx context.Context, channelID string, message clients.SlackMessage) (*clients.SlackPostMessageResponse, error)

	mu     sync.Mutex
	posted []PostedMessage
}

// NewMockSlackClient creates a new mock Slack client
func NewMockSlackClient() *MockSlackClient {
	return &MockSlackClient{}
}

// AuthTest implements SlackClient interface for testing
func (m *MockSlackClient) AuthTest(ctx context.Context) (*clients.SlackAuthTestResponse, error) {
	if m.MockAuthTest != nil {
		return m.MockAuthTest(ctx)
	}

	return &clients.SlackAuthTestResponse{
		UserID: "U123456789",
		TeamID: "T123456789",
		BotID:  "B123456789",
	}, nil
}

// PostMessage implements SlackClient interface for testing. Every call is recorded.
func (m *MockSlackClient) PostMessage(
	ctx context.Context,
	channelID string,
	message clients.SlackMessage,
) (*clients.SlackPostMessageResponse, error) {
	m.mu.Lock()
	m.posted = append(m.posted, PostedMessage{ChannelID: channelID, Message: message})
	count := len(m.posted)
	m.mu.Unlock()

	if m.MockPostMessage != nil {
		return m.MockPostMessage(ctx, channelID, message)
	}

	return &clients.SlackPostMessageResponse{
		Channel:   channelID,
		Timestamp: fmt.Sprintf("1700000000.%06d", count),
	}, nil
}

// Posted returns a copy of all messages posted so far
func (m *MockSlackClient) Posted() []PostedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	posted := make([]PostedMessage, len(m.posted))
	copy(posted, m.posted)
	return posted
}
