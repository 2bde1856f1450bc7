package slack

import (
	"context"

	"github.com/slack-go/slack"

	"github.com/jonit-dev/night-watch-cli-sub005/clients"
)

// SlackClient implements the clients.SlackClient interface using the slack-go/slack SDK
type SlackClient struct {
	*slack.Client
}

// NewSlackClient creates a new Slack client with the provided bot token
func NewSlackClient(authToken string, options ...slack.Option) clients.SlackClient {
	return &SlackClient{
		Client: slack.New(authToken, options...),
	}
}

// AuthTest verifies the bot token and returns the bot's own identity
func (c *SlackClient) AuthTest(ctx context.Context) (*clients.SlackAuthTestResponse, error) {
	response, err := c.Client.AuthTestContext(ctx)
	if err != nil {
		return nil, err
	}

	return &clients.SlackAuthTestResponse{
		UserID: response.UserID,
		TeamID: response.TeamID,
		BotID:  response.BotID,
	}, nil
}

// PostMessage sends a message to a channel or thread, optionally under a persona's name and avatar
func (c *SlackClient) PostMessage(
	ctx context.Context,
	channelID string,
	message clients.SlackMessage,
) (*clients.SlackPostMessageResponse, error) {
	sdkOptions := []slack.MsgOption{slack.MsgOptionText(message.Text, false)}
	if message.ThreadTS != "" {
		sdkOptions = append(sdkOptions, slack.MsgOptionTS(message.ThreadTS))
	}
	if message.Username != "" {
		sdkOptions = append(sdkOptions, slack.MsgOptionUsername(message.Username))
	}
	if message.IconURL != "" {
		sdkOptions = append(sdkOptions, slack.MsgOptionIconURL(message.IconURL))
	}

	channel, timestamp, err := c.Client.PostMessageContext(ctx, channelID, sdkOptions...)
	if err != nil {
		return nil, err
	}

	return &clients.SlackPostMessageResponse{
		Channel:   channel,
		Timestamp: timestamp,
	}, nil
}
