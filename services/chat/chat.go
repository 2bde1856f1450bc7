package chat

import (
	"context"
	"fmt"

	"github.com/jonit-dev/night-watch-cli-sub005/clients"
	"github.com/jonit-dev/night-watch-cli-sub005/core/log"
	"github.com/jonit-dev/night-watch-cli-sub005/models"
	"github.com/jonit-dev/night-watch-cli-sub005/utils"
)

type ChatService struct {
	slackClient clients.SlackClient
}

func NewChatService(slackClient clients.SlackClient) *ChatService {
	return &ChatService{slackClient: slackClient}
}

// PostAsPersona posts text into a channel or thread under the persona's name and avatar.
// It returns the timestamp of the posted message.
func (s *ChatService) PostAsPersona(
	ctx context.Context,
	channelID, threadTS string,
	persona models.Persona,
	text string,
) (string, error) {
	log.Debug("📋 Starting to post as persona %s in channel %s (thread %s)", persona.ID, channelID, threadTS)
	utils.AssertInvariant(channelID != "", "channelID must not be empty")

	response, err := s.slackClient.PostMessage(ctx, channelID, clients.SlackMessage{
		Text:     utils.ConvertMarkdownToSlack(text),
		ThreadTS: threadTS,
		Username: persona.Name,
		IconURL:  persona.AvatarURL,
	})
	if err != nil {
		return "", fmt.Errorf("failed to post message as %s: %w", persona.Name, err)
	}

	log.Debug("📋 Completed successfully - posted message %s as %s", response.Timestamp, persona.Name)
	return response.Timestamp, nil
}
