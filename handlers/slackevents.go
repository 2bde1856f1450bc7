package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gammazero/workerpool"
	"github.com/gorilla/mux"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/jonit-dev/night-watch-cli-sub005/core/log"
	"github.com/jonit-dev/night-watch-cli-sub005/models"
)

const maxEventBodyBytes = 1 << 20

// EventRouter takes one inbound chat event
type EventRouter interface {
	TryRoute(ctx context.Context, event models.InboundEvent) bool
}

type SlackEventsHandler struct {
	signingSecret string
	router        EventRouter
	pool          *workerpool.WorkerPool
}

// NewSlackEventsHandler dispatches verified events onto pool. Slack wants an answer within
// three seconds, so routing never happens on the request goroutine.
func NewSlackEventsHandler(signingSecret string, router EventRouter, pool *workerpool.WorkerPool) *SlackEventsHandler {
	return &SlackEventsHandler{
		signingSecret: signingSecret,
		router:        router,
		pool:          pool,
	}
}

func (h *SlackEventsHandler) SetupEndpoints(router *mux.Router) {
	router.HandleFunc("/slack/events", h.HandleSlackEvent).Methods("POST")
}

// verifySlackSignature checks the request signature and timestamp freshness
func (h *SlackEventsHandler) verifySlackSignature(header http.Header, body []byte) error {
	verifier, err := slack.NewSecretsVerifier(header, h.signingSecret)
	if err != nil {
		return err
	}
	if _, err := verifier.Write(body); err != nil {
		return err
	}
	return verifier.Ensure()
}

func (h *SlackEventsHandler) HandleSlackEvent(w http.ResponseWriter, r *http.Request) {
	requestID := RequestIDFromContext(r.Context())
	log.Debug("📨 Slack event received from %s (request %s)", r.RemoteAddr, requestID)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBodyBytes))
	if err != nil {
		log.Error("❌ Failed to read request body: %v", err)
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if err := h.verifySlackSignature(r.Header, body); err != nil {
		log.Warn("⚠️ Slack signature verification failed (request %s): %v", requestID, err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	apiEvent, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		log.Error("❌ Failed to parse Slack event: %v", err)
		http.Error(w, "failed to parse body", http.StatusBadRequest)
		return
	}

	switch apiEvent.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			http.Error(w, "challenge not found", http.StatusBadRequest)
			return
		}
		log.Info("✅ Responding to Slack URL verification challenge")
		w.Header().Set("Content-Type", "text/plain")
		if _, err := w.Write([]byte(challenge.Challenge)); err != nil {
			log.Error("❌ Failed to write challenge response: %v", err)
		}
		return

	case slackevents.CallbackEvent:
		event, ok := toInboundEvent(apiEvent.InnerEvent)
		if !ok {
			log.Debug("📋 Ignoring Slack inner event of type %s", apiEvent.InnerEvent.Type)
			w.WriteHeader(http.StatusOK)
			return
		}

		// The request context ends with this response; routing must not
		ctx := context.WithoutCancel(r.Context())
		h.pool.Submit(func() {
			h.router.TryRoute(ctx, event)
		})
		w.WriteHeader(http.StatusOK)
		return
	}

	log.Debug("📋 Non-event callback received: %s", apiEvent.Type)
	w.WriteHeader(http.StatusOK)
}

// toInboundEvent converts the Slack inner events the router understands
func toInboundEvent(inner slackevents.EventsAPIInnerEvent) (models.InboundEvent, bool) {
	switch ev := inner.Data.(type) {
	case *slackevents.MessageEvent:
		return models.InboundEvent{
			Type:      models.InboundEventTypeMessage,
			SubType:   ev.SubType,
			BotID:     ev.BotID,
			UserID:    ev.User,
			ChannelID: ev.Channel,
			TS:        ev.TimeStamp,
			ThreadTS:  ev.ThreadTimeStamp,
			Text:      ev.Text,
		}, true
	case *slackevents.AppMentionEvent:
		return models.InboundEvent{
			Type:      models.InboundEventTypeAppMention,
			BotID:     ev.BotID,
			UserID:    ev.User,
			ChannelID: ev.Channel,
			TS:        ev.TimeStamp,
			ThreadTS:  ev.ThreadTimeStamp,
			Text:      ev.Text,
		}, true
	}
	return models.InboundEvent{}, false
}
