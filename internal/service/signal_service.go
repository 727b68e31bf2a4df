package service

import (
	"context"
	"encoding/json"
	"time"

	"smartfeed-be/internal/model"
	"smartfeed-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const interactionTopic = "feed.interactions"

// ISignalService decouples interaction capture from preference learning.
// Signals are fire-and-forget: the HTTP handler publishes and returns,
// the consumer folds them into the taste model asynchronously.
type ISignalService interface {
	PublishInteraction(ctx context.Context, userID string, signal model.InteractionSignal) error
	Consume(ctx context.Context) error
}

type signalService struct {
	pubSub *gochannel.GoChannel
	stream *StreamService
	logger logger.ILogger
}

func NewSignalService(pubSub *gochannel.GoChannel, stream *StreamService, log logger.ILogger) ISignalService {
	return &signalService{
		pubSub: pubSub,
		stream: stream,
		logger: log,
	}
}

type interactionMessage struct {
	UserID string                  `json:"user_id"`
	Signal model.InteractionSignal `json:"signal"`
}

func (s *signalService) PublishInteraction(ctx context.Context, userID string, signal model.InteractionSignal) error {
	if signal.At.IsZero() {
		signal.At = time.Now()
	}

	payload, err := json.Marshal(interactionMessage{UserID: userID, Signal: signal})
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return s.pubSub.Publish(interactionTopic, msg)
}

// Consume drains the interaction topic until the context is cancelled.
// A malformed or unknown signal is logged and acked; interaction data is
// advisory and never worth a retry loop.
func (s *signalService) Consume(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, interactionTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.handle(ctx, msg)
			msg.Ack()
		}
	}()

	s.logger.Info("SignalService", "Interaction consumer started", nil)
	return nil
}

func (s *signalService) handle(ctx context.Context, msg *message.Message) {
	var im interactionMessage
	if err := json.Unmarshal(msg.Payload, &im); err != nil {
		s.logger.Warn("SignalService", "Malformed interaction dropped", map[string]interface{}{"error": err.Error()})
		return
	}
	if im.UserID == "" {
		s.logger.Warn("SignalService", "Interaction without user_id dropped", nil)
		return
	}

	tasteModel := s.stream.Taste(ctx, im.UserID)
	if err := tasteModel.RecordInteraction(ctx, im.Signal); err != nil {
		s.logger.Warn("SignalService", "Interaction rejected", map[string]interface{}{
			"user_id": im.UserID,
			"action":  string(im.Signal.Action),
			"error":   err.Error(),
		})
		return
	}

	s.logger.Debug("SignalService", "Preference updated", map[string]interface{}{
		"user_id": im.UserID,
		"action":  string(im.Signal.Action),
	})
}
