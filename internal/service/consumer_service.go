package service

import (
	"context"
	"encoding/json"
	"log"

	"snapvalue-be/pkg/events"
	pktNats "snapvalue-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains the lifecycle topic and forwards each event to the
// NATS bus. Keeping the forwarding off the request path means HTTP handlers
// never wait on NATS, and a NATS outage degrades to local-only events.
type consumerService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	natsPub   *pktNats.Publisher
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	natsPub *pktNats.Publisher,
) IConsumerService {
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		natsPub:   natsPub,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var evt events.BaseEvent
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		log.Printf("[ERROR] Failed to unmarshal lifecycle event: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}
	if evt.Type == "" {
		log.Printf("[ERROR] Lifecycle event without a type, dropping")
		msg.Ack()
		return
	}

	if cs.natsPub == nil {
		// Running without NATS: the event feed stays local.
		msg.Ack()
		return
	}

	if err := cs.natsPub.Publish(ctx, evt); err != nil {
		log.Printf("[ERROR] Failed to forward %s to NATS: %v", evt.Type, err)
		msg.Nack() // Nack for retriable errors
		return
	}

	log.Printf("[INFO] Forwarded %s to NATS", evt.Type)
	msg.Ack()
}
