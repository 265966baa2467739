package updates

import (
	"context"
	"fmt"
	"time"

	"github.com/Shopify/sarama"
	"github.com/practice-sem-2/chat-service/internal/models"
	"github.com/samber/lo"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

type KafkaConfig struct {
	UpdatesTopic string
}

// KafkaPublisher forwards updates to a Kafka topic keyed by chat id, so all
// updates of a chat land in the same partition.
type KafkaPublisher struct {
	cfg      *KafkaConfig
	producer sarama.SyncProducer
}

func NewKafkaPublisher(p sarama.SyncProducer, cfg *KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{
		producer: p,
		cfg:      cfg,
	}
}

func (p *KafkaPublisher) Handle(_ context.Context, update models.Update) error {
	event, err := updateToProtobuf(update)
	if err != nil {
		return err
	}
	return p.putUpdate(p.cfg.UpdatesTopic, update.ChatKey(), event)
}

func (p *KafkaPublisher) putUpdate(topic, key string, event *structpb.Struct) error {
	bytes, err := proto.Marshal(event)
	if err != nil {
		return err
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(bytes),
	})

	return err
}

func updateToProtobuf(update models.Update) (*structpb.Struct, error) {
	var payload map[string]interface{}

	switch u := update.(type) {
	case *models.MessageSent:
		payload = map[string]interface{}{
			"message_id":      u.MessageID,
			"chat_id":         u.ChatID,
			"sender_id":       u.SenderID,
			"sender_name":     u.SenderName,
			"is_private_chat": u.IsPrivateChat,
			"content":         u.Content,
			"created_at":      u.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
	case *models.PrivateChatCreated:
		payload = map[string]interface{}{
			"chat_id":      u.ChatID,
			"participants": lo.ToAnySlice(u.Participants),
		}
	case *models.GroupChatCreated:
		payload = map[string]interface{}{
			"chat_id":      u.ChatID,
			"name":         u.Name,
			"creator_id":   u.CreatorID,
			"participants": lo.ToAnySlice(u.Participants),
		}
	case *models.UserAddedToGroup:
		payload = map[string]interface{}{
			"chat_id":  u.ChatID,
			"user_id":  u.UserID,
			"added_by": u.AddedBy,
		}
	default:
		return nil, fmt.Errorf("unsupported update type %T", update)
	}

	return structpb.NewStruct(map[string]interface{}{
		"type":      string(update.UpdateType()),
		"timestamp": update.OccurredAt().UTC().Format(time.RFC3339Nano),
		"payload":   payload,
	})
}
