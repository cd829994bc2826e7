package kafka

import (
	"time"

	"github.com/DRSN-tech/digital-vault/internal/domain"
	"github.com/DRSN-tech/digital-vault/internal/usecase"
	"github.com/DRSN-tech/digital-vault/pkg/e"
	"github.com/jimlawless/whereami"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ProtoEventEncoder кодирует события товара в protobuf google.protobuf.Struct.
// Ключ приватного файла в событие не попадает.
type ProtoEventEncoder struct{}

func NewProtoEventEncoder() *ProtoEventEncoder {
	return &ProtoEventEncoder{}
}

func (ProtoEventEncoder) Encode(eventID string, eventType usecase.OutboxEventType, product *domain.Product, occurredAt time.Time) ([]byte, error) {
	previews := make([]any, 0, len(product.PreviewURLs))
	for _, url := range product.PreviewURLs {
		previews = append(previews, url)
	}

	event, err := structpb.NewStruct(map[string]any{
		"event_id":    eventID,
		"event_type":  string(eventType),
		"occurred_at": occurredAt.UTC().Format(time.RFC3339Nano),
		"product": map[string]any{
			"id":           product.ID,
			"title":        product.Title,
			"description":  product.Description,
			"price":        product.Price.StringFixed(2),
			"status":       string(product.Status),
			"category_id":  product.CategoryID,
			"user_id":      product.UserID,
			"preview_urls": previews,
		},
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return proto.Marshal(event)
}

// DecodeEvent разбирает событие, закодированное ProtoEventEncoder.
func DecodeEvent(payload []byte) (*structpb.Struct, error) {
	var event structpb.Struct
	if err := proto.Unmarshal(payload, &event); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &event, nil
}
