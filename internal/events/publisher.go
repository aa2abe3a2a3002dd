package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// EventType - тип события по marché.
type EventType string

const (
	RecoursCree       EventType = "recours.cree"         // Recours зарегистрирован
	RecoursMisAJour   EventType = "recours.mis_a_jour"   // Заполнен этап recours
	RecoursClos       EventType = "recours.clos"         // Recours закрыт с решением
	RecoursRetire     EventType = "recours.retire"       // Recours снят
	DelaiExpire       EventType = "recours.delai_expire" // Истёк срок по активному этапу
	MarcheAnnule      EventType = "marche.annule"        // Marché отменён
	MarcheInfructueux EventType = "marche.infructueux"   // Marché признан несостоявшимся
)

// Event - сообщение, публикуемое в брокер.
type Event struct {
	Type         EventType         `json:"type"`
	MarcheID     string            `json:"marche_id"`
	Reference    string            `json:"reference,omitempty"`
	RecoursType  string            `json:"recours_type,omitempty"`
	StatutGlobal string            `json:"statut_global,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	OccurredAt   time.Time         `json:"occurred_at"`
}

// Publisher публикует события по marchés.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Writer - подмножество kafka.Writer, подменяется в тестах.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// PublishTimeout ограничивает публикацию одного события.
const PublishTimeout = time.Second

// KafkaPublisher - реализация Publisher поверх kafka-go.
type KafkaPublisher struct {
	writer  Writer
	timeout time.Duration
}

// NewKafkaPublisher создаёт publisher, пишущий в topic на указанных брокерах.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return NewKafkaPublisherWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: PublishTimeout,
	})
}

// NewKafkaPublisherWithWriter создаёт publisher с готовым writer.
func NewKafkaPublisherWithWriter(w Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: w, timeout: PublishTimeout}
}

// Publish сериализует событие в JSON. Ключ сообщения - id marché,
// поэтому события одного marché попадают в одну партицию по порядку.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.MarcheID),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}

// Close закрывает writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Noop отбрасывает события, используется когда брокер не настроен.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
