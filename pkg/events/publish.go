package events

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog/log"
)

// PublisherManager distributes branching events to a set of watermill
// Publishers. A publisher is "subscribed" to a topic; every published
// event goes out to all publishers on the topic they were subscribed
// with, carrying a monotonically increasing sequence number in the
// message metadata.
type PublisherManager struct {
	Publishers     map[string][]message.Publisher
	sequenceNumber uint64
	mutex          sync.Mutex
}

func NewPublisherManager() *PublisherManager {
	return &PublisherManager{
		Publishers: make(map[string][]message.Publisher),
	}
}

func (s *PublisherManager) SubscribePublisher(topic string, pub message.Publisher) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.Publishers[topic] = append(s.Publishers[topic], pub)
}

// Publish serializes the event to JSON and distributes it to all
// subscribed publishers. Returns an error for serialization or
// distribution issues.
func (s *PublisherManager) Publish(ev Event) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), b)
	msg.Metadata.Set("sequence_number", fmt.Sprintf("%d", s.sequenceNumber))
	msg.Metadata.Set("event_type", string(ev.Type))
	s.sequenceNumber++

	for topic, pubs := range s.Publishers {
		for _, pub := range pubs {
			if err := pub.Publish(topic, msg); err != nil {
				return err
			}
		}
	}

	return nil
}

// PublishOrLog publishes best-effort: distribution failures are logged
// and swallowed, so callers on the hot path never fail on observability.
func (s *PublisherManager) PublishOrLog(ev Event) {
	if err := s.Publish(ev); err != nil {
		log.Warn().Err(err).Str("type", string(ev.Type)).Msg("could not publish event")
	}
}
