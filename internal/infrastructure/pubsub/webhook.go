package pubsub

import (
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/tdex-network/ctf-amm/internal/core/ports"
)

var topics = map[string]struct{}{
	ports.TopicTrade:      {},
	ports.TopicFunding:    {},
	ports.TopicFee:        {},
	ports.TopicStage:      {},
	ports.TopicWithdrawal: {},
	ports.TopicOwnership:  {},
	ports.AnyTopic:        {},
}

// IsValidTopic tells whether the given topic is known.
func IsValidTopic(topic string) bool {
	_, ok := topics[topic]
	return ok
}

// Webhook is an endpoint notified with the events of a topic. When a secret
// is set, requests carry a bearer token signed with it.
type Webhook struct {
	ID         string `json:"id"`
	EventTopic string `json:"topic"`
	URL        string `json:"url"`
	Secret     string `json:"secret"`
	CreatedAt  int64  `json:"created_at"`
}

type webhooks []Webhook

func (w webhooks) toPortable() []ports.Subscription {
	list := make([]ports.Subscription, 0, len(w))
	for i := range w {
		hook := w[i]
		list = append(list, &hook)
	}
	return list
}

func NewWebhook(topic, endpoint, secret string) (*Webhook, error) {
	if len(topic) <= 0 {
		return nil, ErrMissingTopic
	}
	if !IsValidTopic(topic) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	u, err := url.ParseRequestURI(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, ErrInvalidEndpoint
	}

	return &Webhook{
		ID:         uuid.New().String(),
		EventTopic: topic,
		URL:        endpoint,
		Secret:     secret,
		CreatedAt:  time.Now().Unix(),
	}, nil
}

func (h *Webhook) Topic() string {
	return h.EventTopic
}

func (h *Webhook) Id() string {
	return h.ID
}

func (h *Webhook) NotifyAt() string {
	return h.URL
}

func (h *Webhook) IsSecured() bool {
	return len(h.Secret) > 0
}
