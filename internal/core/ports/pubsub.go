package ports

// Topics the market events are published for. AnyTopic subscribers receive
// the events of every topic.
const (
	AnyTopic        = "*"
	TopicTrade      = "trade"
	TopicFunding    = "funding"
	TopicFee        = "fee"
	TopicStage      = "stage"
	TopicWithdrawal = "withdrawal"
	TopicOwnership  = "ownership"
)

type Subscription interface {
	Topic() string
	Id() string
	IsSecured() bool
	NotifyAt() string
}

// PubSub defines the methods of a webhook pubsub service.
type PubSub interface {
	// Subscribe adds a new subscription for the requested topic.
	Subscribe(topic, endpoint, secret string) (string, error)
	// Unsubscribe removes some client defined by its id for a topic.
	Unsubscribe(topic, id string) error
	// ListSubscriptionsForTopic returns the info of all clients subscribed for
	// a certain topic.
	ListSubscriptionsForTopic(topic string) []Subscription
	// Publish publishes a message for a certain topic. All clients subscribed
	// for such topic will receive the message.
	Publish(topic string, message string) error
	// Close waits for pending notifications.
	Close()
}
