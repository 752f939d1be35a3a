package pubsub

import "errors"

var (
	// ErrNullStore specifies that a subscription store is required.
	ErrNullStore = errors.New("subscription store must not be null")
	// ErrMissingTopic ...
	ErrMissingTopic = errors.New("missing topic")
	// ErrUnknownTopic is returned whenever attempting to subscribe to an unknown
	// topic.
	ErrUnknownTopic = errors.New("topic is unknown")
	// ErrInvalidEndpoint ...
	ErrInvalidEndpoint = errors.New("webhook endpoint must be a valid URI")
	// ErrSubscriptionNotFound ...
	ErrSubscriptionNotFound = errors.New("webhook not found")
)
