package pubsub

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt"
	"github.com/sony/gobreaker"
	"github.com/tdex-network/ctf-amm/internal/core/ports"
	"github.com/tdex-network/ctf-amm/pkg/circuitbreaker"
	"go.uber.org/ratelimit"
	"golang.org/x/sync/errgroup"
)

const requestTimeout = 15 * time.Second

type service struct {
	store      WebhookStore
	httpClient *resty.Client
	cb         *gobreaker.CircuitBreaker
	limiter    ratelimit.Limiter
	pending    *sync.WaitGroup
}

// NewService returns a webhook pubsub service. Every subscriber endpoint is
// notified with a POST request, requests are limited to the given number per
// second overall.
func NewService(
	store WebhookStore, requestsPerSecond int,
) (ports.PubSub, error) {
	if store == nil {
		return nil, ErrNullStore
	}

	limiter := ratelimit.NewUnlimited()
	if requestsPerSecond > 0 {
		limiter = ratelimit.New(requestsPerSecond)
	}

	return &service{
		store:      store,
		httpClient: resty.New().SetTimeout(requestTimeout),
		cb:         circuitbreaker.NewCircuitBreaker("webhooks"),
		limiter:    limiter,
		pending:    &sync.WaitGroup{},
	}, nil
}

func (ws *service) Subscribe(topic, endpoint, secret string) (string, error) {
	sub, err := NewWebhook(topic, endpoint, secret)
	if err != nil {
		return "", err
	}
	if err := ws.store.Add(*sub); err != nil {
		return "", err
	}
	return sub.ID, nil
}

func (ws *service) Unsubscribe(_, id string) error {
	return ws.store.Remove(id)
}

func (ws *service) ListSubscriptionsForTopic(topic string) []ports.Subscription {
	subs, _ := ws.listSubscriptionsForTopic(topic)
	return subs.toPortable()
}

func (ws *service) Publish(topic string, message string) error {
	ws.pending.Add(1)
	defer ws.pending.Done()

	subs, err := ws.listSubscriptionsForTopic(topic)
	if err != nil {
		return err
	}

	eg := &errgroup.Group{}
	for i := range subs {
		sub := subs[i]
		eg.Go(func() error { return ws.doRequest(sub, message) })
	}
	return eg.Wait()
}

func (ws *service) Close() {
	ws.pending.Wait()
}

func (ws *service) listSubscriptionsForTopic(topic string) (webhooks, error) {
	subs, err := ws.store.ListForTopic(topic)
	if err != nil {
		return nil, err
	}
	if topic != ports.AnyTopic {
		subsForAnyTopic, err := ws.store.ListForTopic(ports.AnyTopic)
		if err != nil {
			return nil, err
		}
		subs = append(subs, subsForAnyTopic...)
	}
	return subs, nil
}

func (ws *service) doRequest(sub Webhook, payload string) error {
	ws.limiter.Take()

	_, err := ws.cb.Execute(func() (interface{}, error) {
		headers := map[string]string{
			"Content-Type": "application/json",
		}
		if sub.IsSecured() {
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
				IssuedAt: time.Now().Unix(),
				Subject:  sub.EventTopic,
			})
			tokenString, err := token.SignedString([]byte(sub.Secret))
			if err != nil {
				return nil, err
			}
			headers["Authorization"] = fmt.Sprintf("Bearer %s", tokenString)
		}

		resp, err := ws.httpClient.R().
			SetHeaders(headers).
			SetBody(payload).
			Post(sub.URL)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf(
				"webhook %s answered with status %d: %s",
				sub.ID, resp.StatusCode(), resp.String(),
			)
		}
		return nil, nil
	})

	return err
}
