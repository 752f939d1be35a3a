package httpinterface

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/ctf-amm/internal/core/application"
	"github.com/tdex-network/ctf-amm/internal/core/ports"
)

const shutdownTimeout = 10 * time.Second

// ServiceOpts are the dependencies of the HTTP interface. PubSub and Metrics
// are optional, without them the webhook and metrics routes are not exposed.
type ServiceOpts struct {
	Port           int
	OperatorSecret string
	NoWebsocket    bool

	MarketSvc application.MarketMakerService
	LedgerSvc application.LedgerService
	PubSubSvc ports.PubSub
	Metrics   *Metrics
}

func (o ServiceOpts) validate() error {
	if o.MarketSvc == nil {
		return errors.New("missing market service")
	}
	if o.LedgerSvc == nil {
		return errors.New("missing ledger service")
	}
	if len(o.OperatorSecret) <= 0 {
		return errors.New("missing operator secret")
	}
	return nil
}

// Service serves the trader and operator REST API, the event stream and the
// metrics of the market over HTTP.
type Service struct {
	opts   ServiceOpts
	hub    *Hub
	router *gin.Engine
	server *http.Server
	cancel context.CancelFunc
}

func NewService(opts ServiceOpts) (*Service, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid opts: %s", err)
	}

	svc := &Service{opts: opts}
	if !opts.NoWebsocket {
		svc.hub = NewHub()
		opts.MarketSvc.RegisterHandlerForEvent(svc.hub.HandleEvent)
	}
	if opts.Metrics != nil {
		opts.MarketSvc.RegisterHandlerForEvent(opts.Metrics.HandleEvent)
	}
	svc.router = svc.newRouter()
	return svc, nil
}

// Handler returns the router of the service.
func (s *Service) Handler() http.Handler {
	return s.router
}

func (s *Service) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if s.hub != nil {
		go s.hub.Run(ctx)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.opts.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.server.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server stopped unexpectedly")
		}
	}()

	log.Infof("http server listening on port %d", s.opts.Port)
	return nil
}

func (s *Service) Stop() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("http server did not shut down gracefully")
		}
		log.Debug("stopped http server")
	}
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Service) newRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	h := handler{
		marketSvc: s.opts.MarketSvc,
		ledgerSvc: s.opts.LedgerSvc,
		pubsubSvc: s.opts.PubSubSvc,
	}
	signed := traderAuth(newNonceTracker())

	v1 := r.Group("/v1")

	v1.GET("/market", h.getMarket)
	v1.GET("/market/fee", h.calcMarketFee)
	v1.GET("/events", h.listEvents)
	v1.POST("/trade/preview", h.previewTrade)
	v1.POST("/trade", signed, h.trade)

	ledger := v1.Group("/ledger")
	ledger.GET("/balances/:address", h.getBalances)
	ledger.POST("/approve", signed, h.approveCollateral)
	ledger.POST("/approve-all", signed, h.approveOutcomeTokens)
	ledger.POST("/faucet", signed, h.faucet)

	operator := v1.Group("/operator", operatorAuth(s.opts.OperatorSecret))
	operator.POST("/pause", h.pause)
	operator.POST("/resume", h.resume)
	operator.POST("/close", h.close)
	operator.POST("/fee", h.changeFee)
	operator.POST("/funding", h.changeFunding)
	operator.POST("/withdraw", h.withdrawFees)
	operator.POST("/ownership", h.transferOwnership)
	if s.opts.PubSubSvc != nil {
		operator.GET("/webhooks", h.listWebhooks)
		operator.POST("/webhooks", h.addWebhook)
		operator.DELETE("/webhooks/:id", h.removeWebhook)
	}

	if s.hub != nil {
		r.GET("/ws", gin.WrapF(s.hub.serveWs))
	}
	if s.opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.opts.Metrics.Handler()))
	}

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).String(),
		}).Debug("http request")
	}
}
