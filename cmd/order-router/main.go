// cmd/order-router/main.go
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"stockmesh/internal/pkg/bootstrap"
	"stockmesh/internal/pkg/httpclient"
	"stockmesh/internal/pkg/mq"
	"stockmesh/internal/service/router/application"
	"stockmesh/internal/service/router/domain"
	"stockmesh/internal/service/router/domain/port"
	"stockmesh/internal/service/router/infrastructure"
	"stockmesh/internal/service/router/interfaces"
)

const serviceName = "order-router"

// main 是路由服务的组装根：创建并组装所有依赖项，然后启动应用。
func main() {
	cfg := bootstrap.Init(serviceName)

	db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mysql")
	}
	if err := db.AutoMigrate(&domain.OrderSaga{}); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate saga schema")
	}

	var cache domain.CandidateCache
	switch cfg.Router.CacheBackend {
	case "redis":
		redisCache := infrastructure.NewRedisCandidateCache(cfg.Infra.Redis.Addr)
		if err := redisCache.Ping(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		cache = redisCache
	default:
		cache = infrastructure.NewMemoryCandidateCache()
	}

	policy, err := application.NewSelectionPolicy(cfg.Router.SelectionPolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid selection policy expression")
	}

	nodes := make([]port.Node, 0, len(cfg.Topology.Nodes))
	for _, n := range cfg.Topology.Nodes {
		nodes = append(nodes, port.Node{ID: n.ID, BaseURL: n.BaseURL})
	}
	topology := infrastructure.NewStaticTopology(nodes)

	tracer := otel.Tracer(serviceName)
	dispatcher := infrastructure.NewKafkaDispatcher(cfg.Infra.Kafka.Brokers)
	sagas := infrastructure.NewGormSagaRepository(db)

	router := application.NewRouterService(
		sagas,
		cache,
		topology,
		infrastructure.NewWarehousePurchaseClient(httpclient.NewClient(tracer)),
		dispatcher,
		dispatcher,
		policy,
		time.Duration(cfg.Router.ProbeTimeoutSeconds)*time.Second,
		tracer,
	)
	propagator := application.NewStatusPropagator(sagas, dispatcher, tracer)

	feedCtx, stopFeed := context.WithCancel(context.Background())
	feed := infrastructure.NewStockFeedHub(cache)
	go feed.Run(feedCtx)

	brokers := cfg.Infra.Kafka.Brokers
	workers := cfg.Router.Workers
	stockConsumer := mq.NewConsumer(brokers, serviceName+"-stock", mq.TopicStockChanged, workers,
		infrastructure.NewStockChangedHandler(cache, feed).Handle)
	acceptedConsumer := mq.NewConsumer(brokers, serviceName+"-accepted", mq.TopicOrderAccepted, workers,
		infrastructure.NewOrderAcceptedHandler(router).Handle)
	outcomeConsumer := mq.NewConsumer(brokers, serviceName+"-outcome", mq.TopicOrderOutcome, workers,
		infrastructure.NewOrderOutcomeHandler(propagator).Handle)

	stockConsumer.Start(context.Background())
	acceptedConsumer.Start(context.Background())
	outcomeConsumer.Start(context.Background())

	handler := interfaces.NewRouterHandler(router, cache, feed)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8090,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
			appCtx.Mux.Handle("/metrics", promhttp.Handler())
			appCtx.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
		},
		OnShutdown: func() {
			stockConsumer.Close()
			acceptedConsumer.Close()
			outcomeConsumer.Close()
			stopFeed()
			_ = dispatcher.Close()
		},
	})
}
