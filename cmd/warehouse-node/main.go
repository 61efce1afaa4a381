// cmd/warehouse-node/main.go
package main

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"stockmesh/internal/pkg/bootstrap"
	"stockmesh/internal/pkg/mq"
	"stockmesh/internal/pkg/zklock"
	"stockmesh/internal/service/warehouse/application"
	"stockmesh/internal/service/warehouse/domain"
	"stockmesh/internal/service/warehouse/domain/port"
	"stockmesh/internal/service/warehouse/infrastructure"
	"stockmesh/internal/service/warehouse/interfaces"
)

const serviceName = "warehouse-node"

// main 是仓库节点的组装根：创建并组装所有依赖项，然后启动应用。
func main() {
	cfg := bootstrap.Init(serviceName)
	if cfg.Node.ID == "" {
		log.Fatal().Msg("node id is required (set node.id or NODE_ID)")
	}

	db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mysql")
	}
	if err := db.AutoMigrate(&domain.LedgerItem{}, &domain.LedgerEntry{}); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate ledger schema")
	}

	var locker port.ProductLocker
	switch cfg.Node.LockBackend {
	case "zookeeper":
		conn, err := zklock.Connect(cfg.Infra.Zookeeper.Servers)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to zookeeper")
		}
		locker = infrastructure.NewZkLocker(conn, cfg.Node.ID)
	default:
		locker = infrastructure.NewLocalLocker()
	}

	stockWriter := mq.NewWriter(cfg.Infra.Kafka.Brokers, mq.TopicStockChanged)
	outcomeWriter := mq.NewWriter(cfg.Infra.Kafka.Brokers, mq.TopicOrderOutcome)

	tracer := otel.Tracer(serviceName)
	ledger := application.NewLedgerService(
		cfg.Node.ID,
		infrastructure.NewGormItemRepository(db, cfg.Node.ID),
		infrastructure.NewGormEntryRepository(db),
		locker,
		infrastructure.NewStockProducerAdapter(stockWriter),
		tracer,
	)

	orderHandler := infrastructure.NewOrderConsumerHandler(ledger, infrastructure.NewOutcomeProducerAdapter(outcomeWriter), tracer)
	orderConsumer := mq.NewConsumer(
		cfg.Infra.Kafka.Brokers,
		serviceName+"-"+cfg.Node.ID,
		mq.OrderRoutedTopic(cfg.Node.ID),
		cfg.Router.Workers,
		orderHandler.Handle,
	)
	orderConsumer.Start(context.Background())

	handler := interfaces.NewLedgerHandler(ledger)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8091,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
			appCtx.Mux.Handle("/metrics", promhttp.Handler())
			appCtx.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
		},
		OnShutdown: func() {
			orderConsumer.Close()
			_ = stockWriter.Close()
			_ = outcomeWriter.Close()
		},
	})
}
