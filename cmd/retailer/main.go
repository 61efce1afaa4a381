// cmd/retailer/main.go
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
	"stockmesh/internal/pkg/httpclient"
	"stockmesh/internal/pkg/mq"
	"stockmesh/internal/service/retailer/application"
	"stockmesh/internal/service/retailer/domain"
	"stockmesh/internal/service/retailer/infrastructure"
	"stockmesh/internal/service/retailer/interfaces"
)

const serviceName = "retailer"

// main 是发起方的组装根：创建并组装所有依赖项，然后启动应用。
func main() {
	cfg := bootstrap.Init(serviceName)
	if cfg.Origin.ID == "" {
		log.Fatal().Msg("origin id is required (set origin.id or ORIGIN_ID)")
	}

	db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mysql")
	}
	if err := db.AutoMigrate(
		&domain.OriginInventory{},
		&domain.OriginInventoryHistory{},
		&domain.Purchase{},
		&domain.Sale{},
		&domain.OrderTracking{},
	); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate retailer schema")
	}

	tracer := otel.Tracer(serviceName)
	inventory := infrastructure.NewGormInventoryRepository(db)
	history := infrastructure.NewGormHistoryRepository(db)
	purchases := infrastructure.NewGormPurchaseRepository(db)
	sales := infrastructure.NewGormSaleRepository(db)
	tracking := infrastructure.NewGormTrackingRepository(db)

	retailer := application.NewRetailerService(
		cfg.Origin.ID,
		infrastructure.NewRouterOrderClient(httpclient.NewClient(tracer), cfg.Origin.RouterURL),
		inventory,
		history,
		sales,
		tracking,
		tracer,
	)
	reconciler := application.NewReconcilerService(cfg.Origin.ID, inventory, history, purchases, tracking, tracer)

	outcomeConsumer := mq.NewConsumer(
		cfg.Infra.Kafka.Brokers,
		serviceName+"-"+cfg.Origin.ID,
		mq.OriginOutcomeTopic(cfg.Origin.ID),
		cfg.Router.Workers,
		infrastructure.NewOutcomeConsumerHandler(reconciler).Handle,
	)
	outcomeConsumer.Start(context.Background())

	handler := interfaces.NewRetailerHandler(retailer)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8092,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
			appCtx.Mux.Handle("/metrics", promhttp.Handler())
			appCtx.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
		},
		OnShutdown: func() {
			outcomeConsumer.Close()
		},
	})
}
