package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/config"
	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/domain/event"
	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/infra/mq"
	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/infra/outbox"
	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/infra/repository/db"
	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/pkg/logger"
	"github.com/GentritMahmuti/EcommerceAPI-sub000/internal/pkg/metrics"
)

// outbox drainer worker
// 結帳交易寫進 outbox 的事件由這個進程發到 kafka
// API 層在別的模組，從那邊 import internal/service 組裝
func main() {
	cf := config.GetConfig()
	log := logger.New(cf.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.GetDbConn(cf.DbName, cf.DbHost, cf.DbPort, cf.DbUser, cf.DbPas)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	dao := db.NewDbDao(conn)
	if err := dao.InitMigrate(); err != nil {
		log.Fatal().Err(err).Msg("db migrate failed")
	}

	producer, err := mq.New(&mq.Config{
		Brokers:      cf.Brokers(),
		Topics:       []string{event.TopicOrderConfirmations, event.TopicLowStock},
		RequiredAcks: 1,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("kafka producer init failed")
	}
	defer producer.Close()

	m := metrics.NewCheckoutMetrics(cf.ServiceName)

	drainer := outbox.NewDrainer(db.NewOutboxRepo(dao), producer, cf.OutboxDrainInterval(), cf.OutboxBatchSize, log, m)
	drainer.Start(ctx)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(":"+cf.MetricsPort, mux); err != nil {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	log.Info().Msg("outbox drainer started")
	<-ctx.Done()
	drainer.Wait()
	log.Info().Msg("outbox drainer stopped")
}
