// README: Entry point; loads config, wires services, starts HTTP server and the dispatch sweeper.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"mealdrop/internal/config"
	"mealdrop/internal/geo"
	httptransport "mealdrop/internal/http"
	"mealdrop/internal/infra"
	"mealdrop/internal/modules/catalog"
	"mealdrop/internal/modules/delivery"
	"mealdrop/internal/modules/dispatch"
	"mealdrop/internal/modules/notify"
	"mealdrop/internal/modules/order"
	"mealdrop/internal/modules/payment"
	"mealdrop/internal/modules/profile"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	var transport notify.Transport
	if cfg.Kafka.Broker != "" {
		writer := infra.NewKafkaWriter(cfg.Kafka.Broker, cfg.Kafka.Topic)
		defer writer.Close()
		transport = notify.NewKafkaTransport(writer)
		log.Printf("notifications via kafka %s (%s)", cfg.Kafka.Broker, cfg.Kafka.Topic)
	} else {
		redisClient := infra.NewRedis(cfg.Redis.Addr)
		defer redisClient.Close()
		transport = notify.NewRedisTransport(redisClient)
		log.Printf("notifications via redis %s", cfg.Redis.Addr)
	}
	events := notify.NewRouter(transport)

	index := geo.NewIndex()
	gateway := payment.NewHTTPGateway(cfg.Payment.BaseURL)

	catalogStore := catalog.NewStore(dbPool)
	profileStore := profile.NewStore(dbPool)

	orderStore := order.NewPostgresStore(dbPool)
	orderSvc := order.NewService(orderStore, catalogStore, gateway, profileStore, events)

	deliveryStore := delivery.NewPostgresStore(dbPool)
	deliverySvc := delivery.NewService(deliveryStore, catalogStore, index, events)

	dispatchStore := dispatch.NewPostgresStore(dbPool)
	dispatchSvc := dispatch.NewService(dispatchStore, index, catalogStore, events, cfg.Dispatch)

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Order:    orderSvc,
		Delivery: deliverySvc,
		Dispatch: dispatchSvc,
		Profile:  profileStore,
		Index:    index,
		Catalog:  catalogStore,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}

	go dispatchSvc.RunSweeper(ctx)

	go func() {
		<-ctx.Done()
		if err := server.Shutdown(context.Background()); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("listening on %s", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
