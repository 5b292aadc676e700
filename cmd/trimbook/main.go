package main

import (
	availabilityhandler "trimbook/internal/availability/handler"
	availabilityrepo "trimbook/internal/availability/repository"
	availabilityservice "trimbook/internal/availability/service"
	"trimbook/internal/bookings/events"
	bookingshandler "trimbook/internal/bookings/handler"
	bookingsrepo "trimbook/internal/bookings/repository"
	bookingsservice "trimbook/internal/bookings/service"
	bookingsvalidator "trimbook/internal/bookings/validator"
	providershandler "trimbook/internal/providers/handler"
	providersrepo "trimbook/internal/providers/repository"
	providersservice "trimbook/internal/providers/service"
	providersvalidator "trimbook/internal/providers/validator"
	"trimbook/pkg/app"
	"trimbook/pkg/cache"
	"trimbook/pkg/config"
	"trimbook/pkg/contracts"
	"trimbook/pkg/kafka"
	kafka_config "trimbook/pkg/kafka/config"
	kafka_middleware "trimbook/pkg/kafka/middleware"
)

const ServiceName = "trimbook"

func main() {
	cfg := config.Load(ServiceName)

	cfg.Log.Info("Starting trimbook service")
	cfg.SetMongo()
	cfg.SetRedis()
	defer cfg.GracefulShutdown()

	producer := initProducer(cfg)
	defer func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	}()

	handlers := initHandlers(cfg, producer)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handlers...)
	serverApp.Run()
}

func initProducer(cfg *config.Config) *kafka.Producer {
	kafkaCfg := kafka_config.Load()
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.BookingEventsTopic, cfg.BookingEventsDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}

	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}

	cfg.Log.Info("Kafka producer initialized", "topic", cfg.BookingEventsTopic)
	return producer
}

func initHandlers(cfg *config.Config, producer *kafka.Producer) []contracts.Handler {
	slotCache := cache.NewRedisCache(cfg.Client.Redis)

	providerValidator := providersvalidator.NewProviderValidator(cfg.Log)
	providerRepo := providersrepo.NewMongoProviderRepository(cfg)
	providerService := providersservice.NewProviderService(providerRepo, providerValidator, cfg)

	dailyRepo := availabilityrepo.NewMongoDailyAvailabilityRepository(cfg)
	availabilityService := availabilityservice.NewAvailabilityService(providerRepo, dailyRepo, slotCache, cfg)

	bookingValidator := bookingsvalidator.NewBookingValidator(cfg.Log)
	bookingRepo := bookingsrepo.NewMongoBookingRepository(cfg)
	publisher := events.NewKafkaPublisher(producer, ServiceName)
	bookingService := bookingsservice.NewBookingService(
		bookingRepo,
		dailyRepo,
		providerRepo,
		bookingValidator,
		publisher,
		slotCache,
		cfg,
	)

	cfg.Log.Info("Services initialized", "database", cfg.MongoDatabaseName)

	return []contracts.Handler{
		providershandler.NewProviderHandler(providerService, cfg.Log),
		availabilityhandler.NewAvailabilityHandler(availabilityService, cfg.Log),
		bookingshandler.NewBookingHandler(bookingService, cfg.Log),
	}
}
