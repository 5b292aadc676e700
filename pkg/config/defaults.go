package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "trimbook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisAddr     = "localhost:6379"
	DefaultRedisPassword = ""
	DefaultRedisDB       = 0

	DefaultPort = "8080"

	DefaultLogLevel = "info"

	// Width of a bookable slot. The one scheduling tunable: all generated
	// grids step by this many minutes.
	DefaultSlotWidthMinutes = 15

	DefaultSlotCacheTTL = 30 * time.Second

	DefaultBookingEventsTopic    = "trimbook.booking.events"
	DefaultBookingEventsDLQTopic = ""

	DefaultRateLimitRequests = 10
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100
)
