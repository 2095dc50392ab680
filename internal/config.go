package internal

import (
	"fmt"
	"time"
)

// Config is loaded from the environment by cmd/server via
// env.UnmarshalFromEnviron.
type Config struct {
	LogLevel        string `env:"LOG_LEVEL,required=true"`
	CharReplacement string `env:"CHARACTER_REPLACEMENT,required=true"`

	// Rooms
	RoomIdleWindow   time.Duration `env:"ROOM_IDLE_WINDOW,required=true"`
	EvictionInterval time.Duration `env:"EVICTION_INTERVAL,required=true"`
	MaxTurnHistory   int           `env:"MAX_TURN_HISTORY,required=true"`
	MaxChatLog       int           `env:"MAX_CHAT_LOG,required=true"`

	// Broadcast / batching
	MaxSubscriptionsPerUser int           `env:"MAX_SUBSCRIPTIONS_PER_USER,required=true"`
	SubscriptionIdleTimeout time.Duration `env:"SUBSCRIPTION_IDLE_TIMEOUT,required=true"`
	SweepInterval           time.Duration `env:"SWEEP_INTERVAL,required=true"`
	DeliveryTimeout         time.Duration `env:"DELIVERY_TIMEOUT,required=true"`
	BatchFlushDelay         time.Duration `env:"BATCH_FLUSH_DELAY,required=true"`
	MaxBatchSize            int           `env:"MAX_BATCH_SIZE,required=true"`
	MaxPendingDeltas        int           `env:"MAX_PENDING_DELTAS,required=true"`

	// Memory monitor
	MemorySampleInterval time.Duration `env:"MEMORY_SAMPLE_INTERVAL,required=true"`
	MemoryHistoryLimit   int           `env:"MEMORY_HISTORY_LIMIT,required=true"`
	MemoryWarnMB         uint64        `env:"MEMORY_WARN_MB,required=true"`
	MemoryCriticalMB     uint64        `env:"MEMORY_CRITICAL_MB,required=true"`

	// Collector
	GCInterval        time.Duration `env:"GC_INTERVAL,required=true"`
	GCMinInterval     time.Duration `env:"GC_MIN_INTERVAL,required=true"`
	GCMaxInterval     time.Duration `env:"GC_MAX_INTERVAL,required=true"`
	GCGrowthThreshold float64       `env:"GC_GROWTH_THRESHOLD_MB_PER_MIN,required=true"`

	// Leak detector
	LeakScanInterval   time.Duration `env:"LEAK_SCAN_INTERVAL,required=true"`
	LeakGrowthPerMin   float64       `env:"LEAK_GROWTH_PER_MIN,required=true"`
	LeakSustainWindows int           `env:"LEAK_SUSTAIN_WINDOWS,required=true"`
	TimerCeiling       int           `env:"TIMER_CEILING,required=true"`
	SubscriberCeiling  int           `env:"SUBSCRIBER_CEILING,required=true"`

	// Optimizer
	OptimizeInterval time.Duration `env:"OPTIMIZE_INTERVAL,required=true"`
	OptimizeMinRefs  int           `env:"OPTIMIZE_MIN_REFS,required=true"`
	OptimizeThrottle time.Duration `env:"OPTIMIZE_THROTTLE,required=true"`
}

// Default returns the configuration used by the viewer tool and the
// e2e harness, where requiring a full environment would be hostile.
func Default() Config {
	return Config{
		LogLevel:                "INFO",
		CharReplacement:         "*",
		RoomIdleWindow:          30 * time.Minute,
		EvictionInterval:        time.Minute,
		MaxTurnHistory:          200,
		MaxChatLog:              100,
		MaxSubscriptionsPerUser: 10,
		SubscriptionIdleTimeout: 15 * time.Minute,
		SweepInterval:           time.Minute,
		DeliveryTimeout:         5 * time.Second,
		BatchFlushDelay:         100 * time.Millisecond,
		MaxBatchSize:            50,
		MaxPendingDeltas:        500,
		MemorySampleInterval:    30 * time.Second,
		MemoryHistoryLimit:      120,
		MemoryWarnMB:            512,
		MemoryCriticalMB:        1024,
		GCInterval:              15 * time.Second,
		GCMinInterval:           30 * time.Second,
		GCMaxInterval:           10 * time.Minute,
		GCGrowthThreshold:       50,
		LeakScanInterval:        time.Minute,
		LeakGrowthPerMin:        10,
		LeakSustainWindows:      3,
		TimerCeiling:            1000,
		SubscriberCeiling:       10000,
		OptimizeInterval:        5 * time.Minute,
		OptimizeMinRefs:         3,
		OptimizeThrottle:        30 * time.Second,
	}
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
