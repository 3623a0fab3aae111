package internal

import (
	"fmt"
	"time"
)

type Config struct {
	BufferSize           int    `env:"BUFFER_SIZE,required=true"`
	ConnectionBufferSize int    `env:"CONNECTION_BUFFER_SIZE,required=true"`
	CharReplacement      string `env:"CHARACTER_REPLACEMENT,required=true"`
	LimitMessages        *int   `env:"LIMIT_MESSAGES"`
	MaxContentLength     int    `env:"MAX_CONTENT_LENGTH,required=true"`
	MaxMediaBytes        int64  `env:"MAX_MEDIA_BYTES,required=true"`
	SearchBatchSize      int    `env:"SEARCH_BATCH_SIZE,required=true"`

	WarnWindow            time.Duration `env:"WARN_WINDOW,required=true"`
	PresenceTTL           time.Duration `env:"PRESENCE_TTL,required=true"`
	PresenceSweepInterval time.Duration `env:"PRESENCE_SWEEP_INTERVAL,required=true"`
	HealthInterval        time.Duration `env:"HEALTH_INTERVAL,required=true"`
	AuthTokenDuration     time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`

	PaymentRetries int           `env:"PAYMENT_RETRIES,required=true"`
	PaymentBackoff time.Duration `env:"PAYMENT_BACKOFF,required=true"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,required=true"`
	JWTSecret      string `env:"JWT_SECRET"`
	Host           string `env:"HOST,required=true"`
	Port           int    `env:"PORT,required=true"`
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
