package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const DriverMemory = "memory"

// Config is read from RAFFLE_* environment variables.
type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	// DBDriver is one of sqlite, postgres or memory.
	DBDriver string `envconfig:"DB_DRIVER" default:"sqlite"`
	DBDSN    string `envconfig:"DB_DSN" default:"file:raffle.db?_pragma=foreign_keys(1)"`

	// Events are published only when AMQPURL is set.
	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"raffle.exchange"`

	LogFile string `envconfig:"LOG_FILE"`
	Verbose bool   `envconfig:"VERBOSE" default:"true"`

	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Load reads an optional .env file and then the environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	// A missing .env file is not an error.
	_ = godotenv.Load(envFiles...)

	var c Config
	if err := envconfig.Process("raffle", &c); err != nil {
		return Config{}, err
	}
	switch c.DBDriver {
	case "sqlite", "postgres", DriverMemory:
	default:
		return Config{}, fmt.Errorf("RAFFLE_DB_DRIVER: unsupported driver %q", c.DBDriver)
	}
	return c, nil
}
