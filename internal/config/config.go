package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

type Environment string

const (
	EnvLocal      Environment = "local"
	EnvDev        Environment = "dev"
	EnvStage      Environment = "stage"
	EnvProduction Environment = "production"
)

type CacheDriver string

const (
	CacheDriverMemory CacheDriver = "memory"
	CacheDriverRedis  CacheDriver = "redis"
)

// Comparability strategy sets for the inter-appointment rule, see rules.go
const (
	StrategyInsurance           = "insurance"
	StrategyOccupationArea      = "occupationArea"
	StrategyDoctor              = "doctor"
	StrategyProcedureSpeciality = "procedureSpeciality"
)

type ConfigBasicClient struct {
	Username string
	Password string
}

type Config struct {
	App struct {
		Version  string      `env:"APP_VERSION" envDefault:"local"`
		Env      Environment `env:"APP_ENV" envDefault:"local"`
		Timezone string      `env:"APP_TIMEZONE" envDefault:"America/Sao_Paulo"`
	}

	HTTP struct {
		Port string `env:"HTTP_SERVER_PORT" envDefault:"8080"`
		Host string `env:"HTTP_SERVER_HOST" envDefault:"localhost"`
	}

	Auth struct {
		BasicClientsString string `env:"AUTH_BASIC_CLIENTS" envDefault:"availability_resolver:availability_resolver"`
		BasicClients       []ConfigBasicClient
	}

	Upstream struct {
		URL            string `env:"UPSTREAM_URL"`
		Username       string `env:"UPSTREAM_USERNAME"`
		Password       string `env:"UPSTREAM_PASSWORD"`
		TimeoutSeconds int    `env:"UPSTREAM_TIMEOUT_SECONDS" envDefault:"10"`
	}

	Integration struct {
		Code string `env:"INTEGRATION_CODE" envDefault:"clinic"`

		InterAppointmentEnabled  bool   `env:"INTER_APPOINTMENT_ENABLED" envDefault:"true"`
		InterAppointmentStrategy string `env:"INTER_APPOINTMENT_STRATEGY" envDefault:"insurance"`
		DefaultPeriodDays        int    `env:"INTER_APPOINTMENT_DEFAULT_PERIOD" envDefault:"30"`

		// Doctor discovery probe when no organization unit is known
		ProbeWindowDays int `env:"DOCTOR_PROBE_WINDOW_DAYS" envDefault:"7"`
		ProbeLimit      int `env:"DOCTOR_PROBE_LIMIT" envDefault:"30"`

		// Booking capability defaults applied during normalization
		CanCancel     bool `env:"BOOKING_CAN_CANCEL" envDefault:"true"`
		CanConfirm    bool `env:"BOOKING_CAN_CONFIRM" envDefault:"true"`
		CanReschedule bool `env:"BOOKING_CAN_RESCHEDULE" envDefault:"true"`
	}

	Cache struct {
		Enabled           bool        `env:"CACHE_ENABLED" envDefault:"true"`
		Driver            CacheDriver `env:"CACHE_DRIVER" envDefault:"memory"`
		Size              int         `env:"CACHE_SIZE" envDefault:"1000"`
		HistoryTTLSeconds int         `env:"CACHE_HISTORY_TTL_SECONDS" envDefault:"300"`
		UnitsTTLSeconds   int         `env:"CACHE_UNITS_TTL_SECONDS" envDefault:"1800"`

		RedisAddr     string `env:"CACHE_REDIS_ADDR" envDefault:"127.0.0.1:6379"`
		RedisUsername string `env:"CACHE_REDIS_USERNAME"`
		RedisPassword string `env:"CACHE_REDIS_PASSWORD"`
	}

	RabbitMQ struct {
		Enabled  bool   `env:"RABBITMQ_ENABLED"`
		URL      string `env:"RABBITMQ_URL"`
		Queue    string `env:"RABBITMQ_APPOINTMENT_QUEUE" envDefault:"availability-resolver.appointment"`
		Exchange string `env:"RABBITMQ_APPOINTMENT_EXCHANGE" envDefault:"clinic.events"`
		Bind     string `env:"RABBITMQ_APPOINTMENT_BIND" envDefault:"clinic.appointment.#"`
	}
}

func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Lowercase the environment for uniformity
	cfg.App.Env = Environment(strings.ToLower(string(cfg.App.Env)))

	switch cfg.Integration.InterAppointmentStrategy {
	case StrategyInsurance, StrategyOccupationArea, StrategyDoctor, StrategyProcedureSpeciality:
	default:
		return nil, fmt.Errorf("unknown inter-appointment strategy: %s", cfg.Integration.InterAppointmentStrategy)
	}

	// Split the basic auth client pairs
	if cfg.Auth.BasicClients == nil {
		cfg.Auth.BasicClients = []ConfigBasicClient{}
	}
	clientPairs := strings.Split(cfg.Auth.BasicClientsString, ",")
	for _, pair := range clientPairs {
		parts := strings.Split(pair, ":")
		if len(parts) == 2 {
			cfg.Auth.BasicClients = append(cfg.Auth.BasicClients, ConfigBasicClient{
				Username: parts[0],
				Password: parts[1],
			})
		}
	}

	return cfg, nil
}

func (c *Config) HistoryTTL() time.Duration {
	return time.Duration(c.Cache.HistoryTTLSeconds) * time.Second
}

func (c *Config) UnitsTTL() time.Duration {
	return time.Duration(c.Cache.UnitsTTLSeconds) * time.Second
}

func (c *Config) IsLocal() bool {
	return c.App.Env == EnvLocal
}

func (c *Config) IsNotLocal() bool {
	return c.App.Env == EnvDev || c.App.Env == EnvStage || c.App.Env == EnvProduction
}
