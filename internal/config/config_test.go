package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080, Environment: "development"},
		Database: DatabaseConfig{Driver: "sqlite", Path: "./test.db"},
		Auth:     AuthConfig{JWTSecret: "supersecretkey"},
		Alert: AlertConfig{
			Schedule:            "0 * * * *",
			Timezone:            "UTC",
			RepositoryTimeout:   time.Second,
			DispatchConcurrency: 1,
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "valid development config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "default secret in production",
			mutate: func(c *Config) {
				c.Server.Environment = "production"
			},
			wantErr: true,
		},
		{
			name: "invalid port",
			mutate: func(c *Config) {
				c.Server.Port = 70000
			},
			wantErr: true,
		},
		{
			name: "unsupported driver",
			mutate: func(c *Config) {
				c.Database.Driver = "mysql"
			},
			wantErr: true,
		},
		{
			name: "bad cron spec",
			mutate: func(c *Config) {
				c.Alert.Schedule = "every hour"
			},
			wantErr: true,
		},
		{
			name: "cron descriptor",
			mutate: func(c *Config) {
				c.Alert.Schedule = "@hourly"
			},
			wantErr: false,
		},
		{
			name: "unknown timezone",
			mutate: func(c *Config) {
				c.Alert.Timezone = "Mars/Olympus"
			},
			wantErr: true,
		},
		{
			name: "zero concurrency",
			mutate: func(c *Config) {
				c.Alert.DispatchConcurrency = 0
			},
			wantErr: true,
		},
		{
			name: "kafka enabled without topic",
			mutate: func(c *Config) {
				c.Kafka = KafkaConfig{Enabled: true, Brokers: []string{"localhost:9092"}, GroupID: "g"}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("ALERT_TIMEZONE", "America/New_York")
	t.Setenv("ALERT_DISPATCH_CONCURRENCY", "4")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("ALERT_REPOSITORY_TIMEOUT", "2s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Alert.DispatchConcurrency != 4 {
		t.Errorf("DispatchConcurrency = %d, want 4", cfg.Alert.DispatchConcurrency)
	}
	if cfg.Alert.RepositoryTimeout != 2*time.Second {
		t.Errorf("RepositoryTimeout = %v, want 2s", cfg.Alert.RepositoryTimeout)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Errorf("Brokers = %v, want [kafka-1:9092 kafka-2:9092]", cfg.Kafka.Brokers)
	}
	loc, err := cfg.Alert.Location()
	if err != nil || loc.String() != "America/New_York" {
		t.Errorf("Location() = %v, %v", loc, err)
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	pg := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", Name: "alerts", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=alerts sslmode=disable"
	if got := pg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}

	lite := DatabaseConfig{Driver: "sqlite", Path: "/tmp/a.db"}
	if got := lite.DSN(); got != "/tmp/a.db" {
		t.Errorf("DSN() = %q, want /tmp/a.db", got)
	}
}
