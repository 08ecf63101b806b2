package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clientflow/alertrunner/internal/config"
)

const redacted = "********"

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			entries := configEntries(redact(cfg))
			if getOutputFormat() != "table" {
				out := make(map[string]string, len(entries))
				for _, e := range entries {
					out[e[0]] = e[1]
				}
				return printOutput(out)
			}

			t := NewTable("KEY", "VALUE")
			for _, e := range entries {
				t.AddRow(e[0], e[1])
			}
			t.Render()
			return nil
		},
	})

	return cmd
}

// redact returns a copy of cfg with credentials masked
func redact(cfg *config.Config) config.Config {
	c := *cfg
	mask := func(s *string) {
		if *s != "" {
			*s = redacted
		}
	}
	mask(&c.Database.Password)
	mask(&c.Auth.JWTSecret)
	mask(&c.Redis.Password)
	mask(&c.Notification.SlackWebhookURL)
	mask(&c.Notification.PushWebhookURL)
	mask(&c.Notification.PushSecret)
	return c
}

func configEntries(c config.Config) [][2]string {
	return [][2]string{
		{"server.addr", fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)},
		{"server.environment", c.Server.Environment},
		{"server.rate_limit", fmt.Sprintf("%g/s burst %d", c.Server.RateLimit, c.Server.RateBurst)},
		{"database.driver", c.Database.Driver},
		{"database.path", c.Database.Path},
		{"database.host", fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port)},
		{"database.name", c.Database.Name},
		{"database.user", c.Database.User},
		{"database.password", c.Database.Password},
		{"auth.jwt_secret", c.Auth.JWTSecret},
		{"auth.access_token_expiry", c.Auth.AccessTokenExpiry.String()},
		{"redis.enabled", fmt.Sprint(c.Redis.Enabled)},
		{"redis.addr", c.Redis.Addr()},
		{"redis.password", c.Redis.Password},
		{"kafka.enabled", fmt.Sprint(c.Kafka.Enabled)},
		{"kafka.brokers", strings.Join(c.Kafka.Brokers, ",")},
		{"kafka.topic", c.Kafka.Topic},
		{"kafka.group_id", c.Kafka.GroupID},
		{"logging.level", c.Logging.Level},
		{"logging.format", c.Logging.Format},
		{"alert.schedule", c.Alert.Schedule},
		{"alert.scheduler_enabled", fmt.Sprint(c.Alert.SchedulerEnabled)},
		{"alert.timezone", c.Alert.Timezone},
		{"alert.repository_timeout", c.Alert.RepositoryTimeout.String()},
		{"alert.notify_timeout", c.Alert.NotifyTimeout.String()},
		{"alert.dispatch_concurrency", fmt.Sprint(c.Alert.DispatchConcurrency)},
		{"notification.slack_webhook_url", c.Notification.SlackWebhookURL},
		{"notification.slack_channel", c.Notification.SlackChannel},
		{"notification.push_webhook_url", c.Notification.PushWebhookURL},
		{"notification.push_secret", c.Notification.PushSecret},
		{"notification.app_url", c.Notification.AppURL},
	}
}
