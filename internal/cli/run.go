package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/clientflow/alertrunner/internal/domain/alert"
	"github.com/clientflow/alertrunner/internal/events"
)

const drainTimeout = 30 * time.Second

func newRunCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate every active schedule rule once",
		Long: `Evaluate every active schedule rule once and print the run summary.
Suitable for an external cron job in place of the in-process scheduler.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			defer a.drain(drainTimeout)

			summary, err := a.runner.RunScheduled(ctx)
			if summary != nil {
				if perr := printRunSummary(summary); perr != nil {
					return perr
				}
			}
			if err != nil {
				return fmt.Errorf("scheduled run: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "abort the run after this long (0 = no limit)")

	return cmd
}

func printRunSummary(s *alert.RunSummary) error {
	if getOutputFormat() != "table" {
		return printOutput(s)
	}

	t := NewTable("RULE", "TENANT", "STATUS", "ALERT", "DETAIL")
	for _, d := range s.Details {
		detail := d.Reason
		if d.Error != "" {
			detail = d.Error
		}
		t.AddRow(truncate(d.RuleName, 30), d.TenantID, formatStatus(d.Status), d.AlertID, truncate(detail, 40))
	}
	t.Render()

	fmt.Fprintf(stdout, "\nRules processed: %d  Sent: %d  Skipped: %d  Failed: %d\n",
		s.RulesProcessed, s.AlertsSent, s.AlertsSkipped, s.AlertsFailed)
	for _, re := range s.RuleErrors {
		fmt.Fprintf(stdout, "Rule %q could not be evaluated: %s\n", re.RuleName, re.Error)
	}
	return nil
}

func newTriggerCmd() *cobra.Command {
	var tenantID, customerID string
	var meta []string

	cmd := &cobra.Command{
		Use:   "trigger <event-type>",
		Short: "Evaluate the active rules for one business event",
		Example: `  alertrunner trigger payment_failed --tenant 7f1c...
  alertrunner trigger payment_failed --customer cus_123 --meta amount=49.00`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			metadata, err := parseMetadata(meta)
			if err != nil {
				return err
			}
			event := events.Event{
				EventType:        args[0],
				TenantID:         tenantID,
				StripeCustomerID: customerID,
				Metadata:         metadata,
			}
			if err := event.Validate(); err != nil {
				return err
			}

			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			defer a.drain(drainTimeout)

			result, err := events.Trigger(ctx, a.runner, event)
			if err != nil {
				return fmt.Errorf("trigger %s: %w", event.EventType, err)
			}
			return printEventResult(result)
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant ID")
	cmd.Flags().StringVar(&customerID, "customer", "", "billing customer ID, used when --tenant is not set")
	cmd.Flags().StringArrayVar(&meta, "meta", nil, "event metadata as key=value (repeatable)")

	return cmd
}

// parseMetadata turns key=value pairs into event metadata
func parseMetadata(pairs []string) (map[string]interface{}, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]interface{}, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid metadata %q, want key=value", p)
		}
		out[k] = v
	}
	return out, nil
}

func printEventResult(r *alert.EventResult) error {
	if getOutputFormat() != "table" {
		return printOutput(r)
	}
	if !r.Success {
		return fmt.Errorf("event not processed: %s", r.Error)
	}

	t := NewTable("RULE", "STATUS", "ALERT", "DETAIL")
	for _, o := range r.Results {
		detail := o.Reason
		if o.Error != "" {
			detail = o.Error
		}
		t.AddRow(truncate(o.RuleName, 30), formatStatus(o.Status), o.AlertID, truncate(detail, 40))
	}
	t.Render()
	fmt.Fprintf(stdout, "\nTenant: %s  Rules evaluated: %d\n", r.TenantID, len(r.Results))
	return nil
}
