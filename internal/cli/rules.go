package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/clientflow/alertrunner/internal/domain/alert"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage alert rules",
	}

	cmd.AddCommand(newRulesListCmd())
	cmd.AddCommand(newRulesOptionsCmd())
	cmd.AddCommand(newRulesSeedCmd())
	cmd.AddCommand(newRulesLogsCmd())

	return cmd
}

func newRulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rules with their dispatch counts over the last 24 hours",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			rules, err := a.rules.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list rules: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(rules)
			}

			t := NewTable("ID", "NAME", "TRIGGER", "TYPE", "SEVERITY", "ACTIVE", "SENT 24H", "FAILED 24H")
			for _, r := range rules {
				t.AddRow(
					r.ID,
					truncate(r.Name, 40),
					r.TriggerType,
					r.AlertType(),
					formatSeverity(r.Severity),
					strconv.FormatBool(r.Active),
					strconv.Itoa(r.RecentStats.Sent),
					strconv.Itoa(r.RecentStats.Failed),
				)
			}
			t.Render()
			return nil
		},
	}
}

func newRulesOptionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "Show the schedule types, event types and filter options rules may use",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := alert.AllOptions()
			if getOutputFormat() != "table" {
				return printOutput(opts)
			}

			t := NewTable("KIND", "VALUE", "LABEL")
			for _, o := range opts.ScheduleTypes {
				t.AddRow("schedule", fmt.Sprint(o.Value), o.Label)
			}
			for _, o := range opts.EventTypes {
				t.AddRow("event", fmt.Sprint(o.Value), o.Label)
			}
			t.Render()
			return nil
		},
	}
}

func newRulesSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the default rules that do not exist yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.rules.SeedDefaults(ctx)
			if err != nil {
				return fmt.Errorf("failed to seed rules: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(results)
			}

			t := NewTable("NAME", "STATUS", "ID")
			for _, r := range results {
				t.AddRow(r.Name, formatStatus(r.Status), r.ID)
			}
			t.Render()
			return nil
		},
	}
}

func newRulesLogsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "logs <rule-id>",
		Short: "Show a rule's most recent dispatch log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			logs, err := a.rules.Logs(ctx, args[0], limit)
			if err != nil {
				return fmt.Errorf("failed to load rule logs: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(logs)
			}

			t := NewTable("TIME", "TENANT", "STATUS", "ALERT", "ERROR")
			for _, l := range logs {
				t.AddRow(l.CreatedAt.Format("2006-01-02 15:04:05"), l.TenantID, formatStatus(l.Status), l.AlertID, truncate(l.Error, 40))
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entries to show")

	return cmd
}
