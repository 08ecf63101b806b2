package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newWorkflowsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflows",
		Short: "Manage tenant workflows",
	}

	cmd.AddCommand(newWorkflowsProvisionCmd())
	cmd.AddCommand(newWorkflowsListCmd())

	return cmd
}

func newWorkflowsProvisionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "provision <tenant-id>...",
		Short: "Create or repair the default workflows for tenants",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			var failed int
			for _, tenantID := range args {
				result, err := a.workflows.CreateDefaultWorkflowsForTenant(ctx, tenantID)
				if err != nil {
					a.logger.With("tenant_id", tenantID).ErrorWithErr(err, "Workflow provisioning failed")
					failed++
					continue
				}

				if getOutputFormat() != "table" {
					if err := printOutput(result); err != nil {
						return err
					}
					continue
				}

				fmt.Fprintf(stdout, "Tenant %s: %d created, %d updated, %d unchanged, %d failed\n",
					tenantID, len(result.Created), len(result.Updated), len(result.Skipped), len(result.Failed))
				for _, f := range result.Failed {
					fmt.Fprintf(stdout, "  failed  %s: %s\n", f.Name, f.Error)
				}
				for _, w := range result.Warnings {
					fmt.Fprintf(stdout, "  warning %s\n", w)
				}
			}

			if failed > 0 {
				return fmt.Errorf("provisioning failed for %d of %d tenants", failed, len(args))
			}
			return nil
		},
	}
}

func newWorkflowsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <tenant-id>",
		Short: "List a tenant's workflows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			workflows, err := a.workflows.List(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to list workflows: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(workflows)
			}

			t := NewTable("ID", "NAME", "TRIGGER", "ACTIONS", "SYSTEM", "ACTIVE")
			for _, w := range workflows {
				t.AddRow(w.ID, truncate(w.Name, 40), w.TriggerType, strconv.Itoa(len(w.Actions)),
					strconv.FormatBool(w.IsSystem), strconv.FormatBool(w.Active))
			}
			t.Render()
			return nil
		},
	}
}
