package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// versionsCommand creates the "versions" command.
func (c *CLI) versionsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "versions <project>",
		Short: "List a project's saved versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			projectID := args[0]

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			versions, closeStore, err := c.buildStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			records, err := versions.LatestVersions(ctx, projectID, limit)
			if err != nil {
				return fmt.Errorf("list versions: %w", err)
			}
			if len(records) == 0 {
				printInfo("No versions saved for %s", projectID)
				return nil
			}

			printInfo("%d versions of %s, newest first", len(records), projectID)
			for _, rec := range records {
				printDetail("v%-4d %s  %s", rec.Number, rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.ID)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum versions to list (0 for all)")
	return cmd
}
