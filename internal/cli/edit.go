package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nuno18084/Ampflux-sub000/pkg/access"
	"github.com/nuno18084/Ampflux-sub000/pkg/editor"
)

// editCommand creates the "edit" command.
func (c *CLI) editCommand() *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "edit <project>",
		Short: "Open a project in the terminal canvas",
		Long:  `Edit opens an interactive canvas on a project. The cursor acts as the pointer: hold it down to drag components or pan, place parts from the palette, and wire them together. Edits mirror to the local snapshot cache as you go; save pushes a new version to the store.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			projectID := args[0]

			switch role {
			case string(access.RoleViewer), string(access.RoleEditor), string(access.RoleOwner):
			default:
				return fmt.Errorf("unknown role %q (want viewer, editor, or owner)", role)
			}

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			versions, closeStore, err := c.buildStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			snapCache, err := c.buildSnapshotCache(ctx, cfg)
			if err != nil {
				return fmt.Errorf("open snapshot cache: %w", err)
			}
			defer snapCache.Close()

			cat, err := c.buildCatalog(cfg)
			if err != nil {
				return err
			}

			opts := []editor.Option{
				editor.WithPermissions(access.ForRole(access.Role(role))),
				editor.WithMirror(editor.NewMirror(snapCache)),
				editor.WithStore(versions),
				editor.WithLogger(c.Logger),
			}
			if runner := c.buildRunner(cfg); runner != nil {
				opts = append(opts, editor.WithSimulator(runner))
			}

			sess := editor.NewSession(projectID, opts...)
			if err := sess.Load(ctx); err != nil {
				c.Logger.Warn("remote load failed, editing from local state", "err", err)
			}

			p := tea.NewProgram(newCanvasModel(sess, cat), tea.WithAltScreen(), tea.WithContext(ctx))
			_, err = p.Run()
			return err
		},
	}

	cmd.Flags().StringVar(&role, "role", "owner", "open as viewer, editor, or owner")
	return cmd
}
