package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/resourcehub/internal/apperror"
	"github.com/sakif/resourcehub/internal/service"
)

// likeWait bounds how long `hub like` waits for the server's copy.
const likeWait = 15 * time.Second

func (c *cli) feedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "feed",
		Short: "List everything shared on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			resources, err := a.Feed.Feed(cmd.Context())
			if err != nil {
				return err
			}
			printResources(c.out, resources, "Nothing has been shared yet.")
			return nil
		},
	}
}

func (c *cli) mineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List your own resources",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			profile := a.NewProfile()
			resources, err := profile.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			printIdentity(c.out, profile.Owner())
			printResources(c.out, resources, "You haven't shared anything yet.")
			return nil
		},
	}
}

func (c *cli) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one resource with its likes and comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDetail(cmd, args[0], func(ctx context.Context, view *service.ResourceDetail) error {
				printDetail(c.out, view.Snapshot())
				return nil
			})
		},
	}
}

func (c *cli) likeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "like <id>",
		Short: "Like a resource, or unlike it if you already do",
		Long: `Toggle your like on a resource.

The new state is shown at once, then confirmed against the server.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDetail(cmd, args[0], func(ctx context.Context, view *service.ResourceDetail) error {
				if err := view.ToggleLike(ctx); err != nil {
					return err
				}
				printLikeLine(c.out, view.Snapshot())

				waitCtx, cancel := context.WithTimeout(ctx, likeWait)
				defer cancel()
				if err := view.WaitReconciled(waitCtx); err != nil {
					return fmt.Errorf("waiting for the server: %w", err)
				}

				snap := view.Snapshot()
				if snap.State == service.StateErrored {
					return fmt.Errorf("refreshing resource: %s", snap.Error)
				}
				printLikeLine(c.out, snap)
				return nil
			})
		},
	}
}

func (c *cli) commentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comment <id> <text>",
		Short: "Comment on a resource",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDetail(cmd, args[0], func(ctx context.Context, view *service.ResourceDetail) error {
				comment, err := view.AddComment(ctx, args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "Comment %d added.\n", comment.ID)
				return nil
			})
		},
	}
}

func (c *cli) uncommentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uncomment <id> <comment-id>",
		Short: "Delete one of your comments",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			commentID, err := parseID("comment-id", args[1])
			if err != nil {
				return err
			}
			return c.withDetail(cmd, args[0], func(ctx context.Context, view *service.ResourceDetail) error {
				if err := view.DeleteComment(ctx, commentID); err != nil {
					return err
				}
				fmt.Fprintf(c.out, "Comment %d deleted.\n", commentID)
				return nil
			})
		},
	}
}

func (c *cli) createCmd() *cobra.Command {
	var form service.ResourceForm
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Share a new resource",
		Example: `  hub create --title "Go Tour" --description "Learn Go" \
    --url https://go.dev/tour --type TUTORIAL --tags "go, beginner"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			created, err := a.NewProfile().Create(cmd.Context(), form)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Created resource %d.\n", created.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&form.Title, "title", "", "title")
	cmd.Flags().StringVar(&form.Description, "description", "", "description")
	cmd.Flags().StringVar(&form.URL, "url", "", "link")
	cmd.Flags().StringVar(&form.Type, "type", "", "type, e.g. ARTICLE or TUTORIAL")
	cmd.Flags().StringVar(&form.Tags, "tags", "", "comma-separated tags")
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one of your resources",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("id", args[0])
			if err != nil {
				return err
			}
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			profile := a.NewProfile()
			// Best effort: the prompt names the resource when the list loads.
			if _, err := profile.Refresh(cmd.Context()); err != nil {
				c.logger.Debug("profile refresh before delete failed", slog.String("error", err.Error()))
			}

			confirm := newPrompter(c.in, c.out).confirmer()
			if yes {
				confirm = service.Confirmed(true)
			}
			deleted, err := profile.Delete(cmd.Context(), id, confirm)
			if err != nil {
				return err
			}
			if !deleted {
				fmt.Fprintln(c.out, "Cancelled.")
				return nil
			}
			fmt.Fprintf(c.out, "Deleted resource %d.\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "don't ask for confirmation")
	return cmd
}

// withDetail loads resource rawID into a fresh view, runs fn, and closes
// the view. A failed load is returned as is.
func (c *cli) withDetail(cmd *cobra.Command, rawID string, fn func(context.Context, *service.ResourceDetail) error) error {
	id, err := parseID("id", rawID)
	if err != nil {
		return err
	}
	a, err := c.open(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	view := a.NewDetail()
	defer view.Close()

	if err := view.Load(cmd.Context(), id); err != nil {
		return err
	}
	return fn(cmd.Context(), view)
}

func parseID(name, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed(name, fmt.Sprintf("invalid %s %q", name, raw))
	}
	return id, nil
}
