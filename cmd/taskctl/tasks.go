package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"text/tabwriter"

	"github.com/goliatone/go-print"
	"github.com/spf13/cobra"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/tasks"
)

func tasksCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Work with tasks of the signed in user",
	}

	cmd.AddCommand(tasksListCmd(opts))
	cmd.AddCommand(tasksAddCmd(opts))
	cmd.AddCommand(tasksDoneCmd(opts))
	cmd.AddCommand(tasksRemoveCmd(opts))

	return cmd
}

func tasksListCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			var filter tasks.ListOptions
			switch status {
			case "":
			case "done":
				v := true
				filter.Completed = &v
			case "open":
				v := false
				filter.Completed = &v
			default:
				return fmt.Errorf("unknown status %q, expected done or open", status)
			}

			return app.protected(ctx, func(ctx context.Context, _ *authclient.Identity) error {
				items, err := app.tasks.List(ctx, filter)
				if err != nil {
					return tasksError(err)
				}

				if asJSON {
					fmt.Fprintln(app.out, print.MaybePrettyJSON(items))
					return nil
				}

				w := tabwriter.NewWriter(app.out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tDONE\tCATEGORY\tTITLE")
				for _, t := range items {
					done := " "
					if t.Completed {
						done = "x"
					}
					fmt.Fprintf(w, "%s\t[%s]\t%s\t%s\n", t.ID, done, t.Category, t.Title)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")
	cmd.Flags().StringVarP(&status, "status", "s", "", "Filter by status (done, open)")

	return cmd
}

func tasksAddCmd(opts *rootOptions) *cobra.Command {
	var description, category string

	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			return app.protected(ctx, func(ctx context.Context, _ *authclient.Identity) error {
				task, err := app.tasks.Create(ctx, tasks.NewTask{
					Title:       strings.Join(args, " "),
					Description: description,
					Category:    category,
				})
				if err != nil {
					return tasksError(err)
				}
				fmt.Fprintf(app.out, "Created %s\n", task.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Task description")
	cmd.Flags().StringVar(&category, "category", "", "Task category")

	return cmd
}

func tasksDoneCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "done [id]",
		Short: "Toggle completion of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			return app.protected(ctx, func(ctx context.Context, _ *authclient.Identity) error {
				task, err := app.tasks.ToggleComplete(ctx, args[0])
				if err != nil {
					return tasksError(err)
				}
				fmt.Fprintf(app.out, "%s completed=%t\n", task.ID, task.Completed)
				return nil
			})
		},
	}
}

func tasksRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm [id]",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			return app.protected(ctx, func(ctx context.Context, _ *authclient.Identity) error {
				if err := app.tasks.Delete(ctx, args[0]); err != nil {
					return tasksError(err)
				}
				fmt.Fprintf(app.out, "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func tasksError(err error) error {
	if tasks.Status(err) == http.StatusUnauthorized {
		return fmt.Errorf("not signed in: %w", err)
	}
	return err
}
