package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goliatone/go-print"
	"github.com/spf13/cobra"

	authclient "github.com/goliatone/go-auth-client"
)

func loginCmd(opts *rootOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			if email, password, err = promptCredentials(cmd, email, password); err != nil {
				return err
			}

			if err := app.session.Login(ctx, email, password); err != nil {
				return fmt.Errorf("login failed: %s", authclient.AuthErrorMessage(err))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password, prompted when empty")

	return cmd
}

func registerCmd(opts *rootOptions) *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			if email, password, err = promptCredentials(cmd, email, password); err != nil {
				return err
			}

			if err := app.session.Register(ctx, email, password, name); err != nil {
				return fmt.Errorf("registration failed: %s", authclient.AuthErrorMessage(err))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password, prompted when empty")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name")

	return cmd
}

func logoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			app.session.Logout(ctx)
			return nil
		},
	}
}

func statusCmd(opts *rootOptions) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Verify the stored access token against the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			app.nav.quiet = true

			if offline {
				claims, ok := authclient.CurrentClaims(ctx, app.session.Store(), app.session.Codec())
				out := map[string]any{"authenticated": ok}
				if fs, isFile := app.session.Store().(*authclient.FileStore); isFile {
					out["store"] = fs.Path()
				}
				if ok {
					out["identity"] = claims.Identity()
					if exp, has := claims.ExpiresAt(); has {
						out["expires_at"] = exp.Format(time.RFC3339)
					}
				}
				fmt.Fprintln(app.out, print.MaybePrettyJSON(out))
				return nil
			}

			app.session.CheckAuthStatus(ctx)
			snap := app.session.Snapshot()
			fmt.Fprintln(app.out, print.MaybePrettyJSON(map[string]any{
				"status":   snap.Status(),
				"identity": snap.Identity,
				"server":   app.config.BaseURL,
			}))
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Only decode the stored token, do not call the server")

	return cmd
}

func whoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the signed in identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			return app.protected(ctx, func(_ context.Context, id *authclient.Identity) error {
				fmt.Fprintln(app.out, print.MaybePrettyJSON(id))
				return nil
			})
		},
	}
}

func promptCredentials(cmd *cobra.Command, email, password string) (string, string, error) {
	reader := bufio.NewReader(cmd.InOrStdin())
	var err error
	if strings.TrimSpace(email) == "" {
		if email, err = prompt(cmd.OutOrStdout(), reader, "Email: "); err != nil {
			return "", "", err
		}
	}
	if password == "" {
		if password, err = prompt(cmd.OutOrStdout(), reader, "Password: "); err != nil {
			return "", "", err
		}
	}
	return strings.TrimSpace(email), password, nil
}

func prompt(out io.Writer, reader *bufio.Reader, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
