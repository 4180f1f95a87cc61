package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/acidjurassic/isla-toxica-commands/panel-client/internal/credential"
	"github.com/acidjurassic/isla-toxica-commands/panel-client/internal/login"
)

func newLoginCmd(opts *rootOpts) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with Twitch and store the credential",
		Long: `Log in with Twitch.

Prints the authorize URL and waits for the browser to come back to the
loopback page. With --token an existing access token is verified and stored
instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if token == "" {
				srv := login.NewServer(a.cfg.Login.ListenAddr)
				authURL, err := login.AuthorizeURL(login.Options{
					ClientID:     a.cfg.Twitch.ClientID,
					AuthorizeURL: a.cfg.Twitch.AuthorizeURL,
					RedirectURI:  srv.RedirectURI(),
					Scopes:       a.cfg.Twitch.Scopes,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Open this URL to log in:\n\n  %s\n\n", authURL)

				token, err = srv.Wait(ctx, a.cfg.Login.Timeout)
				if err != nil {
					return err
				}
			}

			id, err := a.newController().Login(ctx, token)
			if err != nil {
				return fmt.Errorf("login rejected: %w", err)
			}
			fmt.Fprintf(out, "Logged in as %s\n", id.Label())
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "verify and store this access token instead of opening the login flow")
	return cmd
}

func newLogoutCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.app.newController().Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Verify the stored credential and print the identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			token, err := a.creds.Load()
			if errors.Is(err, credential.ErrNotFound) {
				return errors.New("not logged in")
			}
			if err != nil {
				return err
			}

			id, err := a.newController().Login(cmd.Context(), token)
			if err != nil {
				return fmt.Errorf("stored credential rejected, login again: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (id %s)\n", id.Label(), id.StableID)
			return nil
		},
	}
}
