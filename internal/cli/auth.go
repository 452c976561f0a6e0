package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/sadwiik06/SocialFlow/pkg/api"
	"github.com/sadwiik06/SocialFlow/pkg/config"
	"github.com/sadwiik06/SocialFlow/pkg/output"
	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <email-or-username>",
		Short: "Log in and save the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				if password, err = readLine(cmd.InOrStdin(), cmd.OutOrStdout(), "Password: "); err != nil {
					return err
				}
			}

			resp, err := newClient().Login(cmd.Context(), args[0], password)
			if api.IsUnauthorized(err) {
				return fmt.Errorf("invalid email/username or password")
			}
			if err != nil {
				return explain(err)
			}
			for key, value := range map[string]string{
				"auth.token":    resp.Token,
				"auth.user_id":  resp.User.ID,
				"auth.username": resp.User.Username,
			} {
				if err := config.SetString(key, value); err != nil {
					return fmt.Errorf("saving session: %w", err)
				}
			}
			output.PrintSuccess("Logged in as %s", resp.User.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	return cmd
}

func readLine(in io.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Unset("auth.token", "auth.user_id", "auth.username"); err != nil {
				return err
			}
			output.PrintSuccess("Logged out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := session()
			if err != nil {
				return err
			}
			me, err := c.Me(cmd.Context())
			if err != nil {
				return explain(err)
			}
			return output.PrintRecord("Current user", map[string]any{
				"id":       me.ID,
				"username": me.Username,
				"email":    me.Email,
				"bio":      me.Bio,
			})
		},
	}
}
