package profile

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Cmd is the profile command group
var Cmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage profiles and sessions",
	Long: `Create a profile, sign in with its password and sign out again.

A profile is chosen by its password alone. Signing in stores a session on
this machine so later commands act on that profile's tasks.`,
}

var password string

func init() {
	Cmd.PersistentFlags().StringVarP(&password, "password", "p", "", "profile password (prompted when omitted)")

	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(loginCmd)
	Cmd.AddCommand(logoutCmd)
	Cmd.AddCommand(whoamiCmd)
}

// readPassword returns --password, a prompt without echo on a terminal, or
// the first line of stdin.
func readPassword(cmd *cobra.Command) (string, error) {
	if password != "" {
		return password, nil
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		if len(raw) == 0 {
			return "", errors.New("password is required")
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return "", errors.New("password is required")
	}
	return line, nil
}
