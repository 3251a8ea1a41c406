package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sakif/resourcehub/internal/service"
)

func (c *cli) loginCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		Long: `Log in to the ResourceHub server.

The token is kept in the session database, so later commands run as you
until 'hub logout'. Missing credentials are prompted for.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			prompt := newPrompter(c.in, c.out)
			if username == "" {
				if username, err = prompt.line("Username: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = prompt.secret("Password: "); err != nil {
					return err
				}
			}

			if err := a.Auth.Login(cmd.Context(), username, password); err != nil {
				return err
			}
			printIdentity(c.out, a.Identity.Resolve(cmd.Context()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when empty)")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "Logged out.")
			return nil
		},
	}
}

func (c *cli) registerCmd() *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Long: `Create an account on the ResourceHub server.

Registering does not log you in; run 'hub login' afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			prompt := newPrompter(c.in, c.out)
			if username == "" {
				if username, err = prompt.line("Username: "); err != nil {
					return err
				}
			}
			if email == "" {
				if email, err = prompt.line("Email: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = prompt.secret("Password: "); err != nil {
					return err
				}
			}

			if err := a.Auth.Register(cmd.Context(), username, email, password); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Registered %s. Run 'hub login' to sign in.\n", strings.TrimSpace(username))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&email, "email", "e", "", "email address")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when empty)")
	return cmd
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show who the stored session belongs to",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			printIdentity(c.out, a.Identity.Resolve(cmd.Context()))
			return nil
		},
	}
}

// prompter reads answers from the command's input. Secrets are read without
// echo when the input is a terminal.
type prompter struct {
	in     io.Reader
	reader *bufio.Reader
	out    io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: in, reader: bufio.NewReader(in), out: out}
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	s, err := p.reader.ReadString('\n')
	if err != nil && (err != io.EOF || s == "") {
		return "", fmt.Errorf("reading %s: %w", strings.TrimSuffix(label, ": "), err)
	}
	return strings.TrimSpace(s), nil
}

func (p *prompter) secret(label string) (string, error) {
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(p.out, label)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}
	return p.line(label)
}

// confirmer asks a [y/N] question; anything but y or yes declines.
func (p *prompter) confirmer() service.Confirmer {
	return service.ConfirmFunc(func(_ context.Context, prompt string) (bool, error) {
		answer, err := p.line(prompt + " [y/N] ")
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	})
}
