package agrictl

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ritheshan/agri/internal/services/session"
)

// readPassword takes AGRI_PASSWORD, or the first line of stdin.
func readPassword(cmd *cobra.Command) (string, error) {
	if password := os.Getenv("AGRI_PASSWORD"); password != "" {
		return password, nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("no password on stdin")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (o *options) keepSession(cmd *cobra.Command, s *session.Session, verb string) error {
	if err := o.tokens().Save(s); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	o.log.Info(verb, zap.String("user", s.User.ID), zap.String("token_file", o.tokenPath))
	name := s.User.Username
	if name == "" {
		name = s.User.Phone
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s as %s\n", verb, name)
	return nil
}

func newLoginCmd(o *options) *cobra.Command {
	var phone string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with phone and password and keep the token for later commands",
		Long:  "The password is read from AGRI_PASSWORD, or from the first line of stdin.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			s, err := session.NewAuthClient(o.authURL, o.timeout).Login(cmd.Context(), phone, password)
			if errors.Is(err, session.ErrInvalidCredentials) {
				return errors.New("invalid phone number or password")
			}
			if err != nil {
				return err
			}
			return o.keepSession(cmd, s, "logged in")
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "registered phone number")
	_ = cmd.MarkFlagRequired("phone")
	return cmd
}

func newRegisterCmd(o *options) *cobra.Command {
	var phone, username string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and keep its token for later commands",
		Long:  "The password is read from AGRI_PASSWORD, or from the first line of stdin.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			s, err := session.NewAuthClient(o.authURL, o.timeout).Register(cmd.Context(), phone, password, username)
			switch {
			case errors.Is(err, session.ErrAlreadyRegistered):
				return fmt.Errorf("%s is already registered, use login", phone)
			case errors.Is(err, session.ErrInvalidCredentials):
				return errors.New("phone and password are required")
			case err != nil:
				return err
			}
			return o.keepSession(cmd, s, "registered")
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "phone number to register")
	cmd.Flags().StringVar(&username, "username", "", "display name (default chosen by the service)")
	_ = cmd.MarkFlagRequired("phone")
	return cmd
}

func newLogoutCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := o.tokens().Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}
