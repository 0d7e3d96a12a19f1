package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jw6ventures/lifecard/internal/auth"
	"github.com/jw6ventures/lifecard/internal/contacts"
)

var (
	userEmail    string
	userPassword string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage CardDAV accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an account and its default address book",
	RunE: func(cmd *cobra.Command, _ []string) error {
		email := strings.TrimSpace(userEmail)
		if email == "" {
			return errors.New("--email is required")
		}
		password := userPassword
		if password == "" {
			fmt.Fprint(cmd.OutOrStdout(), "Password: ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return errors.Wrap(err, "could not read password")
			}
			password = strings.TrimRight(line, "\r\n")
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}

		st, pool, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		user, err := st.Users.Create(cmd.Context(), email, hash)
		if err != nil {
			return errors.Wrapf(err, "could not create %s", email)
		}
		books, err := contacts.NewService(log, st).Books(cmd.Context(), user.ID)
		if err != nil {
			return errors.Wrap(err, "could not create default address book")
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s user %s (id %d)\n", success("created"), user.Email, user.ID)
		for _, b := range books {
			fmt.Fprintf(cmd.OutOrStdout(), "  address book %s %s\n", b.Name, subtle(b.ID))
		}
		return nil
	},
}

func init() {
	userAddCmd.Flags().StringVar(&userEmail, "email", "", "login email")
	userAddCmd.Flags().StringVar(&userPassword, "password", "", "password (prompted when omitted)")
	userCmd.AddCommand(userAddCmd)
}
