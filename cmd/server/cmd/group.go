package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jw6ventures/lifecard/internal/contacts"
	"github.com/jw6ventures/lifecard/internal/store"
	"github.com/jw6ventures/lifecard/internal/vcard"
)

var (
	groupName    string
	groupMembers []string
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Write contact groups into an address book",
}

var groupAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a group from existing contact ids",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if groupName == "" {
			return errors.New("--name is required")
		}
		g := vcard.Group{ID: uuid.NewString(), Name: groupName, MemberIDs: groupMembers}

		return withOwnerBook(cmd.Context(), func(svc *contacts.Service, user *store.User, book string) error {
			res, err := svc.Put(cmd.Context(), user.ID, book, g.ID, vcard.GenerateGroup(g), contacts.Conditions{IfNoneMatch: "*"})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s group %s with %d members %s\n", success("created"), g.ID, len(g.MemberIDs), subtle(res.ETag))
			return nil
		})
	},
}

func init() {
	addOwnerFlags(groupAddCmd)
	groupAddCmd.Flags().StringVar(&groupName, "name", "", "group name")
	groupAddCmd.Flags().StringSliceVar(&groupMembers, "member", nil, "member contact id (repeatable)")
	groupCmd.AddCommand(groupAddCmd)
}
