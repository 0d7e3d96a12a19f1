package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jw6ventures/lifecard/internal/contacts"
	"github.com/jw6ventures/lifecard/internal/store"
	"github.com/jw6ventures/lifecard/internal/vcard"
)

var (
	ownerEmail string
	bookID     string

	contactName   string
	contactEmails []string
	contactPhones []string
	contactOrg    string
	contactNote   string
)

var contactCmd = &cobra.Command{
	Use:   "contact",
	Short: "Write contacts into an address book",
}

var contactAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create one contact",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if contactName == "" {
			return errors.New("--name is required")
		}
		c := vcard.Contact{
			ID:           uuid.NewString(),
			DisplayName:  contactName,
			Organization: contactOrg,
			Notes:        contactNote,
		}
		for _, e := range contactEmails {
			c.Emails = append(c.Emails, vcard.Email{Value: e, Type: vcard.TypeHome})
		}
		for _, p := range contactPhones {
			c.Phones = append(c.Phones, vcard.Phone{Value: p, Type: vcard.TypeMobile})
		}

		return withOwnerBook(cmd.Context(), func(svc *contacts.Service, user *store.User, book string) error {
			res, err := svc.Put(cmd.Context(), user.ID, book, c.ID, vcard.Generate(c, vcard.Version3), contacts.Conditions{IfNoneMatch: "*"})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s contact %s %s\n", success("created"), c.ID, subtle(res.ETag))
			return nil
		})
	},
}

var contactImportCmd = &cobra.Command{
	Use:   "import <file.vcf>",
	Short: "Import every card of a .vcf export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return errors.Wrapf(err, "could not read %s", args[0])
		}
		cards := vcard.SplitCards(string(raw))
		if len(cards) == 0 {
			return errors.Errorf("%s contains no vCards", args[0])
		}

		return withOwnerBook(cmd.Context(), func(svc *contacts.Service, user *store.User, book string) error {
			var created, skipped int
			for _, text := range cards {
				id := cardID(text)
				_, err := svc.Put(cmd.Context(), user.ID, book, id, text, contacts.Conditions{IfNoneMatch: "*"})
				switch {
				case errors.Is(err, contacts.ErrPreconditionFailed):
					skipped++
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s already exists\n", warning("skipped"), id)
				case errors.Is(err, contacts.ErrInvalidVCard):
					skipped++
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %v\n", warning("skipped"), id, err)
				case err != nil:
					return err
				default:
					created++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d cards, skipped %d\n", success("imported"), created, skipped)
			return nil
		})
	},
}

// cardID reuses the card's UID as its resource id or mints a new one.
func cardID(text string) string {
	res := vcard.ParseResource(text)
	switch {
	case res.Group != nil && res.Group.ID != "":
		return res.Group.ID
	case res.Contact != nil && res.Contact.ID != "":
		return res.Contact.ID
	default:
		return uuid.NewString()
	}
}

// withOwnerBook resolves --user and --book, defaulting to the user's first
// address book, then runs fn.
func withOwnerBook(ctx context.Context, fn func(svc *contacts.Service, user *store.User, book string) error) error {
	if ownerEmail == "" {
		return errors.New("--user is required")
	}
	st, pool, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	user, err := st.Users.GetByEmail(ctx, ownerEmail)
	if errors.Is(err, store.ErrNotFound) {
		return errors.Errorf("no user %s", ownerEmail)
	}
	if err != nil {
		return err
	}

	svc := contacts.NewService(log, st)
	book := bookID
	if book == "" {
		books, err := svc.Books(ctx, user.ID)
		if err != nil {
			return err
		}
		book = books[0].ID
	}
	return fn(svc, user, book)
}

func addOwnerFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ownerEmail, "user", "", "owner's login email")
	cmd.Flags().StringVar(&bookID, "book", "", "address book id (defaults to the first one)")
}

func init() {
	addOwnerFlags(contactAddCmd)
	contactAddCmd.Flags().StringVar(&contactName, "name", "", "full name")
	contactAddCmd.Flags().StringSliceVar(&contactEmails, "email", nil, "email address (repeatable)")
	contactAddCmd.Flags().StringSliceVar(&contactPhones, "phone", nil, "phone number (repeatable)")
	contactAddCmd.Flags().StringVar(&contactOrg, "org", "", "organization")
	contactAddCmd.Flags().StringVar(&contactNote, "note", "", "note")

	addOwnerFlags(contactImportCmd)
	contactCmd.AddCommand(contactAddCmd, contactImportCmd)
}
