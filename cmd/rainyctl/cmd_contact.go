package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gustavop-dev/rainy-project/internal/contact"
)

func newContactCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contact",
		Short: "Contact form operations",
	}

	var form contact.Submission
	submit := &cobra.Command{
		Use:   "submit",
		Short: "Submit a contact form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result := a.contactService().Submit(cmd.Context(), form)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return fmt.Errorf("rainyctl: encode result: %w", err)
			}
			if !result.Success {
				return fmt.Errorf("rainyctl: contact submission failed (%d): %s", result.Status, result.Error)
			}
			return nil
		},
	}
	submit.Flags().StringVar(&form.Name, "name", "", "Sender name")
	submit.Flags().StringVar(&form.Phone, "phone", "", "Sender phone")
	submit.Flags().StringVar(&form.Email, "email", "", "Sender email")
	submit.Flags().StringVar(&form.Message, "message", "", "Message body")
	submit.Flags().BoolVar(&form.AcceptPrivacy, "accept-privacy", false, "Accept the privacy policy")

	cmd.AddCommand(submit)
	return cmd
}
