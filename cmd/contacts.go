package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/envirowatch/envirowatch/internal/model"
)

var contactsCmd = &cobra.Command{
	Use:   "contacts [issue]",
	Short: "Show the authority to contact for an issue category",
	Long:  "Without arguments, lists every reportable issue category. With an issue key, prints the responsible agency and its phone number.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tLABEL\tAUTHORITY")
			for _, opt := range model.IssueOptions {
				fmt.Fprintf(w, "%s\t%s\t%s\n", opt.Key, opt.Label, model.AuthorityFor(opt.Key).Name)
			}
			return w.Flush()
		}

		key := args[0]
		c := model.AuthorityFor(key)
		fmt.Printf("%s (%s)\n", model.IssueLabel(key), key)
		fmt.Printf("  Contact: %s\n", c.Name)
		fmt.Printf("  Phone:   %s\n", c.Phone)
		fmt.Printf("  %s\n", c.Description)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(contactsCmd)
}
