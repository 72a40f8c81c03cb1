package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jesses-code-adventures/billing/internal/utils"
)

func newWorkTypesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "work-types",
		Aliases: []string{"worktypes"},
		Short:   "Manage work types",
		Long:    "Work types categorise time entries and become the lines of an invoice.",
	}

	var description string
	create := &cobra.Command{
		Use:   "create CODE",
		Short: "Create a work type; the code is lowercased and spaces become hyphens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wt, err := a.svc.CreateWorkType(cmd.Context(), args[0], utils.ToPtrNil(description))
			if err != nil {
				return err
			}
			fmt.Printf("Created work type '%s'\n", wt.Code)
			return nil
		},
	}
	create.Flags().StringVarP(&description, "description", "d", "", "Description shown on invoices")

	list := &cobra.Command{
		Use:   "list",
		Short: "List work types",
		RunE: func(cmd *cobra.Command, args []string) error {
			types, err := a.svc.ListWorkTypes(cmd.Context())
			if err != nil {
				return err
			}
			if len(types) == 0 {
				fmt.Println("No work types found.")
				return nil
			}
			for _, wt := range types {
				fmt.Printf("%-20s %s\n", wt.Code, utils.FromPtr(wt.Description))
			}
			return nil
		},
	}

	cmd.AddCommand(create, list)
	return cmd
}
