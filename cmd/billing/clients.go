package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/money"
	"github.com/jesses-code-adventures/billing/internal/service"
	"github.com/jesses-code-adventures/billing/internal/utils"
)

func newClientsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clients",
		Short: "Manage clients",
		Long:  "Commands for managing clients, including their hourly rates, discounts and billing details.",
	}

	cmd.AddCommand(newClientsCreateCmd(a))
	cmd.AddCommand(newClientsListCmd(a))
	cmd.AddCommand(newClientsUpdateCmd(a))

	return cmd
}

func parseDiscount(value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, &models.ValidationError{Field: "discount", Msg: "expected a percentage like 10 or 12.5", Err: err}
	}
	return d, nil
}

func newClientsCreateCmd(a *app) *cobra.Command {
	var name, rate, discount, clientType, email string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a client",
		RunE: func(cmd *cobra.Command, args []string) error {
			rateCents := int64(0)
			if rate != "" {
				var err error
				if rateCents, err = parseAmountFlag("rate", rate); err != nil {
					return err
				}
			}
			pct, err := parseDiscount(discount)
			if err != nil {
				return err
			}

			client, err := a.svc.CreateClient(cmd.Context(), service.ClientInput{
				Name:            name,
				Email:           utils.ToPtrNil(email),
				Type:            models.ClientType(clientType),
				HourlyRateCents: rateCents,
				DiscountPercent: pct,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Created client '%s' at %s/hr\n", client.Name, money.Format(client.HourlyRateCents))
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Client name")
	cmd.Flags().StringVarP(&rate, "rate", "r", "", "Hourly rate, e.g. 150.00")
	cmd.Flags().StringVar(&discount, "discount", "", "Discount percentage, e.g. 10")
	cmd.Flags().StringVar(&clientType, "type", "company", "Client type: company or individual")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.MarkFlagRequired("name")

	return cmd
}

func newClientsListCmd(a *app) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all clients with their hourly rates",
		RunE: func(cmd *cobra.Command, args []string) error {
			clients, err := a.svc.ListClients(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list clients: %w", err)
			}

			if len(clients) == 0 {
				fmt.Println("No clients found.")
				return nil
			}

			fmt.Println("Clients:")
			for _, client := range clients {
				rateStr := money.Format(client.HourlyRateCents) + "/hr"
				if client.HourlyRateCents == 0 {
					rateStr = "No rate set"
				}
				if !client.DiscountPercent.IsZero() {
					rateStr += " less " + money.FormatPercent(client.DiscountPercent)
				}

				if verbose {
					fmt.Printf("\nClient: %s (ID: %s)\n", client.Name, client.ID)
					fmt.Printf("  Type: %s\n", client.Type)
					fmt.Printf("  Rate: %s\n", rateStr)
					displayClient(client)
				} else {
					fmt.Printf("%s - %s - %s\n", client.ID, client.Name, rateStr)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed billing information")
	return cmd
}

func displayClient(c *models.Client) {
	fields := []struct {
		label string
		value *string
	}{
		{"Company", c.CompanyName},
		{"Contact", c.ContactName},
		{"Email", c.Email},
		{"Phone", c.Phone},
		{"Address", c.AddressLine1},
		{"", c.AddressLine2},
		{"City", c.City},
		{"State", c.State},
		{"Postcode", c.PostalCode},
		{"Country", c.Country},
		{"Tax number", c.TaxNumber},
	}
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		fmt.Printf("  %-11s %s\n", f.label+":", *f.value)
	}
}

func newClientsUpdateCmd(a *app) *cobra.Command {
	var client, rate, discount, clientType string
	var companyName, contactName, email, phone string
	var addressLine1, addressLine2, city, state, postalCode, country, taxNumber string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update details about a client",
		Long:  "Update attributes of the client, such as hourly rate, discount and billing details. Passing an empty value clears a detail.",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			u := service.ClientUpdate{
				CompanyName:  changedString(flags.Changed("company"), companyName),
				ContactName:  changedString(flags.Changed("contact"), contactName),
				Email:        changedString(flags.Changed("email"), email),
				Phone:        changedString(flags.Changed("phone"), phone),
				AddressLine1: changedString(flags.Changed("address1"), addressLine1),
				AddressLine2: changedString(flags.Changed("address2"), addressLine2),
				City:         changedString(flags.Changed("city"), city),
				State:        changedString(flags.Changed("state"), state),
				PostalCode:   changedString(flags.Changed("postcode"), postalCode),
				Country:      changedString(flags.Changed("country"), country),
				TaxNumber:    changedString(flags.Changed("tax"), taxNumber),
			}
			if flags.Changed("rate") {
				cents, err := parseAmountFlag("rate", rate)
				if err != nil {
					return err
				}
				u.HourlyRateCents = &cents
			}
			if flags.Changed("discount") {
				pct, err := parseDiscount(discount)
				if err != nil {
					return err
				}
				u.DiscountPercent = &pct
			}
			if flags.Changed("type") {
				t := models.ClientType(clientType)
				u.Type = &t
			}

			updated, err := a.svc.UpdateClient(cmd.Context(), client, u)
			if err != nil {
				return fmt.Errorf("failed to update client: %w", err)
			}

			fmt.Printf("Updated client '%s'\nNew state: \n", updated.Name)
			fmt.Printf("  Rate:       %s/hr less %s\n", money.Format(updated.HourlyRateCents), money.FormatPercent(updated.DiscountPercent))
			displayClient(updated)
			return nil
		},
	}

	cmd.Flags().StringVarP(&client, "client", "c", "", "Name of the client to update")
	cmd.Flags().StringVarP(&rate, "rate", "r", "", "Hourly rate for the client")
	cmd.Flags().StringVar(&discount, "discount", "", "Discount percentage")
	cmd.Flags().StringVar(&clientType, "type", "", "Client type: company or individual")

	cmd.Flags().StringVar(&companyName, "company", "", "Company name")
	cmd.Flags().StringVar(&contactName, "contact", "", "Contact person name")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&addressLine1, "address1", "", "Address line 1")
	cmd.Flags().StringVar(&addressLine2, "address2", "", "Address line 2")
	cmd.Flags().StringVar(&city, "city", "", "City")
	cmd.Flags().StringVar(&state, "state", "", "State/Province")
	cmd.Flags().StringVar(&postalCode, "postcode", "", "Postal/ZIP code")
	cmd.Flags().StringVar(&country, "country", "", "Country")
	cmd.Flags().StringVar(&taxNumber, "tax", "", "Tax/VAT number")
	cmd.MarkFlagRequired("client")

	return cmd
}
