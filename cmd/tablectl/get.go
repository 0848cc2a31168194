package main

import (
	"encoding/json"
	"fmt"
	"time"

	"publication-backend/domain/core/valueobjects"

	"github.com/spf13/cobra"
)

var includeRemoved bool

var getResourceCmd = &cobra.Command{
	Use:   "get-resource <identifier>",
	Short: "Print a resource with its files, tickets and projections",
	Long: `Print the export view of a resource: the resource, its live files, every
ticket including removed ones, its publication channels and its parent
relationship.

Example:
  tablectl get-resource 0190a0e2-7c1e-7b3a-9d55-2f1c1e5b8a10`,
	Args: cobra.ExactArgs(1),
	RunE: runGetResource,
}

var listTicketsCmd = &cobra.Command{
	Use:   "list-tickets <resource-identifier>",
	Short: "List the tickets of a resource",
	Args:  cobra.ExactArgs(1),
	RunE:  runListTickets,
}

func init() {
	listTicketsCmd.Flags().BoolVar(&includeRemoved, "include-removed", false, "also list removed tickets")
}

func runGetResource(cmd *cobra.Command, args []string) error {
	resourceID, err := valueobjects.ParseIdentifier(args[0])
	if err != nil {
		return fmt.Errorf("parse identifier: %w", err)
	}
	if err := initContainer(cmd); err != nil {
		return err
	}

	export, err := container.Queries.Export(cmd.Context(), resourceID)
	if err != nil {
		return fmt.Errorf("get resource: %w", err)
	}
	return printJSON(export)
}

func runListTickets(cmd *cobra.Command, args []string) error {
	resourceID, err := valueobjects.ParseIdentifier(args[0])
	if err != nil {
		return fmt.Errorf("parse identifier: %w", err)
	}
	if err := initContainer(cmd); err != nil {
		return err
	}

	tickets, err := container.Queries.ListTickets(cmd.Context(), resourceID, includeRemoved)
	if err != nil {
		return fmt.Errorf("list tickets: %w", err)
	}
	for _, ticket := range tickets {
		fmt.Printf("%s\t%s\t%s\t%s\n",
			ticket.Identifier, ticket.Type, ticket.Status, ticket.ModifiedDate.Format(time.RFC3339))
	}
	return nil
}

func printJSON(v interface{}) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	fmt.Println(string(output))
	return nil
}
