package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"bankrec-engine/internal/domain"
	"bankrec-engine/internal/service"
)

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		// the schema is applied when the database is opened
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", c.cfg.Database.Driver)
			return nil
		},
	}
}

func newImportCmd(c *cli) *cobra.Command {
	var (
		venueID    string
		file       string
		profile    string
		layout     string
		importedBy string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a bank statement file for a venue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read statement: %w", err)
			}

			result, err := c.services.Imports.Import(cmd.Context(), service.ImportRequest{
				Filename:   filepath.Base(file),
				Content:    content,
				VenueID:    venueID,
				Profile:    profile,
				Layout:     layout,
				ImportedBy: importedBy,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&venueID, "venue", "", "venue the statement belongs to")
	cmd.Flags().StringVar(&file, "file", "", "statement file (.csv, .xlsx, .xml, .txt)")
	cmd.Flags().StringVar(&profile, "profile", "", "delimited profile name")
	cmd.Flags().StringVar(&layout, "layout", "", "fixed-width layout name")
	cmd.Flags().StringVar(&importedBy, "by", "", "operator recorded on the batch")
	_ = cmd.MarkFlagRequired("venue")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func newReconcileCmd(c *cli) *cobra.Command {
	var venueID string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Classify the open transactions of a venue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := c.services.Reconciliation.ReconcileVenue(cmd.Context(), venueID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}

	cmd.Flags().StringVar(&venueID, "venue", "", "venue to reconcile")
	_ = cmd.MarkFlagRequired("venue")

	return cmd
}

func newRulesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and reorder reconciliation rules",
	}
	cmd.AddCommand(newRulesListCmd(c), newRulesReorderCmd(c))
	return cmd
}

func newRulesListCmd(c *cli) *cobra.Command {
	var direction string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := c.services.Rules.List(cmd.Context(), domain.Direction(direction))
			if err != nil {
				return err
			}
			return printRules(cmd, rules)
		},
	}

	cmd.Flags().StringVar(&direction, "direction", "", "emessi or ricevuti (default both)")
	return cmd
}

func newRulesReorderCmd(c *cli) *cobra.Command {
	var (
		direction string
		ids       []string
	)

	cmd := &cobra.Command{
		Use:   "reorder",
		Short: "Replace the order of a direction's rules",
		Long: `Replace the order of a direction's rules. --ids must name every rule
of the direction exactly once, first rule first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := c.services.Rules.Reorder(cmd.Context(), domain.Direction(direction), ids)
			if err != nil {
				return err
			}
			return printRules(cmd, rules)
		},
	}

	cmd.Flags().StringVar(&direction, "direction", "", "emessi or ricevuti")
	cmd.Flags().StringSliceVar(&ids, "ids", nil, "rule ids in the new order, comma separated")
	_ = cmd.MarkFlagRequired("direction")
	_ = cmd.MarkFlagRequired("ids")

	return cmd
}

func printRules(cmd *cobra.Command, rules []domain.ReconciliationRule) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDIRECTION\tORDER\tACCOUNT\tDOC TYPE\tPAYMENT\tTARGET\tACTION")
	for _, r := range rules {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Direction, r.Order,
			wildcard(r.Predicate.AccountCode),
			wildcard(r.Predicate.DocumentTypeCode),
			wildcard(r.Predicate.PaymentTypeCode),
			wildcard(r.TargetAccountID),
			r.Action,
		)
	}
	return w.Flush()
}

func wildcard(s string) string {
	if s == "" {
		return "*"
	}
	return s
}
