package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/infographics/pkg/errors"
	"github.com/matzehuels/infographics/pkg/infographics"
)

// countriesCommand creates the countries command.
func (c *CLI) countriesCommand() *cobra.Command {
	var asJSON, refresh bool

	cmd := &cobra.Command{
		Use:   "countries [ISO2]",
		Short: "List countries and their geoenrichment hierarchies",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cat, closeCat, err := c.newCatalog(ctx)
			if err != nil {
				return err
			}
			defer closeCat()

			if refresh {
				if err := cat.InvalidateCountries(ctx); err != nil {
					return err
				}
			}

			prog := newProgress(loggerFromContext(ctx))
			countries, err := cat.Countries(ctx)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				iso := strings.ToUpper(args[0])
				if err := errors.ValidateCountryCode(iso); err != nil {
					return err
				}
				if !countries.Has(iso) {
					return errors.New(errors.ErrCodeInvalidCountry, "country %q is not available", iso)
				}
				countries = countries.Filter(iso)
			}
			prog.done("Loaded country table")

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), countries)
			}
			renderTable(cmd.OutOrStdout(), countries.Table())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "drop the cached country table before loading")
	return cmd
}

// standardCommand creates the standard command.
func (c *CLI) standardCommand() *cobra.Command {
	var (
		hierarchies []string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "standard <ISO2>",
		Short: "List the standard infographics for a country",
		Long: `List the standard infographics the platform provides for a country.

Without --hierarchy every hierarchy known for the country is queried.
Hierarchies are validated against those available for the United States.`,
		Example: `  infographics standard US
  infographics standard US --hierarchy census
  infographics standard GB --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cat, closeCat, err := c.newCatalog(ctx)
			if err != nil {
				return err
			}
			defer closeCat()

			country := strings.ToUpper(strings.TrimSpace(args[0]))
			if err := errors.ValidateCountryCode(country); err != nil {
				return err
			}

			spinner := newSpinnerWithContext(ctx, "Fetching standard infographics...")
			prog := newProgress(loggerFromContext(ctx))
			var result infographics.StandardInfographics
			err = spinner.run(func() (err error) {
				result, err = cat.StandardInfographics(ctx, country, hierarchies...)
				return err
			})
			if err != nil {
				return err
			}
			prog.done("Fetched standard infographics")
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			renderTable(cmd.OutOrStdout(), result.Table())
			printCount(len(result), "infographic")
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&hierarchies, "hierarchy", nil, "hierarchy to query (repeatable; default all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

// customCommand creates the custom command.
func (c *CLI) customCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "custom",
		Aliases: []string{"org"},
		Short:   "List the organization's infographic templates",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cat, closeCat, err := c.newCatalog(ctx)
			if err != nil {
				return err
			}
			defer closeCat()

			spinner := newSpinnerWithContext(ctx, "Searching report templates...")
			prog := newProgress(loggerFromContext(ctx))
			var result infographics.CustomInfographics
			err = spinner.run(func() (err error) {
				result, err = cat.OrganizationInfographics(ctx)
				return err
			})
			if err != nil {
				return err
			}
			prog.done("Searched organization content")
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			renderTable(cmd.OutOrStdout(), result.Table())
			printCount(len(result), "infographic")
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}
