package main

import (
	"fmt"
	"strings"

	"pitchup/internal/config"
	"pitchup/internal/models"

	"github.com/spf13/cobra"
)

func migrateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := connect(cfg, false)
			if err != nil {
				return err
			}
			defer e.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	}
}

func seedCmd(cfg *config.Config) *cobra.Command {
	var days int
	var times []string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create missing slots for every venue",
		Long: `Create slots for every venue for the next --days days at each of --times (UTC).

Existing slots are left alone and start times already in the past are skipped,
so the command can run any number of times.

Examples:
  slotctl seed
  slotctl seed --days 7 --times 18:00,19:00`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("days") {
				days = cfg.Jobs.SeedDays
			}
			if !cmd.Flags().Changed("times") {
				times = cfg.Jobs.SeedTimes
			}

			e, err := connect(cfg, false)
			if err != nil {
				return err
			}
			defer e.Close()

			inserted, err := e.services.Slots.Seed(cmd.Context(), days, times)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created %d slots (%d days at %s)\n", inserted, days, strings.Join(times, ", "))
			return nil
		},
	}

	cmd.Flags().IntVarP(&days, "days", "d", 14, "number of days ahead, starting today (default JOBS_SEED_DAYS)")
	cmd.Flags().StringSliceVarP(&times, "times", "t", nil, "daily start times HH:MM in UTC (default JOBS_SEED_TIMES)")

	return cmd
}

func reclaimCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "reclaim",
		Short: "Release slots whose checkout lock has expired",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := connect(cfg, false)
			if err != nil {
				return err
			}
			defer e.Close()

			released, err := e.services.Slots.ReclaimExpiredLocks(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Released %d slots\n", released)
			return nil
		},
	}
}

func reindexCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Push every venue into the Elasticsearch venue index",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := connect(cfg, true)
			if err != nil {
				return err
			}
			defer e.Close()

			count, err := e.services.Venues.Reindex(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d venues into %s\n", count, cfg.Elasticsearch.Index)
			return nil
		},
	}
}

func venueCmd(cfg *config.Config) *cobra.Command {
	venue := &cobra.Command{
		Use:   "venue",
		Short: "Manage venues",
	}

	var name, sport, city string
	var price int64

	add := &cobra.Command{
		Use:   "add",
		Short: "Add a venue",
		Example: `  slotctl venue add --name "Riverside 5s" --sport football --city London --price 4500`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if price <= 0 {
				return fmt.Errorf("--price must be a positive amount in minor units")
			}

			e, err := connect(cfg, false)
			if err != nil {
				return err
			}
			defer e.Close()

			v := &models.Venue{Name: &name, Sport: sport, PricePerHour: &price}
			if city != "" {
				v.City = &city
			}
			if err := e.repos.Venues.Create(cmd.Context(), v); err != nil {
				return fmt.Errorf("failed to create venue: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created venue %s (%s, %s per hour)\n", v.ID, name, models.FormatAmount(price))
			fmt.Fprintln(cmd.OutOrStdout(), "Run `slotctl seed` to create its slots and `slotctl reindex` to make it searchable")
			return nil
		},
	}

	add.Flags().StringVar(&name, "name", "", "venue name")
	add.Flags().StringVar(&sport, "sport", "football", "sport played at the venue")
	add.Flags().StringVar(&city, "city", "", "city")
	add.Flags().Int64Var(&price, "price", 0, "price per hour in minor units, e.g. 4500")
	_ = add.MarkFlagRequired("name")
	_ = add.MarkFlagRequired("price")

	venue.AddCommand(add)
	return venue
}

func userCmd(cfg *config.Config) *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	var email, fullName string

	add := &cobra.Command{
		Use:   "add",
		Short: "Add a user or update the name of an existing one",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !strings.Contains(email, "@") {
				return fmt.Errorf("--email must be an email address")
			}

			e, err := connect(cfg, false)
			if err != nil {
				return err
			}
			defer e.Close()

			u := &models.User{Email: email}
			if fullName != "" {
				u.FullName = &fullName
			}
			if err := e.repos.Users.Upsert(cmd.Context(), u); err != nil {
				return fmt.Errorf("failed to save user: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "User %s: %s\n", u.Email, u.ID)
			return nil
		},
	}

	add.Flags().StringVar(&email, "email", "", "email address")
	add.Flags().StringVar(&fullName, "name", "", "display name")
	_ = add.MarkFlagRequired("email")

	user.AddCommand(add)
	return user
}
