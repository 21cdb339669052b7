package main

import (
	"fmt"

	"github.com/edgeflare/pgrest/pkg/rest"
	"github.com/spf13/cobra"
)

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get TABLE ID",
		Short: "Fetch one row by id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.clients(); err != nil {
				return err
			}
			row, err := a.rest.GetByID(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), row)
		},
	}
}

func newCreateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "create TABLE JSON",
		Short:   "Insert a row under a new UUID and print the id",
		Example: `  pgrest create organisations '{"name":"Org X","category":"tech"}'`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var record rest.Record
			if err := readJSON(args[1], cmd.InOrStdin(), &record); err != nil {
				return err
			}
			if err := a.clients(); err != nil {
				return err
			}
			id, err := a.rest.Create(cmd.Context(), args[0], record)
			if err != nil {
				return fmt.Errorf("create %s: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}

func newInsertCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "insert TABLE JSON",
		Short:   "Insert an array of rows as given and print what was stored",
		Example: `  pgrest insert organisations @orgs.json`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var records []rest.Record
			if err := readJSON(args[1], cmd.InOrStdin(), &records); err != nil {
				return err
			}
			if err := a.clients(); err != nil {
				return err
			}
			rows, err := a.rest.Insert(cmd.Context(), args[0], records...)
			if err != nil {
				return fmt.Errorf("insert %s: %w", args[0], err)
			}
			return printJSON(cmd.OutOrStdout(), rows)
		},
	}
}

func newUpdateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update TABLE ID JSON",
		Short: "Set fields on the row with the given id",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch rest.Record
			if err := readJSON(args[2], cmd.InOrStdin(), &patch); err != nil {
				return err
			}
			if err := a.clients(); err != nil {
				return err
			}
			return a.rest.Update(cmd.Context(), args[0], args[1], patch)
		},
	}
}

func newUpsertCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upsert TABLE ID JSON",
		Short: "Insert a row under the given id or merge into the existing one",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var record rest.Record
			if err := readJSON(args[2], cmd.InOrStdin(), &record); err != nil {
				return err
			}
			if err := a.clients(); err != nil {
				return err
			}
			return a.rest.Upsert(cmd.Context(), args[0], args[1], record)
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete TABLE ID",
		Short: "Delete the row with the given id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.clients(); err != nil {
				return err
			}
			return a.rest.Delete(cmd.Context(), args[0], args[1])
		},
	}
}
