package main

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"
)

func newRPCCmd(a *app) *cobra.Command {
	var (
		argsJSON string
		raw      string
		upsert   bool
	)

	cmd := &cobra.Command{
		Use:   "rpc FUNCTION",
		Short: "Call a database function",
		Example: `  pgrest rpc search_organisations --args '{"term":"tech"}'
  pgrest rpc --raw /rest/v1/organisations?select=%2A --method GET`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload any
			if argsJSON != "" {
				if err := readJSON(argsJSON, cmd.InOrStdin(), &payload); err != nil {
					return err
				}
			}
			if err := a.clients(); err != nil {
				return err
			}

			if raw != "" {
				method, _ := cmd.Flags().GetString("method")
				out, err := a.rest.Request(cmd.Context(), method, raw, payload, upsert)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			}

			if len(args) != 1 {
				return errors.New("rpc: function name required")
			}
			rows, err := a.rest.RPC(cmd.Context(), args[0], payload)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rows)
		},
	}

	f := cmd.Flags()
	f.StringVar(&argsJSON, "args", "", "function arguments as a JSON object, - for stdin or @file")
	f.StringVar(&raw, "raw", "", "send a request to this path instead, relative to the base URL")
	f.String("method", http.MethodPost, "HTTP method with --raw")
	f.BoolVar(&upsert, "upsert", false, "add Prefer: resolution=merge-duplicates with --raw")
	return cmd
}
