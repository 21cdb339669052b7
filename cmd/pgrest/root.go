package main

import (
	"fmt"
	"strings"

	"github.com/edgeflare/pgrest/pkg/auth"
	"github.com/edgeflare/pgrest/pkg/config"
	"github.com/edgeflare/pgrest/pkg/httputil"
	"github.com/edgeflare/pgrest/pkg/rest"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var version = "dev"

// app is the state shared by every subcommand. It is filled in by
// setup before a subcommand runs.
type app struct {
	cfgFile string

	cfg    *config.Config
	logger *zap.Logger
	http   *httputil.Client
	rest   *rest.Client
	auth   *auth.Client
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "pgrest",
		Short: "pgrest is a client for PostgREST-style REST backends",
		Long: `pgrest queries and modifies tables, calls RPC functions and manages
users of a Supabase-style backend through its /rest/v1 and /auth/v1 APIs.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		Run: func(cmd *cobra.Command, args []string) {
			versionFlag, _ := cmd.Flags().GetBool("version")
			if versionFlag {
				fmt.Fprintln(cmd.OutOrStdout(), version)
				return
			}
			cmd.Help()
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.config/pgrest.yaml)")
	f.String("url", "", "base URL of the backend, e.g. https://xyz.supabase.co")
	f.String("api-key", "", "API key sent as apikey and default bearer token")
	f.String("access-token", "", "user access token; row level security applies to this user")
	f.String("schema", "", "schema other than the default (Accept-Profile/Content-Profile)")
	f.Bool("strict-filters", false, "reject filter trees that mix and/or below the root")
	f.StringP("log-level", "L", "", "log requests at this level (debug, info, warn, error, none)")
	cmd.Flags().BoolP("version", "v", false, "Print the version number")

	cmd.AddCommand(
		newSelectCmd(a),
		newCountCmd(a),
		newQueryCmd(a),
		newGetCmd(a),
		newCreateCmd(a),
		newInsertCmd(a),
		newUpdateCmd(a),
		newUpsertCmd(a),
		newDeleteCmd(a),
		newRPCCmd(a),
		newAuthCmd(a),
	)
	return cmd
}

// flagKeys maps persistent flags to config keys.
var flagKeys = map[string]string{
	"url":            "url",
	"api-key":        "apiKey",
	"access-token":   "accessToken",
	"schema":         "schema",
	"strict-filters": "strictFilters",
	"log-level":      "logLevel",
}

func (a *app) setup(cmd *cobra.Command) error {
	v := config.New(a.cfgFile)
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	if err := config.Read(v); err != nil {
		return err
	}
	cfg, err := config.Decode(v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if a.logger, err = newLogger(cfg.LogLevel); err != nil {
		return err
	}
	return nil
}

// clients builds the transport and API clients on first use, so that
// commands which never talk to the backend work without a URL.
func (a *app) clients() error {
	if a.rest != nil {
		return nil
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	opts := append(a.cfg.HTTPOptions(), httputil.WithLogger(a.logger))
	a.http = httputil.NewClient(opts...)

	rc, err := rest.NewClient(a.cfg.URL, a.cfg.APIKey,
		rest.WithHTTPClient(a.http),
		rest.WithAccessToken(a.cfg.AccessToken),
		rest.WithSchema(a.cfg.Schema),
		rest.WithStrictFilters(a.cfg.StrictFilters),
	)
	if err != nil {
		return err
	}
	ac, err := auth.NewClient(a.cfg.URL, a.cfg.APIKey, a.http)
	if err != nil {
		return err
	}
	a.rest, a.auth = rc, ac
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "none" || level == "off" {
		return zap.NewNop(), nil
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zc.Build()
}
