// Command mediagw-cli manages a media gateway deployment from the terminal.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mediagateway "github.com/brisa-labs/media-gateway"
	"github.com/brisa-labs/media-gateway/internal/keys"
	"github.com/brisa-labs/media-gateway/internal/version"
)

var cfgPath string

func main() {
	root := &cobra.Command{
		Use:           "mediagw-cli",
		Short:         "media-gateway command line tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to the gateway config file (JSON/YAML)")

	root.AddCommand(validateCmd(), keysCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a gateway configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := mediagateway.LoadConfig(args[0])
			if err != nil {
				return err
			}
			if err := mediagateway.ValidateConfig(*cfg); err != nil {
				return err
			}
			fmt.Println("Config is valid.")
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("mediagw-cli", version.String())
		},
	}
}

func keysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API key credentials",
	}
	cmd.AddCommand(keysListCmd(), keysCreateCmd(), keysDeleteCmd(), keysResetCmd())
	return cmd
}

func keysListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, cleanup, err := openManager()
			if err != nil {
				return err
			}
			defer cleanup()

			creds, err := manager.List(context.Background())
			if err != nil {
				return err
			}
			return printJSON(creds)
		},
	}
}

func keysCreateCmd() *cobra.Command {
	var owner, role string
	var limit int64
	var expiresInDays int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, cleanup, err := openManager()
			if err != nil {
				return err
			}
			defer cleanup()

			params := keys.CreateParams{Owner: owner, Limit: limit, Role: role}
			if cmd.Flags().Changed("expires-in-days") {
				params.ExpiresInDays = &expiresInDays
			}
			cred, err := manager.Create(context.Background(), params)
			if err != nil {
				return err
			}
			return printJSON(cred)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "credential owner (required)")
	cmd.Flags().Int64Var(&limit, "limit", 0, "usage limit (required)")
	cmd.Flags().StringVar(&role, "role", "", "optional role (e.g. admin)")
	cmd.Flags().IntVar(&expiresInDays, "expires-in-days", 0, "days until the key expires")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("limit")
	return cmd
}

func keysDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, cleanup, err := openManager()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := manager.Delete(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Println("Key removed.")
			return nil
		},
	}
}

func keysResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <key>",
		Short: "Reset a credential's usage counter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, cleanup, err := openManager()
			if err != nil {
				return err
			}
			defer cleanup()

			cred, err := manager.ResetUsage(context.Background(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cred)
		},
	}
}

// openManager builds a key manager from the --config file, falling back to
// the default file store when no config is given.
func openManager() (*keys.Manager, func(), error) {
	ks := mediagateway.KeyStoreConfig{}
	if cfgPath != "" {
		cfg, err := mediagateway.LoadConfig(cfgPath)
		if err != nil {
			return nil, nil, err
		}
		ks = cfg.KeyStore
	}

	switch ks.Backend {
	case mediagateway.BackendSQLite:
		s, err := keys.NewSQLiteStore(ks.Path)
		if err != nil {
			return nil, nil, err
		}
		return keys.NewManager(s), func() { _ = s.Close() }, nil
	case mediagateway.BackendPostgres:
		s, err := keys.NewPostgresStore(ks.DSN)
		if err != nil {
			return nil, nil, err
		}
		return keys.NewManager(s), func() { _ = s.Close() }, nil
	default:
		path := ks.Path
		if path == "" {
			path = "mediagw-keys.json"
		}
		return keys.NewManager(keys.NewFileStore(path)), func() {}, nil
	}
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
