// Command gwswimport reads a GWSW sewer data set and assembles it into a
// sewer network.
package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/config"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/schema"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries the settings shared by all commands. Flags and GWSW_*
// environment variables are read through v and overlay the config file.
type app struct {
	v          *viper.Viper
	configFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	a.v.SetEnvPrefix("GWSW")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "gwswimport",
		Short: "Import GWSW sewer data into a sewer network",
		Long: `gwswimport reads the CSV files of a GWSW data set (local directory, S3 or GCS),
converts them into nodes, pipes, structures and cross-sections and assembles the
sewer network. Problems in the data are collected in a report.`,
		SilenceUsage: true,
		// Bind the flags of the command being run, so commands can share
		// flag names.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.v.BindPFlags(cmd.Flags())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configFile, "config", "c", "", "Path to a YAML configuration file")
	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	pf.String("log-format", "", "Log encoding (json, console)")

	root.AddCommand(
		newVersionCmd(),
		a.newImportCmd(),
		a.newValidateCmd(),
		a.newSchemaCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "gwswimport v%s\n", version)
			fmt.Fprintf(out, "GWSW versions: %s\n", strings.Join(schema.Versions(), ", "))
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// loadConfig reads the config file, when given, and applies the flags and
// environment variables that were set.
func (a *app) loadConfig(args []string) (*config.ImportConfig, error) {
	cfg := config.NewImportConfig()
	path := a.configFile
	if path == "" {
		path = a.v.GetString("config")
	}
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if len(args) > 0 {
		cfg.Source.URI = args[0]
	}
	a.overlay(cfg)
	return cfg, nil
}

func (a *app) overlay(cfg *config.ImportConfig) {
	v := a.v
	if v.IsSet("source") {
		cfg.Source.URI = v.GetString("source")
	}
	if v.IsSet("schema-version") {
		cfg.Import.Version = v.GetString("schema-version")
	}
	if v.IsSet("delimiter") {
		cfg.Import.Delimiter = v.GetString("delimiter")
	}
	if v.IsSet("workers") {
		cfg.Import.Workers = v.GetInt("workers")
	}
	if v.IsSet("timeout") {
		cfg.Import.Timeout = v.GetDuration("timeout")
	}
	if v.IsSet("export") {
		cfg.Export.Path = v.GetString("export")
	}
	if v.IsSet("upload") {
		cfg.Export.Upload = v.GetBool("upload")
	}
	if v.IsSet("store") {
		cfg.Store.DSN = v.GetString("store")
	}
	if v.IsSet("log-level") {
		cfg.Logging.Level = v.GetString("log-level")
	}
	if v.IsSet("log-format") {
		cfg.Logging.Encoding = v.GetString("log-format")
	}
	if v.IsSet("metrics-addr") {
		cfg.Metrics.Address = v.GetString("metrics-addr")
		cfg.Metrics.Enabled = cfg.Metrics.Address != ""
	}
	if v.IsSet("trace") {
		cfg.Tracing.Enabled = v.GetBool("trace")
	}
}
