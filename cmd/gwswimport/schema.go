package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/errors"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/schema"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/json"
)

func (a *app) newSchemaCmd() *cobra.Command {
	var (
		version string
		file    string
		output  string
	)
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show the attribute definitions of a GWSW version",
		Long: `Show the attribute definitions of a GWSW version: per file the element type,
the column names, the attribute types and whether a column is mandatory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := schema.Embedded(version, nil)
			if err != nil {
				return err
			}
			defs := s.Definitions()
			if file != "" {
				canonical, ok := s.FileName(file)
				if !ok {
					return errors.Newf(errors.ErrorTypeValidation, "%s is not a GWSW %s file", file, version).
						WithDetail("files", s.Files())
				}
				defs = s.ColumnDefinitions(canonical)
			}

			out := cmd.OutOrStdout()
			switch strings.ToLower(output) {
			case "json":
				return json.Encode(out, defs, true)
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(defs); err != nil {
					return err
				}
				return enc.Close()
			case "", "table":
				if file == "" {
					fmt.Fprintf(out, "GWSW %s\n", s.Version())
					for _, line := range s.Summary() {
						fmt.Fprintf(out, "  %s\n", line)
					}
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "COLUMN\tKEY\tTYPE\tUNIT\tMANDATORY")
				for _, d := range defs {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", d.LocalKey, d.Key, d.Type, d.Unit, d.Mandatory)
				}
				return tw.Flush()
			}
			return errors.Newf(errors.ErrorTypeValidation, "unsupported output %q", output)
		},
	}
	cmd.Flags().StringVar(&version, "schema-version", schema.Version15, "GWSW version")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Show the columns of one file, e.g. Knooppunt.csv")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, json, yaml)")
	return cmd
}
