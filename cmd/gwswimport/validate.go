package main

import (
	"fmt"
	"path"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/errors"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/decoder"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/report"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/schema"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/logger"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/source"
)

func (a *app) newValidateCmd() *cobra.Command {
	var configOnly bool
	cmd := &cobra.Command{
		Use:   "validate [source]",
		Short: "Validate the configuration and the files of a data set",
		Long: `Validate the configuration and decode every file of the data set without
building the network. Each file is listed with its element type, row counts
and any header columns that are not part of the schema.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(args)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Configuration is valid")
			if configOnly {
				return nil
			}

			if err := logger.Init(cfg.Logging); err != nil {
				return err
			}
			log := logger.Get().With(zap.String("component", "gwswimport-validate"))
			ctx := cmd.Context()

			src, err := source.New(ctx, cfg.Source.URI, cfg.Source.Options)
			if err != nil {
				return err
			}
			defer src.Close()

			sink := report.NewCollector(log)
			s, err := schema.Load(ctx, src,
				schema.WithVersion(cfg.Import.Version),
				schema.WithDelimiter(cfg.Import.DelimiterRune()),
				schema.WithSink(sink),
				schema.WithLogger(log))
			if err != nil {
				return err
			}
			files, err := source.Files(ctx, src)
			if err != nil {
				return err
			}

			dec := decoder.New(s,
				decoder.WithDelimiter(cfg.Import.DelimiterRune()),
				decoder.WithWorkers(cfg.Import.Workers),
				decoder.WithSink(sink),
				decoder.WithLogger(log))

			fmt.Fprintf(out, "GWSW version %s, %d file(s) in %s\n", s.Version(), len(files), src)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FILE\tELEMENT\tROWS\tSKIPPED\tSTATUS")
			failed := 0
			for _, f := range files {
				if !strings.EqualFold(path.Ext(f.BaseName()), ".csv") {
					continue
				}
				res, err := dec.DecodeFile(ctx, src, f)
				if err != nil {
					failed++
					sink.Errorf("File %s is skipped: %v", f.Name, err)
					fmt.Fprintf(tw, "%s\t-\t-\t-\t%s\n", f.Name, "failed")
					continue
				}
				status := "ok"
				if len(res.Unmapped) > 0 {
					status = "unknown columns: " + strings.Join(res.Unmapped, ", ")
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", f.Name, res.ElementType, res.Rows, res.Skipped, status)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			rep := sink.Drain()
			if _, err := rep.WriteTo(out); err != nil {
				return err
			}
			if failed > 0 {
				return errors.Newf(errors.ErrorTypeFile, "%d file(s) could not be decoded", failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&configOnly, "config-only", false, "Only validate the configuration")
	cmd.Flags().String("schema-version", "", "GWSW version (1.4 or 1.5); detected when empty")
	cmd.Flags().String("delimiter", "", "Column delimiter")
	return cmd
}
