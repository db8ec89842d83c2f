// Package gwsw imports GWSW sewer data sets into a sewer network model.
//
// GWSW is the Dutch standard for sewer data. A data set is a directory of
// ';'-separated files (Knooppunt.csv, Verbinding.csv, Profiel.csv, ...) whose
// columns are fixed per GWSW version. The importer reads such a set from a
// local directory, S3 or GCS, and produces a network of compartments, pipes,
// structures and cross-sections plus the rainfall-runoff collections.
//
// # Architecture
//
// An import runs in three stages, each parallel across its inputs:
//
//  1. Decode: the attribute schema (pkg/gwsw/schema) maps every file column
//     to an attribute definition, and the decoder (pkg/gwsw/decoder) turns
//     rows into elements.
//  2. Generate: the feature factory (pkg/gwsw/generator) selects a generator
//     per element type and discriminator code and builds typed features.
//  3. Assemble: the assembler (pkg/gwsw/assembler) merges features into a
//     network graph, resolves endpoints and cross-sections, and repairs the
//     network with logged fallbacks.
//
// Problems in the data never abort a run. They are collected in a report
// (pkg/gwsw/report) with file, line and attribute context.
//
// # Quick Start
//
//	src, err := source.New(ctx, "./gemeente", source.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := importer.Import(ctx, src, importer.WithWorkers(8))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res.Report.WriteTo(os.Stdout)
//
// The gwswimport command (cmd/gwswimport) wraps the same flow with export,
// snapshot storage, metrics and tracing.
package gwsw
