package config_test

import (
	"fmt"
	"log"

	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/config"
)

// ExampleNewImportConfig demonstrates the defaults of a new configuration.
func ExampleNewImportConfig() {
	cfg := config.NewImportConfig()

	fmt.Printf("Delimiter: %s\n", cfg.Import.Delimiter)
	fmt.Printf("Timeout: %s\n", cfg.Import.Timeout)
	fmt.Printf("Metrics: %s%s\n", cfg.Metrics.Address, cfg.Metrics.Path)

	// Output:
	// Delimiter: ;
	// Timeout: 30m0s
	// Metrics: :9090/metrics
}

// ExampleImportConfig_Validate shows how to validate a configuration before
// starting a run.
func ExampleImportConfig_Validate() {
	cfg := config.NewImportConfig()
	cfg.Source.URI = "s3://sewer-data/gemeente"
	cfg.Import.Version = "1.5"
	cfg.Export.Path = "network.json.gz"

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	fmt.Println("Configuration is valid!")

	// Output:
	// Configuration is valid!
}

// ExampleParse demonstrates environment substitution with defaults.
func ExampleParse() {
	doc := []byte(`
source:
  uri: ${GWSW_EXAMPLE_UNSET_DIR:-./data}
import:
  workers: 4
`)
	cfg := config.NewImportConfig()
	if err := config.Parse(doc, cfg); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Source: %s\n", cfg.Source.URI)
	fmt.Printf("Workers: %d\n", cfg.Import.Workers)
	fmt.Printf("Delimiter: %s\n", cfg.Import.Delimiter)

	// Output:
	// Source: ./data
	// Workers: 4
	// Delimiter: ;
}
