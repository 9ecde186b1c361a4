package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"time"

	"github.com/dkazakov/pipesentry/internal/adapters/database"
	"github.com/dkazakov/pipesentry/internal/application/services"
	"github.com/dkazakov/pipesentry/internal/infrastructure/clients/postgres"
	"github.com/dkazakov/pipesentry/internal/infrastructure/observability"
	"github.com/dkazakov/pipesentry/pkg/config"
)

// One-shot CSV import tool for seeding the database:
//
//	import -objects objects.csv -diagnostics diagnostics.csv
func main() {
	objectsPath := flag.String("objects", "", "path to an objects CSV file")
	diagnosticsPath := flag.String("diagnostics", "", "path to a diagnostics CSV file")
	flag.Parse()

	if *objectsPath == "" && *diagnosticsPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL client: %v", err)
	}
	defer pgClient.Close()

	objectAdapter := database.NewObjectAdapter(pgClient)
	diagnosticAdapter := database.NewDiagnosticAdapter(pgClient)
	importService := services.NewImportService(objectAdapter, diagnosticAdapter, nil, cfg.Import.MaxRows)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if *objectsPath != "" {
		runImport(ctx, "objects", *objectsPath, importService.ImportObjects)
	}
	if *diagnosticsPath != "" {
		runImport(ctx, "diagnostics", *diagnosticsPath, importService.ImportDiagnostics)
	}
}

func runImport(
	ctx context.Context,
	kind, path string,
	importFn func(context.Context, io.Reader) (*services.ImportReport, error),
) {
	file, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open %s file: %v", kind, err)
	}
	defer file.Close()

	report, err := importFn(ctx, file)
	if err != nil {
		log.Fatalf("Failed to import %s: %v", kind, err)
	}

	log.Printf("Imported %d %s (%d failed)", report.Imported, kind, report.Failed)
	for _, rowErr := range report.Errors {
		log.Printf("  %s", rowErr)
	}
}
