// Command import-users loads users and referrer structure from an XLSX, CSV,
// JSON or YAML export.
//
//	import-users [--dry-run] users.xlsx
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"leadbridge/internal/accounts/importer"
	accountsrepo "leadbridge/internal/accounts/repository"
	"leadbridge/platform/config"
	"leadbridge/platform/db"
	"leadbridge/platform/logger"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "validate and report without writing to the database")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [--dry-run] <file.xlsx|.csv|.json|.yaml>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	cfg, err := config.LoadTool()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	log := logger.NewWithWriter(cfg.Env, os.Stderr)

	rows, err := importer.ReadFile(path)
	if err != nil {
		log.Error("failed to read import file", "path", path, "error", err)
		os.Exit(1)
	}
	log.Info("import file loaded", "path", path, "rows", len(rows))

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	im := importer.New(accountsrepo.New(pool), importer.Options{
		UsernameDomain:         cfg.GetImportUsernameDomain(),
		DefaultPassword:        cfg.GetImportDefaultPassword(),
		DefaultCommissionTotal: cfg.GetImportDefaultCommissionTotal(),
		DryRun:                 *dryRun,
	}, log)

	summary, err := im.Run(ctx, rows)
	for _, w := range summary.Warnings {
		fmt.Println("  ! " + w)
	}
	if err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}

	if *dryRun {
		fmt.Println("DRY-RUN: nic nebylo uloženo.")
	}
	fmt.Printf("Import dokončen: %d načteno, %d vytvořeno, %d aktualizováno, %d přeskočeno, %d chyb, %d profilů.\n",
		summary.Read, summary.Created, summary.Updated, summary.Skipped, summary.Errors, summary.Profiles)
	if summary.Errors > 0 {
		os.Exit(1)
	}
}
