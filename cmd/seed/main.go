package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/localnerve/jam-build-nodedb/internal/config"
	"github.com/localnerve/jam-build-nodedb/internal/database"
	"github.com/localnerve/jam-build-nodedb/internal/events"
	"github.com/localnerve/jam-build-nodedb/internal/logger"
	"github.com/localnerve/jam-build-nodedb/internal/seed"
	"github.com/localnerve/jam-build-nodedb/internal/services"
	"github.com/localnerve/jam-build-nodedb/internal/tree"
)

func main() {
	var showHelp bool
	flag.BoolVar(&showHelp, "h", false, "show help")
	var envFilename string
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	var seedFilename string
	flag.StringVar(&seedFilename, "i", "", "path to the YAML seed file, stdin when omitted")
	flag.Parse()

	usage := `
Import node trees from a YAML seed file into the configured database.
Roots whose title already exists are skipped.

Usage:

seed [-h] [-f ENV_FILE_PATH] [-i SEED_FILE_PATH]

example
  seed -f .env -i data/seed/org.yaml
`
	if showHelp {
		fmt.Println(usage)
		return
	}

	cfg, err := config.Load(envFilename)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLog.Sync()

	var input io.Reader = os.Stdin
	if seedFilename != "" {
		f, err := os.Open(seedFilename)
		if err != nil {
			appLog.Fatal("Failed to open seed file", "path", seedFilename, "error", err)
		}
		defer f.Close()
		input = f
	}

	entries, err := seed.Parse(input)
	if err != nil {
		appLog.Fatal("Invalid seed file", "error", err)
	}

	db, err := database.Connect(cfg, appLog)
	if err != nil {
		appLog.Fatal("Failed to connect to database", "error", err)
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		appLog.Fatal("Failed to run migrations", "error", err)
	}

	ctx := context.Background()
	svc := services.NewNodeService(db, appLog, events.NewNoop(), cfg.SearchMaxTake)

	result, err := seed.Import(ctx, svc, entries, appLog)
	if err != nil {
		appLog.Fatal("Seed import failed", "created", len(result.Created), "error", err)
	}

	all, err := svc.GetAllNodes(ctx, false)
	if err != nil {
		appLog.Fatal("Failed to read back seeded nodes", "error", err)
	}
	idx := tree.Build(all)
	for _, root := range result.Created {
		fmt.Printf("created %q (id %d) with %d nodes\n", root.Title, root.ID, len(idx.Flatten(root.ID)))
	}
	for _, title := range result.Skipped {
		fmt.Printf("skipped %q, already present\n", title)
	}
}
