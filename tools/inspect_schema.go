//go:build ignore

// inspect_schema prints the catalog and the live shape of every user table
// of the configured database.
//
//	go run tools/inspect_schema.go
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/localnerve/layersdb/internal/catalog"
	"github.com/localnerve/layersdb/internal/config"
	"github.com/localnerve/layersdb/internal/database"
	"github.com/localnerve/layersdb/internal/fieldtypes"
	"github.com/localnerve/layersdb/internal/materializer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("failed to load configuration")
	}
	zlog := cfg.Logger(os.Stderr)

	db, err := database.Connect(cfg)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close(db)

	tables, err := catalog.ListTables(db)
	if err != nil {
		zlog.Fatal().Err(err).Msg("listing tables")
	}

	m := materializer.New(fieldtypes.Default, zlog)
	for i := range tables {
		def := &tables[i]
		fmt.Printf("\n=== Table %d: %s (%s) owner=%s ===\n", def.ID, def.DisplayName, def.DBTable, def.OwnerID)
		for _, f := range def.Fields {
			fmt.Printf("  field %-24s %-20s null=%t system=%t params=%s\n", f.Name, f.Kind, f.Null, f.System, string(f.Params.JSON))
		}

		live, err := m.GetLiveShape(db, def.DBTable)
		if err != nil {
			fmt.Printf("  live shape unavailable: %v\n", err)
			continue
		}
		for _, c := range live {
			fmt.Printf("  column %-23s %-20s kind=%s null=%t pk=%t\n", c.Name, c.DatabaseType, c.Kind, c.Nullable, c.PrimaryKey)
		}
	}
}
