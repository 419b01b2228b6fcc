// main.go
//
// User defined spatial tables over a relational database
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of layersdb.
// layersdb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// layersdb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with layersdb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/localnerve/layersdb/data"
	"github.com/localnerve/layersdb/internal/config"
	"github.com/localnerve/layersdb/internal/database"
	"github.com/localnerve/layersdb/internal/services"
)

func main() {
	var showHelp, example bool
	var envFilename string
	flag.BoolVar(&showHelp, "h", false, "show help")
	flag.BoolVar(&example, "example", false, "print the example seed document and exit")
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	flag.Parse()

	usage := `
Create or complete user tables from a seed document.

Usage:

seedtables [-h] [-example] [-f ENV_FILE_PATH] SEED_FILE

SEED_FILE: YAML or JSON document, "-" reads standard input

example
  seedtables -f /path/to/.env tables.yaml
`
	if showHelp {
		fmt.Println(usage)
		return
	}
	if example {
		fmt.Print(data.ExampleSeed)
		return
	}
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if envFilename != "" {
		if err := godotenv.Load(envFilename); err != nil {
			boot.Fatal().Err(err).Str("file", envFilename).Msg("failed to load environment variables")
		}
	}
	cfg, err := config.Load()
	if err != nil {
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}
	zlog := cfg.Logger(os.Stderr)

	var in io.Reader
	if path := flag.Arg(0); path == "-" {
		in = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			zlog.Fatal().Err(err).Msg("bad seed file")
		}
		defer f.Close()
		in = f
	}
	seed, err := services.LoadSeedConfig(in)
	if err != nil {
		zlog.Fatal().Err(err).Msg("bad seed file")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close(db)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc := services.New(db,
		services.WithLogger(zlog),
		services.WithNameScope(cfg.NameScope),
		services.WithDefaultSRID(cfg.DefaultSRID),
		services.WithFilesDir(cfg.FilesDir),
	)
	res, err := svc.SeedTables(ctx, seed)
	if err != nil {
		zlog.Error().Err(err).Msg("seeding failed")
	}
	fmt.Printf("created %d, kept %d, fields added %d\n", res.TablesCreated, res.TablesKept, res.FieldsAdded)
	if err != nil {
		os.Exit(1)
	}
}
