package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/localnerve/layersdb/internal/testenv"
)

func main() {
	var showHelp bool
	flag.BoolVar(&showHelp, "h", false, "show help")
	var envFilename string
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	flag.Parse()

	usage := `
Run a PostGIS container (and an Authorizer when AUTHZ_IMAGE is set) for local
development, printing the DB_* and AUTHZ_* settings that reach them.

Usage:

testcontainers [-h] [-f ENV_FILE_PATH]

ENV_FILE_PATH: path to the .env file

example
  testcontainers -f /path/to/something/.env
`
	// if -h flag print usage and return
	if showHelp {
		fmt.Println(usage)
		return
	}

	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	if envFilename != "" {
		log.Info().Str("file", envFilename).Msg("loading environment variables")
		if err := godotenv.Load(envFilename); err != nil {
			log.Fatal().Err(err).Msg("failed to load environment variables")
		}
	}

	opts := testenv.DefaultOptions()
	if image := os.Getenv("DB_IMAGE"); image != "" {
		opts.DBImage = image
	}
	opts.AuthzImage = os.Getenv("AUTHZ_IMAGE")
	opts.AuthzClientID = os.Getenv("AUTHZ_CLIENT_ID")
	opts.AuthzAdminSecret = os.Getenv("AUTHZ_ADMIN_SECRET")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	env, err := testenv.Start(ctx, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create test containers")
	}
	cfg := env.Config
	fmt.Printf("DB_TYPE=%s\nDB_HOST=%s\nDB_PORT=%s\nDB_DATABASE=%s\nDB_USER=%s\nDB_PASSWORD=%s\n",
		cfg.DBType, cfg.DBHost, cfg.DBPort, cfg.DBDatabase, cfg.DBUser, cfg.DBPassword)
	if cfg.AuthzURL != "" {
		fmt.Printf("AUTHZ_URL=%s\nAUTHZ_CLIENT_ID=%s\n", cfg.AuthzURL, cfg.AuthzClientID)
	}

	<-ctx.Done()
	log.Info().Msg("terminating test containers")
	env.Terminate(context.Background())
}
