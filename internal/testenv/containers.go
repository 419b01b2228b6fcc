// Package testenv starts the containers backing integration tests and local
// development: a PostGIS database and, optionally, an Authorizer.
package testenv

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/juju/errors"
	"github.com/rs/zerolog/log"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/localnerve/layersdb/internal/config"
)

const (
	dbAlias    = "postgis"
	authzAlias = "authorizer"
)

// Options selects the images and credentials of the environment.
type Options struct {
	DBImage    string
	DBName     string
	DBUser     string
	DBPassword string

	// AuthzImage starts an Authorizer when set.
	AuthzImage       string
	AuthzClientID    string
	AuthzAdminSecret string
}

// DefaultOptions returns a PostGIS-only environment.
func DefaultOptions() Options {
	return Options{
		DBImage:    "postgis/postgis:16-3.4",
		DBName:     "layers",
		DBUser:     "layers",
		DBPassword: "layers",
	}
}

// Environment is a running set of containers.
type Environment struct {
	Network    *testcontainers.DockerNetwork
	DB         testcontainers.Container
	Authorizer testcontainers.Container

	// Config points at the mapped ports of the running containers.
	Config *config.Config
}

// Start creates the network and containers of opts. On failure every
// container already started is terminated.
func Start(ctx context.Context, opts Options) (env *Environment, err error) {
	env = &Environment{}
	defer func() {
		if err != nil {
			env.Terminate(context.Background())
			env = nil
		}
	}()

	nw, err := network.New(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "creating network")
	}
	env.Network = nw

	if cached, err := ImageExists(ctx, opts.DBImage); err == nil && !cached {
		log.Info().Str("image", opts.DBImage).Msg("pulling database image")
	}

	dbPort, err := nat.NewPort("tcp", "5432")
	if err != nil {
		return nil, errors.Trace(err)
	}
	env.DB, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        opts.DBImage,
			ExposedPorts: []string{string(dbPort)},
			Env: map[string]string{
				"POSTGRES_DB":       opts.DBName,
				"POSTGRES_USER":     opts.DBUser,
				"POSTGRES_PASSWORD": opts.DBPassword,
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
				wait.ForListeningPort(dbPort),
			).WithDeadline(90 * time.Second),
			Networks:       []string{nw.Name},
			NetworkAliases: map[string][]string{nw.Name: {dbAlias}},
		},
		Started: true,
	})
	if err != nil {
		return nil, errors.Annotate(err, "starting PostGIS")
	}

	host, err := env.DB.Host(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	mapped, err := env.DB.MappedPort(ctx, dbPort)
	if err != nil {
		return nil, errors.Trace(err)
	}
	cfg := config.FromEnv()
	cfg.DBType = "postgres"
	cfg.DBHost = host
	cfg.DBPort = mapped.Port()
	cfg.DBDatabase = opts.DBName
	cfg.DBUser = opts.DBUser
	cfg.DBPassword = opts.DBPassword
	env.Config = cfg
	log.Info().Str("host", host).Str("port", mapped.Port()).Msg("PostGIS started")

	if opts.AuthzImage == "" {
		return env, nil
	}

	authzPort, err := nat.NewPort("tcp", "8080")
	if err != nil {
		return nil, errors.Trace(err)
	}
	dsn := fmt.Sprintf("postgres://%s:%s@%s:5432/%s?sslmode=disable", opts.DBUser, opts.DBPassword, dbAlias, opts.DBName)
	env.Authorizer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        opts.AuthzImage,
			ExposedPorts: []string{string(authzPort)},
			Env: map[string]string{
				"ENV":           "production",
				"CLIENT_ID":     opts.AuthzClientID,
				"PORT":          authzPort.Port(),
				"DATABASE_TYPE": "postgres",
				"DATABASE_URL":  dsn,
				"ADMIN_SECRET":  opts.AuthzAdminSecret,
				"ROLES":         "admin,user",
				"DEFAULT_ROLES": "user",
			},
			WaitingFor:     wait.ForLog("Authorizer running at PORT:").WithStartupTimeout(30 * time.Second),
			Networks:       []string{nw.Name},
			NetworkAliases: map[string][]string{nw.Name: {authzAlias}},
		},
		Started: true,
	})
	if err != nil {
		return nil, errors.Annotate(err, "starting Authorizer")
	}
	authzHost, err := env.Authorizer.Host(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	authzMapped, err := env.Authorizer.MappedPort(ctx, authzPort)
	if err != nil {
		return nil, errors.Trace(err)
	}
	cfg.AuthzURL = fmt.Sprintf("http://%s:%s", authzHost, authzMapped.Port())
	cfg.AuthzClientID = opts.AuthzClientID
	log.Info().Str("url", cfg.AuthzURL).Msg("Authorizer started")
	return env, nil
}

// Terminate stops every container and removes the network.
func (e *Environment) Terminate(ctx context.Context) {
	if e == nil {
		return
	}
	for name, c := range map[string]testcontainers.Container{"authorizer": e.Authorizer, "postgis": e.DB} {
		if c == nil {
			continue
		}
		if err := c.Terminate(ctx); err != nil {
			log.Warn().Err(err).Str("container", name).Msg("failed to terminate container")
		}
	}
	if e.Network != nil {
		if err := e.Network.Remove(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to remove network")
		}
	}
}
