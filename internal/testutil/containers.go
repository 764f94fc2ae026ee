// containers.go
//
// Business process backend for immigration and company formation services
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of bizflow.
// bizflow is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// bizflow is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with bizflow.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package testutil

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/localnerve/bizflow/internal/config"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	defaultPostgresImage = "postgres:16-alpine"
	defaultRedisImage    = "redis:7-alpine"
	stackDatabase        = "bizflow"
	stackUser            = "bizflow"
	stackPassword        = "bizflow"
)

// Stack is a Postgres and Redis pair on a private network
type Stack struct {
	Network  *testcontainers.DockerNetwork
	Postgres testcontainers.Container
	Redis    testcontainers.Container

	DBHost   string
	DBPort   string
	RedisURL string
}

// DockerAvailable reports whether a Docker daemon answers on the environment's endpoint
func DockerAvailable(ctx context.Context) bool {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return false
	}
	defer cli.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err = cli.Ping(pingCtx)
	return err == nil
}

func imageOr(env, fallback string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	return fallback
}

// StartStack starts Postgres and Redis. Images can be overridden with
// POSTGRES_IMAGE and REDIS_IMAGE. hostPorts binds the containers to their
// standard ports on the host, for running the server against them.
func StartStack(ctx context.Context, hostPorts bool) (*Stack, error) {
	stack := &Stack{}

	nw, err := network.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("create network: %w", err)
	}
	stack.Network = nw

	pgPort, _ := nat.NewPort("tcp", "5432")
	redisPort, _ := nat.NewPort("tcp", "6379")

	bind := func(port nat.Port) func(*container.HostConfig) {
		return func(hc *container.HostConfig) {
			hc.AutoRemove = true
			if hostPorts {
				hc.PortBindings = nat.PortMap{
					port: []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: port.Port()}},
				}
			}
		}
	}

	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        imageOr("POSTGRES_IMAGE", defaultPostgresImage),
			ExposedPorts: []string{string(pgPort)},
			Env: map[string]string{
				"POSTGRES_DB":       stackDatabase,
				"POSTGRES_USER":     stackUser,
				"POSTGRES_PASSWORD": stackPassword,
			},
			HostConfigModifier: bind(pgPort),
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
			Networks:       []string{nw.Name},
			NetworkAliases: map[string][]string{nw.Name: {"postgres"}},
		},
		Started: true,
	})
	if err != nil {
		stack.Terminate(ctx)
		return nil, fmt.Errorf("start postgres: %w", err)
	}
	stack.Postgres = pg

	rd, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:              imageOr("REDIS_IMAGE", defaultRedisImage),
			ExposedPorts:       []string{string(redisPort)},
			HostConfigModifier: bind(redisPort),
			WaitingFor:         wait.ForListeningPort(redisPort).WithStartupTimeout(30 * time.Second),
			Networks:           []string{nw.Name},
			NetworkAliases:     map[string][]string{nw.Name: {"redis"}},
		},
		Started: true,
	})
	if err != nil {
		stack.Terminate(ctx)
		return nil, fmt.Errorf("start redis: %w", err)
	}
	stack.Redis = rd

	if stack.DBHost, err = pg.Host(ctx); err != nil {
		stack.Terminate(ctx)
		return nil, err
	}
	mappedPG, err := pg.MappedPort(ctx, pgPort)
	if err != nil {
		stack.Terminate(ctx)
		return nil, err
	}
	stack.DBPort = mappedPG.Port()

	redisHost, err := rd.Host(ctx)
	if err != nil {
		stack.Terminate(ctx)
		return nil, err
	}
	mappedRedis, err := rd.MappedPort(ctx, redisPort)
	if err != nil {
		stack.Terminate(ctx)
		return nil, err
	}
	stack.RedisURL = fmt.Sprintf("redis://%s:%s/0", redisHost, mappedRedis.Port())

	return stack, nil
}

// Config returns a server configuration pointing at the stack
func (s *Stack) Config() *config.Config {
	return &config.Config{
		AppEnv:               "test",
		DBType:               "postgres",
		DBHost:               s.DBHost,
		DBPort:               s.DBPort,
		DBDatabase:           stackDatabase,
		DBAppUser:            stackUser,
		DBAppPassword:        stackPassword,
		DBAppConnectionLimit: 5,
		DBUser:               stackUser,
		DBPassword:           stackPassword,
		DBConnectionLimit:    2,
		JWTSecret:            "test-secret",
		TokenTTL:             time.Hour,
		RedisURL:             s.RedisURL,
		OutboxSize:           64,
	}
}

// Env returns the variables a server process needs to use the stack
func (s *Stack) Env() map[string]string {
	return map[string]string{
		"DB_TYPE":         "postgres",
		"DB_HOST":         s.DBHost,
		"DB_PORT":         s.DBPort,
		"DB_DATABASE":     stackDatabase,
		"DB_APP_USER":     stackUser,
		"DB_APP_PASSWORD": stackPassword,
		"DB_USER":         stackUser,
		"DB_PASSWORD":     stackPassword,
		"REDIS_URL":       s.RedisURL,
	}
}

// Terminate stops every container and removes the network; errors are ignored
func (s *Stack) Terminate(ctx context.Context) {
	if s.Redis != nil {
		_ = s.Redis.Terminate(ctx)
	}
	if s.Postgres != nil {
		_ = s.Postgres.Terminate(ctx)
	}
	if s.Network != nil {
		_ = s.Network.Remove(ctx)
	}
}
