package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/localnerve/bizflow/internal/logging"
	"github.com/localnerve/bizflow/internal/testutil"
)

func main() {
	var showHelp bool
	flag.BoolVar(&showHelp, "h", false, "show help")
	var envFilename string
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	flag.Parse()

	usage := `
Run the bizflow development stack (Postgres and Redis) in containers bound to
their standard host ports, and print the environment the server needs.

Usage:

testcontainers [-h] [-f ENV_FILE_PATH]

ENV_FILE_PATH: path to a .env file with POSTGRES_IMAGE or REDIS_IMAGE overrides

example
  testcontainers -f /path/to/something/.env
`
	if showHelp {
		fmt.Println(usage)
		return
	}

	log := logging.WithComponent("testcontainers")
	if envFilename != "" {
		log.Info().Str("file", envFilename).Msg("loading environment")
		if err := godotenv.Load(envFilename); err != nil {
			log.Fatal().Err(err).Msg("failed to load environment file")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if !testutil.DockerAvailable(ctx) {
		log.Fatal().Msg("docker daemon is not reachable")
	}

	stack, err := testutil.StartStack(ctx, true)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start containers")
	}

	env := stack.Env()
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s=%s\n", k, env[k])
	}
	log.Info().Msg("stack running, press Ctrl+C to stop")

	<-ctx.Done()
	log.Info().Msg("terminating containers")
	stack.Terminate(context.Background())
}
