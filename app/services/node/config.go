package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/conf/v3"
)

// build is the git version of this program, set at build time with
// -ldflags "-X main.build=...", mirroring the teacher's
// app/services/node/main.go.
var build = "develop"

// config is the node bootstrap's configuration. It is parsed from the
// environment (and, incidentally, command-line flags) through
// ardanlabs/conf/v3, the same struct-tag-driven loader the teacher's
// own app/services/node/main.go uses for its Web/Node/NameService
// groups: fields default via `conf:"default:..."` and fail closed via
// `conf:"required"` instead of a hand-rolled os.LookupEnv sweep.
type config struct {
	conf.Version
	DB struct {
		DSN            string `conf:"required"`
		ConnectRetries int    `conf:"default:3"`
	}
	Node struct {
		SignPrefix       string        `conf:"required"`
		Address          string        `conf:"required"`
		StatementTimeout time.Duration `conf:"default:30s"`
	}
}

// loadConfig parses the process environment into a config under the
// "NODE" prefix, failing closed on any missing required field. A
// conf.ErrHelpWanted (the user passed --help) is returned unwrapped so
// the caller can print the usage conf.Parse already generated instead
// of treating it as a startup failure.
func loadConfig() (config, string, error) {
	var cfg config
	cfg.Version = conf.Version{
		Build: build,
		Desc:  "validana-core node",
	}

	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			return config{}, help, err
		}
		return config{}, "", fmt.Errorf("parsing config: %w", err)
	}

	return cfg, "", nil
}
