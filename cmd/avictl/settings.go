package main

import (
	"context"
	"fmt"
	"os"

	"github.com/func/avictl/config"
	"github.com/func/avictl/controller"
	"github.com/imdario/mergo"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

func addSettingsFlags(c *cobra.Command) {
	f := c.PersistentFlags()
	f.String("controller", "", "Controller address. Env var: "+config.EnvController)
	f.String("username", "", "Username. Env var: "+config.EnvUsername)
	f.String("password", "", "Password. Prompted for if not set. Env var: "+config.EnvPassword)
	f.String("tenant", "", "Tenant name. Env var: "+config.EnvTenant)
	f.String("tenant-uuid", "", "Tenant uuid, takes precedence over the name. Env var: "+config.EnvTenantUUID)
	f.String("api-version", "", "API version to request. Env var: "+config.EnvAPIVersion)
	f.String("timeout", "", "Request timeout, in seconds or as a duration. Env var: "+config.EnvTimeout)
	f.Bool("insecure", false, "Skip TLS certificate verification. Env var: "+config.EnvInsecure)
	f.String("log-level", "warn", "Log level: debug, info, warn or error")
}

// settings reads controller settings from flags. Flags that are not set fall
// back to the environment.
func settings(c *cobra.Command) (controller.Settings, error) {
	env, err := config.SettingsFromEnv(os.Getenv)
	if err != nil {
		return env, usageError{cmd: c, err: err}
	}

	var s controller.Settings
	f := c.Flags()
	s.Controller, _ = f.GetString("controller")
	s.Username, _ = f.GetString("username")
	s.Password, _ = f.GetString("password")
	s.Tenant, _ = f.GetString("tenant")
	s.TenantUUID, _ = f.GetString("tenant-uuid")
	s.APIVersion, _ = f.GetString("api-version")
	s.Insecure, _ = f.GetBool("insecure")
	if v, _ := f.GetString("timeout"); v != "" {
		d, err := config.ParseTimeout(v)
		if err != nil {
			return s, usageError{cmd: c, err: errors.Wrap(err, "--timeout")}
		}
		s.Timeout = d
	}
	if err := mergo.Merge(&s, env); err != nil {
		return s, errors.Wrap(err, "merge settings")
	}

	if s.Controller == "" {
		return s, usageError{cmd: c, err: errors.Errorf("controller not set, use --controller or %s", config.EnvController)}
	}
	if s.Username == "" {
		return s, usageError{cmd: c, err: errors.Errorf("username not set, use --username or %s", config.EnvUsername)}
	}
	if s.Password == "" {
		pw, err := promptPassword(s.Username)
		if err != nil {
			return s, usageError{cmd: c, err: err}
		}
		s.Password = pw
	}
	return s, nil
}

func promptPassword(username string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.Errorf("password not set, use --password or %s", config.EnvPassword)
	}
	fmt.Fprintf(os.Stderr, "Password for %s: ", username)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", errors.Wrap(err, "read password")
	}
	return string(pw), nil
}

// newLogger builds a development logger when stderr is a terminal, and a
// production logger otherwise.
func newLogger(c *cobra.Command) (*zap.Logger, error) {
	lvl, _ := c.Flags().GetString("log-level")
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(lvl)); err != nil {
		return nil, usageError{cmd: c, err: errors.Wrap(err, "--log-level")}
	}

	cfg := zap.NewProductionConfig()
	if isatty.IsTerminal(os.Stderr.Fd()) {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return logger, nil
}

// connect logs in to the controller.
func connect(ctx context.Context, c *cobra.Command, logger *zap.Logger) (*controller.Session, error) {
	s, err := settings(c)
	if err != nil {
		return nil, err
	}
	s.Logger = logger.Named("controller")
	sess, err := controller.Connect(ctx, s)
	if err != nil {
		return nil, errors.Wrap(err, "connect")
	}
	return sess, nil
}
