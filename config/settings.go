package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/func/avictl/controller"
	"github.com/pkg/errors"
)

// Environment variables read by SettingsFromEnv.
const (
	EnvController = "AVI_CONTROLLER"
	EnvUsername   = "AVI_USERNAME"
	EnvPassword   = "AVI_PASSWORD"
	EnvTenant     = "AVI_TENANT"
	EnvTenantUUID = "AVI_TENANT_UUID"
	EnvAPIVersion = "AVI_API_VERSION"
	EnvTimeout    = "AVI_TIMEOUT"
	EnvInsecure   = "AVI_INSECURE"
)

// SettingsFromEnv reads controller settings from environment variables using
// getenv, typically os.Getenv. Unset variables leave the zero value, so the
// controller defaults apply.
//
// AVI_TIMEOUT is either a number of seconds or a duration such as 90s.
func SettingsFromEnv(getenv func(string) string) (controller.Settings, error) {
	s := controller.Settings{
		Controller: getenv(EnvController),
		Username:   getenv(EnvUsername),
		Password:   getenv(EnvPassword),
		Tenant:     getenv(EnvTenant),
		TenantUUID: getenv(EnvTenantUUID),
		APIVersion: getenv(EnvAPIVersion),
	}
	if v := getenv(EnvTimeout); v != "" {
		d, err := ParseTimeout(v)
		if err != nil {
			return s, errors.Wrap(err, EnvTimeout)
		}
		s.Timeout = d
	}
	if v := getenv(EnvInsecure); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return s, errors.Wrap(err, EnvInsecure)
		}
		s.Insecure = b
	}
	return s, nil
}

// ParseTimeout parses a number of seconds or a duration string.
func ParseTimeout(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		if n < 0 {
			return 0, errors.Errorf("timeout must not be negative, got %d", n)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.Errorf("invalid timeout %q", v)
	}
	if d < 0 {
		return 0, errors.Errorf("timeout must not be negative, got %s", d)
	}
	return d, nil
}
