package pgliteenv

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envPrefix namespaces all environment overrides.
const envPrefix = "PGLITE"

// applyEnv overlays the PGLITE_* environment variables onto c. New applies
// it between the built-in defaults and the explicit options, so options
// beat environment and environment beats defaults.
//
// Values are read as strings and parsed explicitly so that a malformed
// value fails New loudly instead of silently falling back to a default.
// An unset or empty variable leaves the configuration untouched.
func applyEnv(c *managerConfig) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	// Explicitly bind the supported variables; AutomaticEnv alone only
	// resolves keys viper has seen through defaults or config files.
	bindEnvs := []struct {
		key    string
		envVar string
	}{
		{"timeout", "PGLITE_TIMEOUT"},
		{"use_tcp", "PGLITE_USE_TCP"},
		{"tcp_host", "PGLITE_TCP_HOST"},
		{"tcp_port", "PGLITE_TCP_PORT"},
		{"work_dir", "PGLITE_WORK_DIR"},
		{"log_level", "PGLITE_LOG_LEVEL"},
		{"node_binary", "PGLITE_NODE_BINARY"},
		{"cleanup_on_exit", "PGLITE_CLEANUP_ON_EXIT"},
		{"extensions", "PGLITE_EXTENSIONS"},
	}
	for _, env := range bindEnvs {
		if err := v.BindEnv(env.key, env.envVar); err != nil {
			return fmt.Errorf("bind environment variable %s: %w", env.envVar, err)
		}
	}

	if s := v.GetString("timeout"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("PGLITE_TIMEOUT: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("PGLITE_TIMEOUT: must be greater than 0, got %s", d)
		}
		c.Timeout = d
	}

	// The TCP host and port only take effect when PGLITE_USE_TCP enables
	// TCP mode; in the default Unix mode they would otherwise trip
	// validation as conflicting options.
	if s := v.GetString("use_tcp"); s != "" {
		useTCP, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("PGLITE_USE_TCP: %w", err)
		}
		if useTCP {
			c.Transport = TransportTCP
			if host := v.GetString("tcp_host"); host != "" {
				c.TCPHost = host
			}
			if ps := v.GetString("tcp_port"); ps != "" {
				port, err := strconv.Atoi(ps)
				if err != nil {
					return fmt.Errorf("PGLITE_TCP_PORT: %w", err)
				}
				c.TCPPort = port
			}
		}
	}

	if s := v.GetString("work_dir"); s != "" {
		c.WorkDir = s
	}

	if s := v.GetString("log_level"); s != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(s)); err != nil {
			return fmt.Errorf("PGLITE_LOG_LEVEL: %w", err)
		}
		c.logLevel = level
		c.logLevelSet = true
	}

	if s := v.GetString("node_binary"); s != "" {
		c.NodeBinary = s
	}

	if s := v.GetString("cleanup_on_exit"); s != "" {
		cleanup, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("PGLITE_CLEANUP_ON_EXIT: %w", err)
		}
		c.CleanupOnExit = cleanup
	}

	if s := v.GetString("extensions"); s != "" {
		var names []string
		for _, name := range strings.Split(s, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
		c.Extensions = names
	}

	return nil
}
