package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCheckConfigCmdRegistersConfigFlag(t *testing.T) {
	cmd := newCheckConfigCmd()
	flag := cmd.Flags().Lookup("config")
	assert.NotNil(t, flag)
	assert.Equal(t, "config.yaml", flag.DefValue)
}

func TestNewStartCmdRegistersExpectedFlags(t *testing.T) {
	cmd := newStartCmd()
	for _, name := range []string{"config", "metrics-addr", "redis-addr", "postgres-dsn", "kraken-api-key", "kraken-api-secret", "log-level", "log-pretty"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "expected flag %s to be registered", name)
	}
}
