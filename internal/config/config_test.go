package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig(t *testing.T) {
	var (
		addr = "localhost:8080"
		dsn  = "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable"
		key  = "c29tZV9zZWNyZXQ="
		orig = []string{"http://localhost:3000"}
	)

	tcases := []struct {
		name string
		addr string
		dsn  string
		key  string
		err  bool
	}{
		{
			name: "valid config",
			addr: addr,
			dsn:  dsn,
			key:  key,
			err:  false,
		},
		{
			name: "empty address",
			addr: "",
			dsn:  dsn,
			key:  key,
			err:  true,
		},
		{
			name: "empty DSN",
			addr: addr,
			dsn:  "",
			key:  key,
			err:  true,
		},
		{
			name: "empty signing key",
			addr: addr,
			dsn:  dsn,
			key:  "",
			err:  true,
		},
		{
			name: "invalid base64 signing key",
			addr: addr,
			dsn:  dsn,
			key:  "not-base64!!",
			err:  true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := NewConfig(tc.addr, tc.dsn, tc.key, orig, "")
			if tc.err {
				assert.Error(t, err, "expected error for case %q", tc.name)
				assert.Nil(t, cfg, "expected nil config on error")
				return
			}

			assert.NoError(t, err, "expected no error for case %q", tc.name)
			assert.Equal(t, tc.addr, cfg.ServerAddr)
			assert.Equal(t, tc.dsn, cfg.DatabaseDSN)
			assert.Equal(t, orig, cfg.AllowedOrigins)
			assert.NotEmpty(t, cfg.SigningKey, "expected decoded signing key")
		})
	}
}
