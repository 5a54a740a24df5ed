package mysql

import (
	"testing"
	"time"

	driver "github.com/go-sql-driver/mysql"
	"github.com/leapstack-labs/leapstore/pkg/adapter"
	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name    string
		cfg     core.AdapterConfig
		addr    string
		user    string
		timeout time.Duration
		params  map[string]string
	}{
		{
			name: "defaults",
			cfg:  core.AdapterConfig{Database: "shop"},
			addr: "localhost:3306",
		},
		{
			name: "credentials and params",
			cfg: core.AdapterConfig{
				Host: "db", Port: 3307, Database: "shop", Username: "app", Password: "pw",
				Params: map[string]any{"timeout": "2s", "params": map[string]any{"sql_mode": "ANSI"}},
			},
			addr:    "db:3307",
			user:    "app",
			timeout: 2 * time.Second,
			params:  map[string]string{"sql_mode": "ANSI"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn, err := buildDSN(tt.cfg)
			require.NoError(t, err)

			parsed, err := driver.ParseDSN(dsn)
			require.NoError(t, err)
			assert.Equal(t, "tcp", parsed.Net)
			assert.Equal(t, tt.addr, parsed.Addr)
			assert.Equal(t, "shop", parsed.DBName)
			assert.Equal(t, tt.user, parsed.User)
			assert.True(t, parsed.ParseTime)
			assert.Equal(t, tt.timeout, parsed.Timeout)
			for k, v := range tt.params {
				assert.Equal(t, v, parsed.Params[k])
			}
		})
	}
}

func TestBuildDSN_BadParams(t *testing.T) {
	_, err := buildDSN(core.AdapterConfig{Params: map[string]any{"timeout": "later"}})
	require.Error(t, err)
}

func TestRegistration(t *testing.T) {
	assert.True(t, adapter.IsRegistered("mysql"))
	adp := New(nil)
	assert.Equal(t, "mysql", adp.Dialect().Name)
	assert.Equal(t, core.IdentityLastInsertID, adp.DialectConfig().Identity)
}
