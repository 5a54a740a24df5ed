package mssql

import (
	"testing"

	"github.com/leapstack-labs/leapstore/pkg/adapter"
	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  core.AdapterConfig
		want string
	}{
		{
			name: "defaults",
			cfg:  core.AdapterConfig{Database: "shop"},
			want: "sqlserver://localhost?database=shop",
		},
		{
			name: "full",
			cfg: core.AdapterConfig{
				Host: "db", Port: 1433, Database: "shop", Username: "sa", Password: "p@ss",
				Params: map[string]any{"encrypt": "disable", "instance": "SQLEXPRESS"},
			},
			want: "sqlserver://sa:p%40ss@db:1433/SQLEXPRESS?database=shop&encrypt=disable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildDSN(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistration(t *testing.T) {
	assert.True(t, adapter.IsRegistered("mssql"))
	adp := New(nil)
	assert.Equal(t, "mssql", adp.Dialect().Name)
	assert.Equal(t, "select @@IDENTITY", adp.DialectConfig().IdentitySQL)
}
