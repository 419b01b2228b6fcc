package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("DB_DATABASE", "layers")
	t.Setenv("DB_USER", "layers")

	cfg := FromEnv()
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "postgres", cfg.DBType)
	assert.Equal(t, NameScopeOwner, cfg.NameScope)
	assert.Equal(t, 4326, cfg.DefaultSRID)
	assert.Equal(t, "admin", cfg.SuperuserRole)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{
			name: "sqlite needs no host or user",
			env:  map[string]string{"DB_TYPE": "sqlite-pure", "DB_DATABASE": "layers.db"},
		},
		{
			name:    "networked database needs a user",
			env:     map[string]string{"DB_TYPE": "mysql", "DB_DATABASE": "layers"},
			wantErr: true,
		},
		{
			name:    "unknown database type",
			env:     map[string]string{"DB_TYPE": "oracle", "DB_DATABASE": "layers", "DB_USER": "u"},
			wantErr: true,
		},
		{
			name:    "unknown name scope",
			env:     map[string]string{"DB_TYPE": "sqlite", "DB_DATABASE": "layers.db", "NAME_SCOPE": "tenant"},
			wantErr: true,
		},
		{
			name: "global name scope",
			env:  map[string]string{"DB_TYPE": "sqlite", "DB_DATABASE": "layers.db", "NAME_SCOPE": "Global"},
		},
		{
			name:    "missing database",
			env:     map[string]string{"DB_TYPE": "sqlite"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DB_DATABASE", "")
			t.Setenv("DB_USER", "")
			t.Setenv("NAME_SCOPE", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			err := FromEnv().Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateAuthorizer(t *testing.T) {
	cfg := &Config{SuperuserRole: "admin"}
	assert.Error(t, cfg.ValidateAuthorizer())

	cfg.AuthzURL = "http://authorizer:8080"
	cfg.AuthzClientID = "client"
	assert.NoError(t, cfg.ValidateAuthorizer())
}
