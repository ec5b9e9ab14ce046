package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/house-money/internal/common"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:   "service account",
			mutate: func(c *Config) { c.ServiceAccountPath = "/keys/sa.json" },
		},
		{
			name: "oauth with refresh token",
			mutate: func(c *Config) {
				c.ClientID, c.ClientSecret, c.RefreshToken = "id", "secret", "refresh"
			},
		},
		{
			name: "oauth with token file",
			mutate: func(c *Config) {
				c.ClientID, c.ClientSecret, c.TokenFile = "id", "secret", "/tmp/token.json"
			},
		},
		{
			name:    "no credentials",
			mutate:  func(*Config) {},
			wantErr: common.ErrMissingConfig,
		},
		{
			name: "client id without secret",
			mutate: func(c *Config) {
				c.ClientID, c.TokenFile = "id", "/tmp/token.json"
			},
			wantErr: common.ErrMissingConfig,
		},
		{
			name: "both methods",
			mutate: func(c *Config) {
				c.ServiceAccountPath = "/keys/sa.json"
				c.ClientID, c.ClientSecret, c.RefreshToken = "id", "secret", "refresh"
			},
			wantErr: common.ErrInvalidConfig,
		},
		{
			name: "zero batch size",
			mutate: func(c *Config) {
				c.ServiceAccountPath = "/keys/sa.json"
				c.BatchSize = 0
			},
			wantErr: common.ErrInvalidConfig,
		},
		{
			name: "negative retries",
			mutate: func(c *Config) {
				c.ServiceAccountPath = "/keys/sa.json"
				c.RetryAttempts = -1
			},
			wantErr: common.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
