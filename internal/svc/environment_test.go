package svc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"folio-api/internal/config"
	exchangepkg "folio-api/pkg/exchange"
)

func TestIsTestEnv(t *testing.T) {
	cases := map[string]struct {
		env  string
		want bool
	}{
		"default": {env: "", want: true},
		"test":    {env: "test", want: true},
		"dev":     {env: "dev", want: false},
		"prod":    {env: "prod", want: false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			c := config.Config{Env: tc.env}
			assert.Equal(t, tc.want, c.IsTestEnv())
		})
	}
}

func TestForceSandbox(t *testing.T) {
	cfg := &exchangepkg.Config{
		Default: "cb",
		Providers: map[string]*exchangepkg.ProviderConfig{
			"cb": {
				Type:       "coinbasepro",
				APIKey:     "key",
				APISecret:  "c2VjcmV0",
				Passphrase: "phrase",
			},
			"paper": {Type: "sim"},
		},
	}

	forceSandbox(cfg)

	for name, provider := range cfg.Providers {
		assert.True(t, provider.Sandbox, "provider %s must run against the sandbox", name)
	}
}
