package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("PLATFORM_BASE_DOMAIN", "")
	t.Setenv("TENANT_CACHE_TTL", "")
	t.Setenv("STRIPE_PRICE_PLANS", "")
	t.Setenv("TRUSTED_PROXIES", "")

	cfg := Load()

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Platform.BaseDomain)
	assert.Equal(t, 14, cfg.Platform.TrialDays)
	assert.Equal(t, 5*time.Minute, cfg.Redis.TTL)
	assert.Empty(t, cfg.Stripe.PricePlans)
	assert.Empty(t, cfg.Server.TrustedProxies)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PLATFORM_BASE_DOMAIN", "Example.App")
	t.Setenv("TRIAL_DAYS", "30")
	t.Setenv("TENANT_CACHE_TTL", "90s")
	t.Setenv("STRIPE_PRICE_PLANS", "price_basic=BASIC, price_pro = PRO,broken")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1, 10.0.1.0/24,")

	cfg := Load()

	assert.Equal(t, "example.app", cfg.Platform.BaseDomain)
	assert.Equal(t, 30, cfg.Platform.TrialDays)
	assert.Equal(t, 90*time.Second, cfg.Redis.TTL)
	assert.Equal(t, map[string]string{"price_basic": "BASIC", "price_pro": "PRO"}, cfg.Stripe.PricePlans)
	assert.Equal(t, []string{"10.0.0.1", "10.0.1.0/24"}, cfg.Server.TrustedProxies)
}

func TestGetEnvAsIntFallsBack(t *testing.T) {
	t.Setenv("SOME_INT", "not-a-number")
	assert.Equal(t, 7, getEnvAsInt("SOME_INT", 7))
}
