package config

import "testing"

func TestLegacyAuthAllowed(t *testing.T) {
	cases := []struct {
		mode        string
		requireAuth bool
		want        bool
	}{
		{mode: ModeDevelopment, requireAuth: false, want: true},
		{mode: ModeDevelopment, requireAuth: true, want: false},
		{mode: ModeStaging, requireAuth: false, want: true},
		{mode: ModeProduction, requireAuth: false, want: false},
		{mode: ModeProduction, requireAuth: true, want: false},
	}
	for _, c := range cases {
		cfg := &Config{Mode: c.mode, RequireAuth: c.requireAuth}
		if got := cfg.LegacyAuthAllowed(); got != c.want {
			t.Errorf("mode=%s requireAuth=%v: LegacyAuthAllowed = %v, want %v",
				c.mode, c.requireAuth, got, c.want)
		}
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("X_BOOL", "yes")
	if !envBool("X_BOOL", false) {
		t.Error("yes should parse as true")
	}
	t.Setenv("X_BOOL", "0")
	if envBool("X_BOOL", true) {
		t.Error("0 should parse as false")
	}
	t.Setenv("X_BOOL", "maybe")
	if !envBool("X_BOOL", true) {
		t.Error("unparseable value should fall back to the default")
	}
}
