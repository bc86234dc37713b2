package config

import "testing"

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		expected *Config
	}{
		{
			name: "default values",
			envVars: map[string]string{
				"PORT":                  "",
				"RPC_SECRET":            "",
				"DEPLOY_SPEC":           "",
				"DATABASE_PATH":         "",
				"NEW_RELIC_LICENSE_KEY": "",
				"NEW_RELIC_APP_NAME":    "",
				"NEW_RELIC_ENABLED":     "",
			},
			expected: &Config{
				Port:            "16166",
				ValidSecret:     "your-64-character-secret-key-here-please-change-this-in-production",
				SpecPath:        "./deploy.toml",
				DatabasePath:    "./deployd.db",
				NewRelicLicense: "",
				NewRelicAppName: "quantship-deployment",
				NewRelicEnabled: false,
			},
		},
		{
			name: "custom values",
			envVars: map[string]string{
				"PORT":                  "8080",
				"RPC_SECRET":            "custom-secret-key-64-chars-long-production-ready-secret",
				"DEPLOY_SPEC":           "/etc/quantship/deploy.toml",
				"DATABASE_PATH":         "/var/lib/quantship/deployd.db",
				"NEW_RELIC_LICENSE_KEY": "custom-license",
				"NEW_RELIC_APP_NAME":    "custom-app",
				"NEW_RELIC_ENABLED":     "true",
			},
			expected: &Config{
				Port:            "8080",
				ValidSecret:     "custom-secret-key-64-chars-long-production-ready-secret",
				SpecPath:        "/etc/quantship/deploy.toml",
				DatabasePath:    "/var/lib/quantship/deployd.db",
				NewRelicLicense: "custom-license",
				NewRelicAppName: "custom-app",
				NewRelicEnabled: true,
			},
		},
		{
			name: "invalid boolean values",
			envVars: map[string]string{
				"PORT":                  "",
				"RPC_SECRET":            "",
				"DEPLOY_SPEC":           "",
				"DATABASE_PATH":         "",
				"NEW_RELIC_LICENSE_KEY": "",
				"NEW_RELIC_APP_NAME":    "",
				"NEW_RELIC_ENABLED":     "not-a-bool",
			},
			expected: &Config{
				Port:            "16166",
				ValidSecret:     "your-64-character-secret-key-here-please-change-this-in-production",
				SpecPath:        "./deploy.toml",
				DatabasePath:    "./deployd.db",
				NewRelicLicense: "",
				NewRelicAppName: "quantship-deployment",
				NewRelicEnabled: false, // Should default to false on parse error
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			config := Load()

			if *config != *tt.expected {
				t.Errorf("Load() = %+v, want %+v", config, tt.expected)
			}
		})
	}
}
