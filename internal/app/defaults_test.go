package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	homeBase := filepath.Join(home, ".local", "share", "dp")

	tests := []struct {
		name       string
		configPath string
		dpHome     string
		want       map[string]string
	}{
		{
			name:       "environment overrides",
			configPath: "/custom/config.toml",
			dpHome:     "/custom/dp",
			want: map[string]string{
				"config_path": "/custom/config.toml",
				"base_dir":    "/custom/dp",
				"log_dir":     filepath.Join("/custom/dp", "log"),
			},
		},
		{
			name:   "only DP_HOME",
			dpHome: "/srv/dp",
			want: map[string]string{
				"config_path": filepath.Join(home, ".config", "dp.toml"),
				"base_dir":    "/srv/dp",
				"log_dir":     filepath.Join("/srv/dp", "log"),
			},
		},
		{
			name: "home directory defaults",
			want: map[string]string{
				"config_path": filepath.Join(home, ".config", "dp.toml"),
				"base_dir":    homeBase,
				"log_dir":     filepath.Join(homeBase, "log"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvConfigPath, tt.configPath)
			t.Setenv(EnvHome, tt.dpHome)

			got, err := GetDefaults()
			if err != nil {
				t.Fatalf("GetDefaults() error = %v", err)
			}
			for key, want := range tt.want {
				if got[key] != want {
					t.Errorf("%s = %q, want %q", key, got[key], want)
				}
			}
		})
	}
}
