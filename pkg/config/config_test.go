package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	testCases := []struct {
		name        string
		content     string
		mutate      func(*Config)
		description string
	}{
		{
			"full.toml",
			"[search]\nkeyboard = false\nlimit = 5\n[cli]\nprompt = \"? \"\n[server]\nmax_sessions = 2\n",
			func(c *Config) {
				c.Search.Keyboard = false
				c.Search.Limit = 5
				c.CLI.Prompt = "? "
				c.Server.MaxSessions = 2
			},
			"values override defaults",
		},
		{
			"partial.toml",
			"[search]\nvariants = false\n",
			func(c *Config) { c.Search.Variants = false },
			"missing keys keep defaults",
		},
		{
			"wrongtype.toml",
			"[search]\nlimit = \"ten\"\nkeyboard = false\n[cli]\ncolor = false\n",
			func(c *Config) {
				c.Search.Keyboard = false
				c.CLI.Color = false
			},
			"wrong types are recovered per key",
		},
		{
			"broken.toml",
			"[search\nlimit = ",
			func(*Config) {},
			"unparsable file falls back to defaults",
		},
		{
			"negative.toml",
			"[search]\nlimit = -3\n[server]\nmax_input = 0\nwatch = false\n",
			func(c *Config) { c.Server.Watch = false },
			"out of range values reset",
		},
		{
			"config.yaml",
			"search:\n  keyboard: false\n  limit: 7\nserver:\n  max_limit: 9\n",
			func(c *Config) {
				c.Search.Keyboard = false
				c.Search.Limit = 7
				c.Server.MaxLimit = 9
			},
			"yaml file",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			got, err := LoadConfig(write(t, tc.name, tc.content))
			if err != nil {
				t.Fatalf("LoadConfig() error = %v", err)
			}
			want := DefaultConfig()
			tc.mutate(want)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("config (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadConfigBrokenYAML(t *testing.T) {
	if _, err := LoadConfig(write(t, "bad.yml", "search: [")); err == nil {
		t.Errorf("LoadConfig() error = nil for broken yaml")
	}
}

func TestInitConfigCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	got, err := InitConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(DefaultConfig(), got); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}

	reloaded, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(DefaultConfig(), reloaded); diff != "" {
		t.Errorf("saved defaults do not round trip (-want +got):\n%s", diff)
	}
}

func TestLoadConfigWithPriorityCustomPath(t *testing.T) {
	path := write(t, "custom.toml", "[search]\nlimit = 3\n")
	got, used, err := LoadConfigWithPriority(path)
	if err != nil {
		t.Fatal(err)
	}
	if used != path {
		t.Errorf("used path = %q, want %q", used, path)
	}
	if got.Search.Limit != 3 {
		t.Errorf("Search.Limit = %d, want 3", got.Search.Limit)
	}
}

func TestValidate(t *testing.T) {
	c := DefaultConfig()
	if err := c.Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
	c.Server.MaxSessions = 0
	if err := c.Validate(); err == nil {
		t.Errorf("Validate() accepted max_sessions = 0")
	}
	if c.Server.MaxSessions != DefaultConfig().Server.MaxSessions {
		t.Errorf("MaxSessions not reset: %d", c.Server.MaxSessions)
	}
}

func TestValidateClampsMaxLimit(t *testing.T) {
	testCases := []struct {
		maxLimit    int
		expected    int
		wantErr     bool
		description string
	}{
		{MaxRank, MaxRank, false, "highest rank is accepted"},
		{MaxRank + 1, MaxRank, true, "one past the highest rank"},
		{1 << 20, MaxRank, true, "far past the highest rank"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			c := DefaultConfig()
			c.Server.MaxLimit = tc.maxLimit
			err := c.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
			if c.Server.MaxLimit != tc.expected {
				t.Errorf("MaxLimit = %d, want %d", c.Server.MaxLimit, tc.expected)
			}
		})
	}
}

func TestWatch(t *testing.T) {
	path := write(t, "config.toml", "[search]\nlimit = 1\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	if err := Watch(ctx, path, func(c *Config) { reloaded <- c }); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	updated := DefaultConfig()
	updated.Search.Limit = 42
	if err := SaveConfig(updated, path); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-reloaded:
		if c.Search.Limit != 42 {
			t.Errorf("reloaded Search.Limit = %d, want 42", c.Search.Limit)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("config change not observed")
	}
}
