package envconfig

import (
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestHost(t *testing.T) {
	cases := map[string]struct {
		value  string
		expect string
	}{
		"empty":        {"", "http://127.0.0.1:11500"},
		"only address": {"1.2.3.4", "http://1.2.3.4:11500"},
		"only port":    {":1234", "http://:1234"},
		"address port": {"1.2.3.4:1234", "http://1.2.3.4:1234"},
		"hostname":     {"example.com", "http://example.com:11500"},
		"https":        {"https://example.com", "https://example.com:443"},
		"ipv6":         {"[::1]:8080", "http://[::1]:8080"},
		"bad port":     {"1.2.3.4:99999", "http://1.2.3.4:11500"},
		"quoted":       {"\"1.2.3.4\"", "http://1.2.3.4:11500"},
	}

	for name, tt := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("ARKCHECK_HOST", tt.value)
			if host := Host(); host.String() != tt.expect {
				t.Errorf("Host() = %q, erwartet %q", host.String(), tt.expect)
			}
		})
	}
}

func TestLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"false": slog.LevelInfo,
		"0":     slog.LevelInfo,
		"true":  slog.LevelDebug,
		"1":     slog.LevelDebug,
		"2":     slog.Level(-8),
	}

	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv("ARKCHECK_DEBUG", k)
			if i := LogLevel(); i != v {
				t.Errorf("LogLevel() = %v, erwartet %v", i, v)
			}
		})
	}
}

func TestFetchTimeout(t *testing.T) {
	cases := map[string]time.Duration{
		"":     5 * time.Minute,
		"1s":   time.Second,
		"90":   90 * time.Second,
		"0":    time.Duration(math.MaxInt64),
		"-1s":  time.Duration(math.MaxInt64),
		"quux": 5 * time.Minute,
	}

	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv("ARKCHECK_FETCH_TIMEOUT", k)
			if d := FetchTimeout(); d != v {
				t.Errorf("FetchTimeout() = %v, erwartet %v", d, v)
			}
		})
	}
}

func TestBackendDefaults(t *testing.T) {
	t.Setenv("ARKCHECK_BACKEND", "")
	t.Setenv("ARKCHECK_PREFER", "")
	if Backend() != "cpu" || Prefer() != "fast" {
		t.Errorf("Defaults = %q/%q, erwartet cpu/fast", Backend(), Prefer())
	}

	t.Setenv("ARKCHECK_BACKEND", "cuda")
	t.Setenv("ARKCHECK_PREFER", "'low'")
	if Backend() != "cuda" || Prefer() != "low" {
		t.Errorf("gesetzt = %q/%q, erwartet cuda/low", Backend(), Prefer())
	}
}

func TestThreads(t *testing.T) {
	cases := map[string]uint{
		"":   0,
		"4":  4,
		"-2": 0,
		"x":  0,
	}

	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv("ARKCHECK_THREADS", k)
			if n := Threads(); n != v {
				t.Errorf("Threads() = %d, erwartet %d", n, v)
			}
		})
	}
}

func TestBool(t *testing.T) {
	cases := map[string]bool{
		"":      false,
		"true":  true,
		"false": false,
		"1":     true,
		"0":     false,
		"bogus": true,
	}

	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv("ARKCHECK_NOPROGRESS", k)
			if b := NoProgress(); b != v {
				t.Errorf("NoProgress() = %v, erwartet %v", b, v)
			}
		})
	}
}

func TestHistoryDB(t *testing.T) {
	t.Setenv("ARKCHECK_DB", "/tmp/runs.db")
	if got := HistoryDB(); got != "/tmp/runs.db" {
		t.Errorf("HistoryDB() = %q", got)
	}
}

func TestAllowedOrigins(t *testing.T) {
	t.Setenv("ARKCHECK_ORIGINS", "http://10.0.0.1,https://example.com")
	origins := AllowedOrigins()
	if diff := cmp.Diff([]string{"http://10.0.0.1", "https://example.com"}, origins[:2]); diff != "" {
		t.Errorf("eigene Origins fehlen (-want +got):\n%s", diff)
	}
	if origins[len(origins)-1] != "file://*" {
		t.Errorf("letzter Origin = %q, erwartet file://*", origins[len(origins)-1])
	}
}

func TestValues(t *testing.T) {
	t.Setenv("ARKCHECK_BACKEND", "xnnpack")
	vals := Values()
	if vals["ARKCHECK_BACKEND"] != "xnnpack" {
		t.Errorf("Values()[ARKCHECK_BACKEND] = %q", vals["ARKCHECK_BACKEND"])
	}
	if _, ok := vals["ARKCHECK_DEBUG"]; !ok {
		t.Error("ARKCHECK_DEBUG fehlt in Values()")
	}
}
