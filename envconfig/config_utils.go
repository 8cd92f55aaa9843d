// config_utils.go - Utility-Funktionen und Export fuer Konfiguration
//
// Dieses Modul enthaelt:
// - BoolWithDefault/Bool: Boolean-Getter mit Default-Wert
// - String/StringWithDefault: String-Getter
// - Uint: Integer-Getter mit Default-Wert
// - EnvVar: Struktur fuer Environment-Variablen-Info
// - AsMap: Gibt alle Konfigurationen als Map zurueck
// - Values: Gibt alle Konfigurationswerte als String-Map zurueck
package envconfig

import (
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
)

// =============================================================================
// Boolean-Getter
// =============================================================================

// BoolWithDefault gibt eine Funktion zurueck, die einen Bool mit Default-Wert liest
func BoolWithDefault(k string) func(defaultValue bool) bool {
	return func(defaultValue bool) bool {
		if s := Var(k); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return true
			}
			return b
		}
		return defaultValue
	}
}

// Bool gibt eine Funktion zurueck, die einen Bool liest (Default: false)
func Bool(k string) func() bool {
	withDefault := BoolWithDefault(k)
	return func() bool {
		return withDefault(false)
	}
}

// =============================================================================
// String-Getter
// =============================================================================

// String gibt eine Funktion zurueck, die einen String liest
func String(s string) func() string {
	return func() string {
		return Var(s)
	}
}

// StringWithDefault liest einen String und faellt auf defaultValue zurueck
func StringWithDefault(key, defaultValue string) func() string {
	return func() string {
		if s := Var(key); s != "" {
			return s
		}
		return defaultValue
	}
}

// =============================================================================
// Integer-Getter
// =============================================================================

// Uint gibt eine Funktion zurueck, die einen uint mit Default-Wert liest
func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return uint(n)
			}
		}
		return defaultValue
	}
}

// =============================================================================
// Export-Strukturen und -Funktionen
// =============================================================================

// EnvVar repraesentiert eine Environment-Variable mit Metadaten
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap gibt alle Konfigurationen als Map zurueck
// Enthaelt Namen, aktuelle Werte und Beschreibungen
func AsMap() map[string]EnvVar {
	ret := map[string]EnvVar{
		"ARKCHECK_DEBUG":         {"ARKCHECK_DEBUG", LogLevel(), "Show additional debug information (e.g. ARKCHECK_DEBUG=1, 2 for trace)"},
		"ARKCHECK_HOST":          {"ARKCHECK_HOST", Host(), "IP Address for the arkcheck server (default 127.0.0.1:11500)"},
		"ARKCHECK_ORIGINS":       {"ARKCHECK_ORIGINS", AllowedOrigins(), "A comma separated list of allowed origins"},
		"ARKCHECK_DB":            {"ARKCHECK_DB", HistoryDB(), "Path of the evaluation history database"},
		"ARKCHECK_FETCH_TIMEOUT": {"ARKCHECK_FETCH_TIMEOUT", FetchTimeout(), "How long a model or frame download may take (default \"5m\")"},
		"ARKCHECK_BACKEND":       {"ARKCHECK_BACKEND", Backend(), "Default backend (cpu, cuda, xnnpack)"},
		"ARKCHECK_PREFER":        {"ARKCHECK_PREFER", Prefer(), "Default preference (fast, sustained, low)"},
		"ARKCHECK_THREADS":       {"ARKCHECK_THREADS", Threads(), "Maximum number of inference threads (0 = all cores)"},
		"ARKCHECK_NOPROGRESS":    {"ARKCHECK_NOPROGRESS", NoProgress(), "Do not show download progress bars"},
		"ARKCHECK_ORT_LIBRARY":   {"ARKCHECK_ORT_LIBRARY", OrtLibrary(), "Path of the onnxruntime shared library"},

		// Proxy-Einstellungen
		"HTTP_PROXY":  {"HTTP_PROXY", String("HTTP_PROXY")(), "HTTP proxy"},
		"HTTPS_PROXY": {"HTTPS_PROXY", String("HTTPS_PROXY")(), "HTTPS proxy"},
		"NO_PROXY":    {"NO_PROXY", String("NO_PROXY")(), "No proxy"},
	}

	// Nicht-Windows: Case-sensitive Proxy-Variablen
	if runtime.GOOS != "windows" {
		ret["http_proxy"] = EnvVar{"http_proxy", String("http_proxy")(), "HTTP proxy"}
		ret["https_proxy"] = EnvVar{"https_proxy", String("https_proxy")(), "HTTPS proxy"}
		ret["no_proxy"] = EnvVar{"no_proxy", String("no_proxy")(), "No proxy"}
	}

	return ret
}

// Values gibt alle Konfigurationswerte als String-Map zurueck
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}
