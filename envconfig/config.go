// config.go - Haupt-Konfigurationsfunktionen fuer arkcheck
//
// Dieses Modul enthaelt:
// - Host: Bind-Adresse des HTTP-Servers (ARKCHECK_HOST)
// - AllowedOrigins: Erlaubte CORS-Origins (ARKCHECK_ORIGINS)
// - HistoryDB: Pfad der Ergebnis-Datenbank (ARKCHECK_DB)
// - FetchTimeout: Timeout fuer Modell- und Frame-Downloads (ARKCHECK_FETCH_TIMEOUT)
// - LogLevel: Log-Level (ARKCHECK_DEBUG)
//
// Weitere Konfigurationen sind ausgelagert:
// - config_features.go: Backend-Auswahl und Threads
// - config_utils.go: Utility-Funktionen und AsMap/Values
package envconfig

import (
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Host gibt Scheme und Host zurueck
// Konfigurierbar via ARKCHECK_HOST
// Default: http://127.0.0.1:11500
func Host() *url.URL {
	defaultPort := "11500"

	s := strings.TrimSpace(Var("ARKCHECK_HOST"))
	scheme, hostport, ok := strings.Cut(s, "://")
	switch {
	case !ok:
		scheme, hostport = "http", s
	case scheme == "http":
		defaultPort = "80"
	case scheme == "https":
		defaultPort = "443"
	}

	hostport, path, _ := strings.Cut(hostport, "/")
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		host, port = "127.0.0.1", defaultPort
		if ip := net.ParseIP(strings.Trim(hostport, "[]")); ip != nil {
			host = ip.String()
		} else if hostport != "" {
			host = hostport
		}
	}

	if n, err := strconv.ParseInt(port, 10, 32); err != nil || n > 65535 || n < 0 {
		slog.Warn("invalid port, using default", "port", port, "default", defaultPort)
		port = defaultPort
	}

	return &url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(host, port),
		Path:   path,
	}
}

// AllowedOrigins gibt erlaubte Origins zurueck
// Konfigurierbar via ARKCHECK_ORIGINS (komma-separiert)
// Enthaelt Standard-Origins fuer localhost
func AllowedOrigins() (origins []string) {
	if s := Var("ARKCHECK_ORIGINS"); s != "" {
		origins = strings.Split(s, ",")
	}

	for _, origin := range []string{"localhost", "127.0.0.1", "0.0.0.0"} {
		origins = append(origins,
			fmt.Sprintf("http://%s", origin),
			fmt.Sprintf("https://%s", origin),
			fmt.Sprintf("http://%s", net.JoinHostPort(origin, "*")),
			fmt.Sprintf("https://%s", net.JoinHostPort(origin, "*")),
		)
	}

	origins = append(origins, "file://*")

	return origins
}

// HistoryDB gibt den Pfad der SQLite-Datenbank mit Auswertungslaeufen zurueck
// Konfigurierbar via ARKCHECK_DB
// Default: $HOME/.arkcheck/history.db
func HistoryDB() string {
	if s := Var("ARKCHECK_DB"); s != "" {
		return s
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "arkcheck", "history.db")
	}

	return filepath.Join(home, ".arkcheck", "history.db")
}

// FetchTimeout gibt das Timeout fuer einzelne Downloads zurueck
// Konfigurierbar via ARKCHECK_FETCH_TIMEOUT (Dauer oder Sekunden)
// 0 oder negative Werte = unendlich
// Default: 5 Minuten
func FetchTimeout() (timeout time.Duration) {
	timeout = 5 * time.Minute
	if s := Var("ARKCHECK_FETCH_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			timeout = d
		} else if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			timeout = time.Duration(n) * time.Second
		}
	}

	if timeout <= 0 {
		return time.Duration(math.MaxInt64)
	}

	return timeout
}

// LogLevel gibt das Log-Level zurueck
// Konfigurierbar via ARKCHECK_DEBUG
// Werte: 0/false = INFO (Default), 1/true = DEBUG, 2 = TRACE
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("ARKCHECK_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}

	return level
}

// Var gibt eine Environment-Variable zurueck
// Entfernt fuehrende/trailing Quotes und Leerzeichen
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}
