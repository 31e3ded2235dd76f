package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/s2sql/s2sql/internal/cli/s2sqlctl"
)

func main() {
	timeout := parseDurationWithDefault(strings.TrimSpace(os.Getenv("S2SQL_CLI_TIMEOUT")), 90*time.Second)
	options := s2sqlctl.Options{
		BaseURL: envOr("S2SQL_API_URL", "http://localhost:8080"),
		APIKey:  strings.TrimSpace(os.Getenv("S2SQL_API_KEY")),
		Timeout: timeout,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}

	code := s2sqlctl.Run(context.Background(), os.Args[1:], options)
	os.Exit(code)
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func parseDurationWithDefault(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid S2SQL_CLI_TIMEOUT %q; using %s\n", raw, fallback)
		return fallback
	}
	return parsed
}
