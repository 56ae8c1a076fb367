package main

import (
	"bytes"
	"testing"

	"github.com/CragHollow/deckforge/internal/config"
	"github.com/CragHollow/deckforge/internal/logging"
)

func TestResolveMutationRateLimit_Defaults(t *testing.T) {
	logger := logging.New().SetOutput(&bytes.Buffer{})
	cfg := &config.Config{Server: config.ServerConfig{Environment: "production"}}

	limit := resolveMutationRateLimit(cfg, logger, func(key string) (string, bool) {
		return "", false
	})
	if limit != 120 {
		t.Fatalf("expected default limit 120, got %d", limit)
	}
}

func TestResolveMutationRateLimit_DevelopmentDefault(t *testing.T) {
	logger := logging.New().SetOutput(&bytes.Buffer{})
	cfg := &config.Config{Server: config.ServerConfig{Environment: "development"}}

	limit := resolveMutationRateLimit(cfg, logger, func(key string) (string, bool) {
		return "", false
	})
	if limit != 1000 {
		t.Fatalf("expected dev limit 1000, got %d", limit)
	}
}

func TestResolveMutationRateLimit_FromEnv(t *testing.T) {
	logger := logging.New().SetOutput(&bytes.Buffer{})
	cfg := &config.Config{Server: config.ServerConfig{Environment: "production"}}

	limit := resolveMutationRateLimit(cfg, logger, func(key string) (string, bool) {
		return "25", true
	})
	if limit != 25 {
		t.Fatalf("expected env limit 25, got %d", limit)
	}
}

func TestResolveMutationRateLimit_InvalidEnv(t *testing.T) {
	logger := logging.New().SetOutput(&bytes.Buffer{})
	cfg := &config.Config{Server: config.ServerConfig{Environment: "production"}}

	limit := resolveMutationRateLimit(cfg, logger, func(key string) (string, bool) {
		return "nope", true
	})
	if limit != 120 {
		t.Fatalf("expected fallback limit 120, got %d", limit)
	}
}
