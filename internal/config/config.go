// Package config provides centralized configuration management.
// This is the single source of truth for simulation, server and render
// settings; environment variables override the defaults.
package config

import (
	"os"
	"strconv"
)

// SimConfig holds the simulation core settings: tick rate, tick length
// and the default agent template.
type SimConfig struct {
	TickRate int     // Ticks per second of the real-time loop
	TimeStep float64 // Simulated seconds per tick

	// Default agent template (applied by AddAgent)
	NeighborDist    float64
	MaxNeighbors    int
	TimeHorizon     float64
	TimeHorizonObst float64
	Radius          float64
	MaxSpeed        float64
}

// DefaultSim returns the default simulation configuration.
func DefaultSim() SimConfig {
	return SimConfig{
		TickRate:        20,
		TimeStep:        0.1,
		NeighborDist:    15,
		MaxNeighbors:    10,
		TimeHorizon:     10,
		TimeHorizonObst: 10,
		Radius:          1.5,
		MaxSpeed:        2,
	}
}

// SimFromEnv returns simulation configuration with environment variable
// overrides.
func SimFromEnv() SimConfig {
	cfg := DefaultSim()

	if v := getEnvInt("SIM_TICK_RATE", 0); v > 0 {
		cfg.TickRate = v
	}
	if v := getEnvFloat("SIM_TIME_STEP", 0); v > 0 {
		cfg.TimeStep = v
	}
	if v := getEnvFloat("SIM_NEIGHBOR_DIST", 0); v > 0 {
		cfg.NeighborDist = v
	}
	if v := getEnvInt("SIM_MAX_NEIGHBORS", 0); v > 0 {
		cfg.MaxNeighbors = v
	}
	if v := getEnvFloat("SIM_TIME_HORIZON", 0); v > 0 {
		cfg.TimeHorizon = v
	}
	if v := getEnvFloat("SIM_TIME_HORIZON_OBST", 0); v > 0 {
		cfg.TimeHorizonObst = v
	}
	if v := getEnvFloat("SIM_AGENT_RADIUS", 0); v > 0 {
		cfg.Radius = v
	}
	if v := getEnvFloat("SIM_MAX_SPEED", 0); v > 0 {
		cfg.MaxSpeed = v
	}

	return cfg
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port      int
	MaxAgents int // Hard cap on agents added over the API
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:      3000,
		MaxAgents: 500,
	}
}

// ServerFromEnv returns server configuration with environment variable
// overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if m := getEnvInt("MAX_AGENTS", 0); m > 0 {
		cfg.MaxAgents = m
	}

	return cfg
}

// RenderConfig holds frame rendering settings shared by the scenario
// runner and any future stream encoder.
type RenderConfig struct {
	Width  int     // Frame width in pixels
	Height int     // Frame height in pixels
	Scale  float64 // Pixels per world unit
}

// DefaultRender returns the default render configuration.
func DefaultRender() RenderConfig {
	return RenderConfig{
		Width:  960,
		Height: 720,
		Scale:  16,
	}
}

// RenderFromEnv returns render configuration with environment variable
// overrides.
func RenderFromEnv() RenderConfig {
	cfg := DefaultRender()

	if w := getEnvInt("RENDER_WIDTH", 0); w > 0 {
		cfg.Width = w
	}
	if h := getEnvInt("RENDER_HEIGHT", 0); h > 0 {
		cfg.Height = h
	}
	if s := getEnvFloat("RENDER_SCALE", 0); s > 0 {
		cfg.Scale = s
	}

	return cfg
}

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Sim    SimConfig
	Server ServerConfig
	Render RenderConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Sim:    SimFromEnv(),
		Server: ServerFromEnv(),
		Render: RenderFromEnv(),
	}
}

// getEnvInt reads an integer environment variable, falling back to def
// when unset or malformed.
func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// getEnvFloat reads a float environment variable, falling back to def
// when unset or malformed.
func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
