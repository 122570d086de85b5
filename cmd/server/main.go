package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"crowdsim/internal/api"
	"crowdsim/internal/config"
	"crowdsim/internal/scenario"
	"crowdsim/internal/sim"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("no .env file found, using environment variables only")
	}

	cfg := config.Load()

	scenarioName := getEnvWithDefault("SCENARIO", "circle")
	agents := getEnvIntWithDefault("SCENARIO_AGENTS", 24)

	log.Printf("config: %d TPS, dt=%.3fs, scenario=%s, agents=%d",
		cfg.Sim.TickRate, cfg.Sim.TimeStep, scenarioName, agents)

	runner := sim.NewRunner(cfg.Sim.TickRate, cfg.Sim.TimeStep)
	runner.SetTickObserver(api.ObserveTick)

	if err := scenario.Build(runner, cfg.Sim, scenarioName, agents); err != nil {
		log.Fatalf("scenario setup failed: %v (available: %v)", err, scenario.Names())
	}

	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(api.DefaultObservabilityConfig()); err != nil {
			log.Printf("debug server disabled: %v", err)
		}
	}

	runner.Start()

	server := api.NewServer(runner, api.ServerConfig{
		MaxAgents:  cfg.Server.MaxAgents,
		StreamRate: cfg.Sim.TickRate,
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start(":" + strconv.Itoa(cfg.Server.Port))
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		log.Printf("server failed: %v", err)
	case sig := <-sigChan:
		log.Printf("received %v, shutting down", sig)
	}

	server.Stop()
	runner.Stop()
}

func getEnvWithDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntWithDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
