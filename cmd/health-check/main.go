// Package main provides a standalone health check command for Ingrediate.
// It is meant for Docker health checks and monitoring scripts.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/alchemorsel/ingrediate/internal/infrastructure/config"
	"github.com/alchemorsel/ingrediate/pkg/healthcheck"
)

const (
	exitCodeSuccess = 0
	exitCodeFailure = 1
	exitCodeError   = 2
)

// Options holds command-line configuration
type Options struct {
	URL          string
	ConfigPath   string
	Timeout      time.Duration
	Verbose      bool
	OutputFormat string
	AllowDegrade bool
	RetryCount   int
	RetryDelay   time.Duration
}

func main() {
	os.Exit(run(parseFlags()))
}

// parseFlags parses command-line flags
func parseFlags() Options {
	opts := Options{}

	flag.StringVar(&opts.URL, "url", "", "Health check endpoint URL (default derived from the configuration)")
	flag.StringVar(&opts.ConfigPath, "config", "", "Configuration file path")
	flag.DurationVar(&opts.Timeout, "timeout", 5*time.Second, "Request timeout")
	flag.BoolVar(&opts.Verbose, "verbose", false, "Print every check")
	flag.StringVar(&opts.OutputFormat, "format", "text", "Output format: text, json")
	flag.BoolVar(&opts.AllowDegrade, "allow-degraded", true, "Treat a degraded service as passing")
	flag.IntVar(&opts.RetryCount, "retry", 0, "Number of retries on failure")
	flag.DurationVar(&opts.RetryDelay, "retry-delay", time.Second, "Delay between retries")

	flag.Parse()
	return opts
}

func run(opts Options) int {
	if opts.URL == "" {
		url, err := detectHealthCheckURL(opts.ConfigPath)
		if err != nil {
			fmt.Printf("Failed to load configuration: %v\n", err)
			return exitCodeError
		}
		opts.URL = url
	}

	client := &http.Client{Timeout: opts.Timeout}

	var lastError error
	for attempt := 0; attempt <= opts.RetryCount; attempt++ {
		if attempt > 0 {
			if opts.Verbose {
				fmt.Printf("Retrying in %v... (attempt %d/%d)\n", opts.RetryDelay, attempt, opts.RetryCount)
			}
			time.Sleep(opts.RetryDelay)
		}

		response, err := fetch(client, opts.URL)
		if err != nil {
			lastError = err
			if opts.Verbose {
				fmt.Printf("Request failed: %v\n", err)
			}
			continue
		}

		output(response, opts)
		return exitCode(response.Status, opts.AllowDegrade)
	}

	fmt.Printf("Health check failed after %d attempts: %v\n", opts.RetryCount+1, lastError)
	return exitCodeError
}

// detectHealthCheckURL derives the local health endpoint from the server configuration
func detectHealthCheckURL(configPath string) (string, error) {
	if url := os.Getenv("HEALTH_CHECK_URL"); url != "" {
		return url, nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("http://127.0.0.1:%d%s", cfg.Server.Port, cfg.Monitoring.HealthCheckPath), nil
}

type checkResult struct {
	Name     string             `json:"name"`
	Status   healthcheck.Status `json:"status"`
	Message  string             `json:"message,omitempty"`
	Duration float64            `json:"duration_ms"`
}

type healthResponse struct {
	Status  healthcheck.Status `json:"status"`
	Version string             `json:"version"`
	Checks  []checkResult      `json:"checks"`
}

func fetch(client *http.Client, url string) (*healthResponse, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var response healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if response.Status == "" {
		response.Status = healthcheck.StatusUnhealthy
	}
	return &response, nil
}

func exitCode(status healthcheck.Status, allowDegraded bool) int {
	switch status {
	case healthcheck.StatusHealthy:
		return exitCodeSuccess
	case healthcheck.StatusDegraded:
		if allowDegraded {
			return exitCodeSuccess
		}
	}
	return exitCodeFailure
}

func output(r *healthResponse, opts Options) {
	if opts.OutputFormat == "json" {
		data, _ := json.MarshalIndent(r, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Status: %s\n", r.Status)
	fmt.Printf("Version: %s\n", r.Version)

	if opts.Verbose && len(r.Checks) > 0 {
		fmt.Println("\nChecks:")
		for _, check := range r.Checks {
			fmt.Printf("  %s: %s", check.Name, check.Status)
			if check.Message != "" {
				fmt.Printf(" (%s)", check.Message)
			}
			fmt.Printf(" [%.0fms]\n", check.Duration)
		}
	}
}
