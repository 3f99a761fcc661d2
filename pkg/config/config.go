package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Input   InputConfig
	Output  OutputConfig
	Poppler PopplerConfig
	Logging LoggingConfig
}

type InputConfig struct {
	Dir       string
	Recursive bool
}

type OutputConfig struct {
	Dir           string
	StatsFilename string
	PDFFilename   string
	RawFilename   string
	DoAnalysis    bool
	RawPDF        bool
}

type PopplerConfig struct {
	Path        string
	DPI         int
	ExecTimeout time.Duration
}

type LoggingConfig struct {
	Level   string
	LogFile string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// A .env in the working directory supplements the environment;
	// variables already set take precedence, and absence is fine.
	_ = godotenv.Load()

	cfg := &Config{
		Input: InputConfig{
			Dir:       getEnv("MINVOICE_INPUT_DIR", ""),
			Recursive: getEnvAsBool("MINVOICE_RECURSIVE", true),
		},
		Output: OutputConfig{
			Dir:           getEnv("MINVOICE_OUTPUT_DIR", ""),
			StatsFilename: getEnv("MINVOICE_STATS_FILENAME", "output-results.xlsx"),
			PDFFilename:   getEnv("MINVOICE_PDF_FILENAME", "output-jpg-a4.pdf"),
			RawFilename:   getEnv("MINVOICE_RAW_FILENAME", "output-raw-jpg.pdf"),
			DoAnalysis:    getEnvAsBool("MINVOICE_DO_ANALYSIS", true),
			RawPDF:        getEnvAsBool("MINVOICE_RAW_PDF", false),
		},
		Poppler: PopplerConfig{
			Path:        getEnv("MINVOICE_POPPLER_PATH", ""),
			DPI:         getEnvAsInt("MINVOICE_DPI", 600),
			ExecTimeout: getEnvAsDuration("MINVOICE_EXEC_TIMEOUT", 120*time.Second),
		},
		Logging: LoggingConfig{
			Level:   getEnv("MINVOICE_LOG_LEVEL", "info"),
			LogFile: getEnv("MINVOICE_LOG_FILE", "minvoice-log.txt"),
		},
	}

	return cfg, nil
}

// Validate checks that the configuration is complete enough to run.
func (c *Config) Validate() error {
	if c.Input.Dir == "" {
		return errors.New("input directory is required")
	}
	if c.Output.Dir == "" {
		return errors.New("output directory is required")
	}
	if c.Poppler.DPI <= 0 {
		return fmt.Errorf("dpi must be positive, got %d", c.Poppler.DPI)
	}
	if c.Poppler.ExecTimeout <= 0 {
		return fmt.Errorf("exec timeout must be positive, got %s", c.Poppler.ExecTimeout)
	}
	return nil
}

// OutputFilenames returns the logical-name to file-name map for all output
// artifacts. The values double as the discovery exclusion list so a rerun
// never picks up its own previous output.
func (c *Config) OutputFilenames() map[string]string {
	names := map[string]string{
		"stats": c.Output.StatsFilename,
		"pdf":   c.Output.PDFFilename,
	}
	if c.Output.RawPDF {
		names["raw"] = c.Output.RawFilename
	}
	return names
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
