package config

import (
	"os"
	"strconv"
)

// LineAssistMode controls whether ruled-line detection may run.
type LineAssistMode string

const (
	LineAssistAuto LineAssistMode = "auto"
	LineAssistOff  LineAssistMode = "off"
	LineAssistOn   LineAssistMode = "force"
)

// Config carries every operational knob. It is built once at startup
// and threaded explicitly; nothing below cmd/ reads the environment.
type Config struct {
	// Rendering
	DPI int

	// OCR
	OCRLanguages     string
	OCRPageSegMode   int
	OCRMinConfidence float64

	// Line assist gate
	LineAssist           LineAssistMode
	LineAssistBudgetMS   int
	LineAssistMinConf    float64
	LineAssistDebug      bool

	// Reconciliation
	CapacityMaxFallback bool

	// Debug artifacts
	DebugDir string
}

func Load() Config {
	return Config{
		DPI:                getEnvAsIntOrDefault("SCHEDSCAN_DPI", 200),
		OCRLanguages:       getEnvOrDefault("SCHEDSCAN_OCR_LANGS", "jpn+eng"),
		OCRPageSegMode:     getEnvAsIntOrDefault("SCHEDSCAN_OCR_PSM", 11),
		OCRMinConfidence:   getEnvAsFloatOrDefault("SCHEDSCAN_OCR_MIN_CONF", 30),
		LineAssist:         LineAssistMode(getEnvOrDefault("SCHEDSCAN_LINE_ASSIST", string(LineAssistAuto))),
		LineAssistBudgetMS: getEnvAsIntOrDefault("SCHEDSCAN_LINE_ASSIST_BUDGET_MS", 300),
		LineAssistMinConf:  getEnvAsFloatOrDefault("SCHEDSCAN_LINE_ASSIST_MIN_CONF", 0.70),
		LineAssistDebug:    getEnvAsBoolOrDefault("SCHEDSCAN_LINE_ASSIST_DEBUG", false),
		CapacityMaxFallback: getEnvAsBoolOrDefault("SCHEDSCAN_CAPACITY_MAX_FALLBACK", true),
		DebugDir:            getEnvOrDefault("SCHEDSCAN_DEBUG_DIR", ""),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
