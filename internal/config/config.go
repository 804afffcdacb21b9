package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	// Cover page detection
	SizeThreshold float64 `validate:"gt=0"`

	// Footer crop
	FooterMarker  string
	FooterOffsetX float64
	FooterOffsetY float64 `validate:"gte=0"`

	// OCR
	OCRLangs      string `validate:"required"`
	OCRWorkers    int    `validate:"gte=1"`
	OCRDensity    int    `validate:"gte=72"`
	OCRImageLines int    `validate:"gte=1"`

	// Viewer
	Viewer        string `validate:"required"`
	UseI3         bool
	ViewerTimeout time.Duration `validate:"gte=0"`

	// Placement
	OutDir string `validate:"omitempty,dir"`

	// PDF
	PDFFallbackPdftotext bool

	// Logging
	LogFormat string `validate:"oneof=text json"`
	LogLevel  string `validate:"oneof=debug info warn error"`
}

// LoadEnvFile reads KEY=value pairs from the given files (".env" when none
// are given) into the environment. Variables already set win. Missing files
// are not an error.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func Load() Config {
	cfg := Config{
		SizeThreshold: envFloat("PAPERSHELF_SIZE_THRESHOLD", 20),

		FooterMarker:  envOr("PAPERSHELF_FOOTER_MARKER", "This content downloaded from"),
		FooterOffsetX: envFloat("PAPERSHELF_FOOTER_OFFSET_X", 0),
		FooterOffsetY: envFloat("PAPERSHELF_FOOTER_OFFSET_Y", 60),

		OCRLangs:      envOr("PAPERSHELF_OCR_LANGS", "eng+fra+lat+grc"),
		OCRWorkers:    envInt("PAPERSHELF_OCR_WORKERS", runtime.NumCPU()),
		OCRDensity:    envInt("PAPERSHELF_OCR_DENSITY", 300),
		OCRImageLines: envInt("PAPERSHELF_OCR_IMAGE_LINES", 3),

		Viewer:        envOr("PAPERSHELF_VIEWER", "zathura"),
		UseI3:         envBool("PAPERSHELF_USE_I3", true),
		ViewerTimeout: envDuration("PAPERSHELF_VIEWER_TIMEOUT", 10*time.Second),

		OutDir: os.Getenv("PAPERSHELF_OUTDIR"),

		PDFFallbackPdftotext: envBool("PAPERSHELF_PDFTOTEXT_FALLBACK", true),

		LogFormat: strings.ToLower(envOr("PAPERSHELF_LOG_FORMAT", "text")),
		LogLevel:  strings.ToLower(envOr("PAPERSHELF_LOG_LEVEL", "info")),
	}

	if cfg.SizeThreshold <= 0 {
		cfg.SizeThreshold = 20
	}
	if cfg.OCRWorkers <= 0 {
		cfg.OCRWorkers = runtime.NumCPU()
	}
	if cfg.OCRDensity <= 0 {
		cfg.OCRDensity = 300
	}
	if cfg.OCRImageLines <= 0 {
		cfg.OCRImageLines = 3
	}

	return cfg
}

var validate = validator.New()

func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on '%s' tag (value %v)", e.Field(), e.Tag(), e.Value()))
	}
	sort.Strings(msgs)
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
