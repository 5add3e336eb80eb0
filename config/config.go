// Package config loads runtime settings for the billing app from the
// environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

const (
	defaultEnvFile        = ".env"
	defaultCompanyName    = "Client Billing"
	defaultCurrencySymbol = "$"
	defaultLogLevel       = "info"
)

// Config captures the settings consumed by handlers, exports and the CLI.
type Config struct {
	CompanyName    string
	CurrencySymbol string
	// SkipEmptyRows drops report rows where budget and actual are both zero.
	SkipEmptyRows bool
	// ProfitTaxesLiabilityCodes lists the cost-code ids of the derived
	// profit/taxes/liability bucket. Empty means recognize it by name.
	ProfitTaxesLiabilityCodes []string
	LogLevel                  string
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile   string
	envMap    map[string]string
	systemEnv bool
}

// WithEnvFile overrides the .env path. An empty path disables .env loading.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap supplies explicit values that take precedence over everything else.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv ignores the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.systemEnv = false
	}
}

// Load resolves configuration. Precedence: explicit map, process
// environment, .env file, defaults. A missing .env file is not an error.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:   defaultEnvFile,
		systemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnv, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if v, ok := options.envMap[key]; ok {
			return v, true
		}
		if options.systemEnv {
			if v, ok := os.LookupEnv(key); ok {
				return v, true
			}
		}
		v, ok := dotEnv[key]
		return v, ok
	}

	skipEmpty, err := boolWithDefault(lookup, "BILLING_SKIP_EMPTY_ROWS", false)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		CompanyName:               stringWithDefault(lookup, "BILLING_COMPANY_NAME", defaultCompanyName),
		CurrencySymbol:            stringWithDefault(lookup, "BILLING_CURRENCY_SYMBOL", defaultCurrencySymbol),
		SkipEmptyRows:             skipEmpty,
		ProfitTaxesLiabilityCodes: csvWithDefault(lookup, "BILLING_PTL_COST_CODE"),
		LogLevel:                  strings.ToLower(stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel)),
	}
	return cfg, nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) (bool, error) {
	v, ok := lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback, nil
	}
	b, err := cast.ToBoolE(strings.TrimSpace(v))
	if err != nil {
		return fallback, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
