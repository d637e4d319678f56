// Command staticlint is the project's static analysis binary. It combines
// analyzers from the Go toolchain, third-party analyzers, a configurable set
// of staticcheck checks and the project's own noosexit analyzer into a single
// multichecker.
//
// The staticcheck checks to enable are read from the JSON file named by the
// STATICLINT_CONFIG environment variable, or from config.json next to the
// binary:
//
//	{"staticcheck": ["SA1000", "SA4006", "SA*"]}
//
// A trailing "*" enables every check with that prefix. Without a config file
// all SA checks are enabled.
//
// Usage:
//
//	staticlint ./...
package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/errorsas"
	"golang.org/x/tools/go/analysis/passes/httpresponse"
	"golang.org/x/tools/go/analysis/passes/loopclosure"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/nilfunc"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/unmarshal"
	"golang.org/x/tools/go/analysis/passes/unreachable"

	"github.com/gordonklaus/ineffassign/pkg/ineffassign"
	"github.com/gostaticanalysis/nilerr"
	"honnef.co/go/tools/analysis/lint"
	"honnef.co/go/tools/staticcheck"

	"github.com/patric-chuzhbe/kidneyhealth/cmd/staticlint/noosexit"
)

const (
	configEnv      = "STATICLINT_CONFIG"
	configFileName = "config.json"
)

// ConfigData describes the configuration file.
type ConfigData struct {
	Staticcheck []string `json:"staticcheck"`
}

var defaultConfig = ConfigData{Staticcheck: []string{"SA*"}}

func configPath() (string, error) {
	if path := os.Getenv(configEnv); path != "" {
		return path, nil
	}

	appfile, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(appfile), configFileName), nil
}

func loadConfig(path string) (ConfigData, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return defaultConfig, nil
	}
	if err != nil {
		return ConfigData{}, err
	}

	var cfg ConfigData
	if err := json.Unmarshal(data, &cfg); err != nil {
		return ConfigData{}, err
	}
	return cfg, nil
}

func enabled(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
			if strings.HasPrefix(name, prefix) {
				return true
			}
			continue
		}
		if pattern == name {
			return true
		}
	}
	return false
}

func analyzers(cfg ConfigData, checks []*lint.Analyzer) []*analysis.Analyzer {
	result := []*analysis.Analyzer{
		copylock.Analyzer,
		errorsas.Analyzer,
		httpresponse.Analyzer,
		loopclosure.Analyzer,
		lostcancel.Analyzer,
		nilfunc.Analyzer,
		printf.Analyzer,
		structtag.Analyzer,
		unmarshal.Analyzer,
		unreachable.Analyzer,

		ineffassign.Analyzer,
		nilerr.Analyzer,

		noosexit.Analyzer,
	}

	for _, v := range checks {
		if enabled(cfg.Staticcheck, v.Analyzer.Name) {
			result = append(result, v.Analyzer)
		}
	}

	return result
}

func main() {
	path, err := configPath()
	if err != nil {
		panic(err)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		panic(err)
	}

	multichecker.Main(analyzers(cfg, staticcheck.Analyzers)...)
}
