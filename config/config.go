// Copyright © 2024 The ELPS authors

// Package config resolves checker settings. Values come from the
// [tool.flakes] table of the nearest pyproject.toml, overridden by anything
// set through viper (command line flags, FLAKES_* environment variables and
// the .flakes.yaml dotfile).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// Keys shared between viper, flags and pyproject.toml.
const (
	KeyBuiltins = "builtins"
	KeyChecks   = "checks"
	KeyExclude  = "exclude"
	KeyCacheDir = "cache-dir"
	KeyNoCache  = "no-cache"
)

// PyprojectName is the file searched for by FindPyproject.
const PyprojectName = "pyproject.toml"

// Settings are the resolved checker options.
type Settings struct {
	// Builtins are extra names treated as always defined.
	Builtins []string `toml:"builtins"`

	// Checks selects analyzers by name or code. Empty means all.
	Checks []string `toml:"checks"`

	// Exclude holds glob patterns of paths to skip.
	Exclude []string `toml:"exclude"`

	// CacheDir holds the result cache. Empty means the user cache dir.
	CacheDir string `toml:"cache-dir"`

	// NoCache disables the result cache.
	NoCache bool `toml:"no-cache"`

	// Source is the pyproject.toml the settings were read from, if any.
	Source string `toml:"-"`
}

type pyproject struct {
	Tool struct {
		Flakes Settings `toml:"flakes"`
	} `toml:"tool"`
}

// LoadPyproject reads the [tool.flakes] table from a pyproject.toml. Keys
// the table does not define are an error so typos are not silently ignored.
func LoadPyproject(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc pyproject
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	var unknown []string
	for _, key := range md.Undecoded() {
		if len(key) >= 2 && key[0] == "tool" && key[1] == "flakes" {
			unknown = append(unknown, key.String())
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%s: unknown settings: %s", path, strings.Join(unknown, ", "))
	}
	s := doc.Tool.Flakes
	s.Source = path
	return &s, nil
}

// FindPyproject returns the nearest pyproject.toml in dir or one of its
// parents, or "" when there is none.
func FindPyproject(dir string) string {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		path := filepath.Join(dir, PyprojectName)
		if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Load resolves settings for a run started in dir. v may be nil.
func Load(v *viper.Viper, dir string) (*Settings, error) {
	s := &Settings{}
	if path := FindPyproject(dir); path != "" {
		var err error
		s, err = LoadPyproject(path)
		if err != nil {
			return nil, err
		}
	}
	if v == nil {
		return s, nil
	}
	if v.IsSet(KeyBuiltins) {
		s.Builtins = SplitList(v.GetStringSlice(KeyBuiltins))
	}
	if v.IsSet(KeyChecks) {
		s.Checks = SplitList(v.GetStringSlice(KeyChecks))
	}
	if v.IsSet(KeyExclude) {
		s.Exclude = SplitList(v.GetStringSlice(KeyExclude))
	}
	if v.IsSet(KeyCacheDir) {
		s.CacheDir = v.GetString(KeyCacheDir)
	}
	if v.IsSet(KeyNoCache) {
		s.NoCache = v.GetBool(KeyNoCache)
	}
	return s, nil
}

// NewViper returns a viper instance reading FLAKES_* environment variables
// and, when found, a .flakes.{yaml,toml,json} file from cfgFile or the home
// and working directories.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("flakes")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".flakes")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	return v, nil
}

// SplitList flattens values that may themselves hold comma or space
// separated items, as environment variables do.
func SplitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, item := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' || r == '\n' }) {
			out = append(out, item)
		}
	}
	return out
}
