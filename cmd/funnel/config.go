package main

import (
	"io/ioutil"

	"gopkg.in/yaml.v3"
)

// config is an experiment file: the same knobs as the flags, so a run can be
// checked in and repeated. Flags set on the command line take precedence.
type config struct {
	Source string   `yaml:"source"`
	Path   string   `yaml:"path"`
	DSN    string   `yaml:"dsn"`
	Hosts  []string `yaml:"hosts"`
	Index  string   `yaml:"index"`
	Table  string   `yaml:"table"`

	Model     string   `yaml:"model"`
	Bootstrap int      `yaml:"bootstrap"`
	Lambda    *float64 `yaml:"lambda"`
	K         *float64 `yaml:"k"`

	MinGroupSize int    `yaml:"min_group_size"`
	MaxGroups    int    `yaml:"max_groups"`
	CacheDir     string `yaml:"cache_dir"`

	Chart string `yaml:"chart"`
	CSV   string `yaml:"csv"`
	JSON  string `yaml:"json"`
}

func loadConfig(path string) (config, error) {
	var c config
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return c, err
	}
	return c, yaml.Unmarshal(b, &c)
}

// apply overlays the config beneath the parsed flags: only flags left at
// their zero value pick up the config's setting.
func (c config) apply(a *args) {
	if a.Source == "" {
		a.Source = c.Source
	}
	if a.Path == "" {
		a.Path = c.Path
	}
	if a.DSN == "" {
		a.DSN = c.DSN
	}
	if len(a.Hosts) == 0 {
		a.Hosts = c.Hosts
	}
	if a.Index == "" {
		a.Index = c.Index
	}
	if a.Table == "" {
		a.Table = c.Table
	}
	if a.Model == "" {
		a.Model = c.Model
	}
	if a.Bootstrap == 0 {
		a.Bootstrap = c.Bootstrap
	}
	if a.Lambda == nil {
		a.Lambda = c.Lambda
	}
	if a.K == nil {
		a.K = c.K
	}
	if a.MinGroupSize == 0 {
		a.MinGroupSize = c.MinGroupSize
	}
	if a.MaxGroups == 0 {
		a.MaxGroups = c.MaxGroups
	}
	if a.CacheDir == "" {
		a.CacheDir = c.CacheDir
	}
	if a.Chart == "" {
		a.Chart = c.Chart
	}
	if a.CSV == "" {
		a.CSV = c.CSV
	}
	if a.JSON == "" {
		a.JSON = c.JSON
	}
}
