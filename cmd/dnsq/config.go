package main

import (
	"os"

	"github.com/BurntSushi/toml"
)

type config struct {
	Title     string
	Servers   []string
	TimeoutMs int      `toml:"timeout-ms"`
	QueryLog  queryLog `toml:"query-log"`
}

type queryLog struct {
	OutputFile     string `toml:"output-file"`
	SyslogNetwork  string `toml:"syslog-network"`
	SyslogAddress  string `toml:"syslog-address"`
	SyslogPriority int    `toml:"syslog-priority"`
	SyslogTag      string `toml:"syslog-tag"`
	LogResponse    bool   `toml:"log-response"`
}

// loadConfig reads a config file and returns the decoded structure. A
// blank filename returns the zero config.
func loadConfig(name string) (config, error) {
	var c config
	if name == "" {
		return c, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return c, err
	}
	defer f.Close()
	_, err = toml.NewDecoder(f).Decode(&c)
	return c, err
}
