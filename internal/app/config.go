package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	GraphPath string // path to a .hcl file or a directory of .hcl files

	LogFormat       string
	LogLevel        string
	WorkerCount     int
	PrintOnly       bool // print the plan and exit without executing
	DotOutput       bool // export the graph as Graphviz DOT instead of the plan
	HealthcheckPort int
}

// NewConfig validates a Config and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.GraphPath == "" {
		return nil, errors.New("GraphPath is a required configuration field and cannot be empty")
	}
	if cfg.WorkerCount < 1 {
		return nil, errors.New("WorkerCount must be at least 1")
	}
	return &cfg, nil
}
