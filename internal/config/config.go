// Package config provides configuration management for the schedsim driver.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/cloudsched/simcore/internal/hostsim"
	"github.com/cloudsched/simcore/internal/scheduler"
)

// Config holds all configuration for the simulation run.
type Config struct {
	Logging   LoggingConfig    `mapstructure:"logging"`
	Scheduler scheduler.Config `mapstructure:"scheduler"`
	Sim       SimConfig        `mapstructure:"sim"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SimConfig describes the simulated cluster and the workload to replay.
type SimConfig struct {
	Machines []hostsim.MachineSpec `mapstructure:"machines"`
	Tasks    []hostsim.TaskSpec    `mapstructure:"tasks"`

	// PeriodicCheckUs is the interval between scheduler periodic ticks.
	PeriodicCheckUs uint64 `mapstructure:"periodic_check_us"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SCHEDSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Scheduler
	v.SetDefault("scheduler.policy", scheduler.PolicyLoadBalance)
	v.SetDefault("scheduler.relax_cpu_type", false)

	// Simulation
	v.SetDefault("sim.periodic_check_us", 1_000_000)
}
