package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Config contains application configuration
type Config struct {
	// Compute Engine connection parameters
	Project         string `yaml:"project"`
	Zone            string `yaml:"zone"`
	ImageProject    string `yaml:"image_project"`
	CredentialsFile string `yaml:"credentials_file"`

	// Remote execution settings
	Username  string `yaml:"username"`
	KeyDir    string `yaml:"key_dir"`
	RetryWait int    `yaml:"retry_wait"` // seconds between SSH probe attempts
	MaxRetry  int    `yaml:"max_retry"`

	// Hard cap on instances in the target zone before a job refuses to run
	MaxInstances int `yaml:"max_instances"`

	// Max number of jobs running at once
	MaxWorkers int `yaml:"max_workers"`
}

// Load loads configuration from YAML file
func Load() (*Config, error) {
	config := &Config{
		Username:     "gcefire",
		KeyDir:       "secrets",
		RetryWait:    5,
		MaxRetry:     5,
		MaxInstances: 10,
		MaxWorkers:   1,
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "gcefire.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %v", err)
		}
	}

	// Expand environment variables in string fields
	config.Project = os.ExpandEnv(config.Project)
	config.Zone = os.ExpandEnv(config.Zone)
	config.ImageProject = os.ExpandEnv(config.ImageProject)
	config.CredentialsFile = os.ExpandEnv(config.CredentialsFile)
	config.Username = os.ExpandEnv(config.Username)
	config.KeyDir = os.ExpandEnv(config.KeyDir)

	// Override with environment variables if set
	if project := os.Getenv("GCP_PROJECT"); project != "" {
		config.Project = project
	}

	if zone := os.Getenv("GCP_ZONE"); zone != "" {
		config.Zone = zone
	}

	if creds := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); creds != "" {
		config.CredentialsFile = creds
	}

	// Validate required parameters
	if config.Project == "" {
		return nil, fmt.Errorf("project is required (set project in config file or GCP_PROJECT environment variable)")
	}

	if config.Zone == "" {
		return nil, fmt.Errorf("zone is required (set zone in config file or GCP_ZONE environment variable)")
	}

	// Images are resolved from the instance project unless told otherwise
	if config.ImageProject == "" {
		config.ImageProject = config.Project
	}

	return config, nil
}
