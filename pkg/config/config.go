/*
Copyright 2021 Stefan Prodan

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fluxcd/pkg/ssa"
	"github.com/spf13/viper"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"
)

const (
	ConfigKind        = "Config"
	ConfigApiVersion  = "provider.crowdstrike.com/v1"
	FieldManagerName  = "cfn-operator-provider"
	FieldManagerGroup = "cfn.crowdstrike.com"

	DefaultTypeName    = "CrowdStrike::Kubernetes::Operator"
	DefaultManifestURL = "https://raw.githubusercontent.com/CrowdStrike/falcon-operator/maint-0.5/deploy/falcon-operator.yaml"

	// EnvPrefix is the prefix of the environment variables that override the config file.
	EnvPrefix = "OPERATOR_PROVIDER"
)

type Config struct {
	metav1.TypeMeta `json:",inline"`

	// TypeName identifies the resource type to CloudFormation.
	TypeName string `json:"typeName"`

	// ManifestURL is the location of the multi-doc YAML bundle applied on create.
	ManifestURL string `json:"manifestURL"`

	// Region overrides the AWS region of the caller session.
	Region string `json:"region,omitempty"`

	// FieldManager holds the manager name and group used when creating objects.
	FieldManager *FieldManager `json:"fieldManager,omitempty"`

	// Deletion holds the options passed to every delete call.
	Deletion *Deletion `json:"deletion,omitempty"`

	// Delays holds the callback delays requested from CloudFormation.
	Delays *Delays `json:"delays,omitempty"`

	// Retry holds the policy for transient cluster connectivity failures.
	Retry *Retry `json:"retry,omitempty"`
}

type FieldManager struct {
	// Name sets the field manager for the created objects.
	Name string `json:"name"`

	// Group sets the owner label key prefix.
	Group string `json:"group"`
}

type Deletion struct {
	// PropagationPolicy is one of Background, Foreground or Orphan.
	PropagationPolicy metav1.DeletionPropagation `json:"propagationPolicy"`

	// GracePeriodSeconds is the duration before the object is deleted.
	GracePeriodSeconds int64 `json:"gracePeriodSeconds"`
}

type Delays struct {
	// InitSeconds is requested after the first, side-effect free invocation.
	InitSeconds int64 `json:"initSeconds"`

	// StabilizeSeconds is requested between two polls of a Job.
	StabilizeSeconds int64 `json:"stabilizeSeconds"`
}

type Retry struct {
	Interval   metav1.Duration `json:"interval"`
	MaxRetries uint64          `json:"maxRetries"`
}

// NewConfig returns a config with the default values.
func NewConfig() *Config {
	return &Config{
		TypeMeta: metav1.TypeMeta{
			Kind:       ConfigKind,
			APIVersion: ConfigApiVersion,
		},
		TypeName:     DefaultTypeName,
		ManifestURL:  DefaultManifestURL,
		FieldManager: defaultFieldManager(),
		Deletion:     defaultDeletion(),
		Delays:       defaultDelays(),
		Retry:        defaultRetry(),
	}
}

// Owner returns the field manager as an ssa.Owner.
func (c *Config) Owner() ssa.Owner {
	return ssa.Owner{
		Field: c.FieldManager.Name,
		Group: c.FieldManager.Group,
	}
}

func defaultFieldManager() *FieldManager {
	return &FieldManager{
		Name:  FieldManagerName,
		Group: FieldManagerGroup,
	}
}

func defaultDeletion() *Deletion {
	return &Deletion{
		PropagationPolicy:  metav1.DeletePropagationBackground,
		GracePeriodSeconds: 5,
	}
}

func defaultDelays() *Delays {
	return &Delays{
		InitSeconds:      1,
		StabilizeSeconds: 30,
	}
}

func defaultRetry() *Retry {
	return &Retry{
		Interval:   metav1.Duration{Duration: 5 * time.Second},
		MaxRetries: 5,
	}
}

// DefaultConfigPath returns '$HOME/.operator-provider/config'
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".operator-provider/config"), nil
}

// Read loads the config from the specified path,
// if the config file is not found, a default is returned.
func Read(configPath string) (*Config, error) {
	if configPath == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return nil, fmt.Errorf("$HOME dir can't be determined, error: %w", err)
		}
		configPath = p
	}

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		return NewConfig(), nil
	}

	cfgData, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(cfgData, cfg); err != nil {
		return nil, err
	}

	cfg.setDefaults()

	if cfg.FieldManager.Name == "" {
		return nil, fmt.Errorf("the field manager name can't be empty")
	}

	if cfg.FieldManager.Group == "" {
		return nil, fmt.Errorf("the field manager group can't be empty")
	}

	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.TypeName == "" {
		c.TypeName = DefaultTypeName
	}
	if c.ManifestURL == "" {
		c.ManifestURL = DefaultManifestURL
	}
	if c.FieldManager == nil {
		c.FieldManager = defaultFieldManager()
	}
	if c.Deletion == nil {
		c.Deletion = defaultDeletion()
	}
	if c.Delays == nil {
		c.Delays = defaultDelays()
	}
	if c.Retry == nil {
		c.Retry = defaultRetry()
	}
}

// ApplyEnv overrides the config values with the OPERATOR_PROVIDER_* environment variables.
func (c *Config) ApplyEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	_ = v.BindEnv("MANIFEST_URL")
	_ = v.BindEnv("REGION")
	_ = v.BindEnv("TYPE_NAME")

	if s := v.GetString("MANIFEST_URL"); s != "" {
		c.ManifestURL = s
	}
	if s := v.GetString("REGION"); s != "" {
		c.Region = s
	}
	if s := v.GetString("TYPE_NAME"); s != "" {
		c.TypeName = s
	}
}

// Write saves the config at the given path, if no path is specified
// it will create or override '$HOME/.operator-provider/config'.
func (c *Config) Write(configPath string) error {
	if configPath == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return err
		}
		configPath = p
	}

	if err := os.MkdirAll(filepath.Dir(configPath), os.FileMode(0755)); err != nil {
		return err
	}

	cfgData, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, cfgData, os.FileMode(0644))
}
