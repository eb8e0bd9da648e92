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

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"k8s.io/cli-runtime/pkg/genericclioptions"
	_ "k8s.io/client-go/plugin/pkg/client/auth"

	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/config"
	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/logging"
)

var VERSION = "0.1.0-dev.0"

const PROJECT = "operator-provider"

var rootCmd = &cobra.Command{
	Use:           PROJECT,
	Version:       VERSION,
	SilenceUsage:  true,
	SilenceErrors: true,
	Short:         "A command line utility to run the Kubernetes operator resource handlers outside CloudFormation.",
	Long: `The operator provider installs a Kubernetes operator bundle into an EKS cluster
on behalf of a CloudFormation stack.

Run a handler with a request document:

- operator-provider invoke create -f request.json
- operator-provider invoke delete -f request.json --kubeconfig ~/.kube/config --context kind-falcon

Inspect a physical resource identifier:

- operator-provider decode-id <cfnId>

Manage the provider config:

- operator-provider config init
- operator-provider config view
`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logging.New(cmd.ErrOrStderr(), rootArgs.debug)
		return loadConfig()
	},
}

type rootFlags struct {
	timeout    time.Duration
	debug      bool
	configPath string
}

var (
	rootArgs = rootFlags{}
	logger   = logging.New(os.Stderr, false)
	cfg      = config.NewConfig()
)

var kubeconfigArgs = genericclioptions.NewConfigFlags(false)

func init() {
	rootCmd.PersistentFlags().DurationVar(&rootArgs.timeout, "timeout", time.Minute,
		"The length of time to wait before giving up on the current operation.")
	rootCmd.PersistentFlags().BoolVar(&rootArgs.debug, "debug", false,
		"Log the fetched manifests and the Kubernetes API calls.")
	rootCmd.PersistentFlags().StringVar(&rootArgs.configPath, "config", "",
		"Path to the provider config, defaults to '$HOME/.operator-provider/config'.")

	kubeconfigArgs.Timeout = nil
	kubeconfigArgs.Namespace = nil
	kubeconfigArgs.AddFlags(rootCmd.PersistentFlags())

	rootCmd.DisableAutoGenTag = true
	rootCmd.SetOut(os.Stdout)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error(err, "command failed")
		os.Exit(1)
	}
}

func loadConfig() error {
	c, err := config.Read(rootArgs.configPath)
	if err != nil {
		return fmt.Errorf("loading the config failed, error: %w", err)
	}
	c.ApplyEnv(viper.New())
	cfg = c

	logger.V(1).Info("config loaded", "typeName", cfg.TypeName, "manifestURL", cfg.ManifestURL)
	return nil
}

// withLogger returns the command logger with the invocation values attached.
func withLogger(keysAndValues ...interface{}) logr.Logger {
	return logger.WithValues(keysAndValues...)
}
