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
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/cluster"
	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/handler"
	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/manifest"
)

var invokeCmd = &cobra.Command{
	Use:   "invoke [create|read|update|delete|list]",
	Short: "Invoke runs a resource handler once and prints the progress event.",
	Long: `Invoke reads a handler request from a JSON or YAML file, runs the handler of the given action
and prints the resulting progress event as JSON.
The cluster is reached through the EKS credentials exchange, unless a kubeconfig or a context is specified.`,
	Example: `  # Start a create operation
  operator-provider invoke create -f request.json

  # Continue it with the callback context of the previous event
  operator-provider invoke create -f request-with-callback.json

  # Delete from a local cluster
  operator-provider invoke delete -f request.json --kubeconfig ~/.kube/config --context kind-falcon
`,
	ValidArgs: []string{"create", "read", "update", "delete", "list"},
	Args:      cobra.ExactValidArgs(1),
	RunE:      runInvokeCmd,
}

type invokeFlags struct {
	filename string
}

var invokeArgs invokeFlags

func init() {
	invokeCmd.Flags().StringVarP(&invokeArgs.filename, "filename", "f", "",
		"Path to the request document.")
	rootCmd.AddCommand(invokeCmd)
}

func runInvokeCmd(cmd *cobra.Command, args []string) error {
	if invokeArgs.filename == "" {
		return fmt.Errorf("you must specify a request file with -f")
	}

	req, err := readRequest(invokeArgs.filename)
	if err != nil {
		return err
	}
	req.Action = handler.Action(strings.ToUpper(args[0]))

	connector, err := newConnector(req)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), rootArgs.timeout)
	defer cancel()
	ctx = logr.NewContext(ctx, withLogger("stackId", req.StackID))

	provider := handler.NewProvider(cfg, connector, manifest.NewHTTPSource())
	event := provider.Invoke(ctx, req)

	data, err := json.MarshalIndent(event, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))

	if event.Status == handler.Failed {
		return fmt.Errorf("%s failed with %s", req.Action, event.ErrorCode)
	}
	return nil
}

func readRequest(filename string) (*handler.Request, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading the request failed, error: %w", err)
	}

	req := &handler.Request{}
	if err := yaml.Unmarshal(data, req); err != nil {
		return nil, fmt.Errorf("decoding the request failed, error: %w", err)
	}
	return req, nil
}

func retryPolicy() cluster.RetryPolicy {
	return cluster.RetryPolicy{
		Interval:   cfg.Retry.Interval.Duration,
		MaxRetries: cfg.Retry.MaxRetries,
	}
}

// newConnector returns a kubeconfig connector when a kubeconfig or a context
// is specified, an EKS authenticator for the request credentials otherwise.
func newConnector(req *handler.Request) (handler.Connector, error) {
	if useKubeconfig() {
		restConfig, err := kubeconfigArgs.ToRESTConfig()
		if err != nil {
			return nil, fmt.Errorf("kubeconfig load failed: %w", err)
		}
		return &cluster.ConfigConnector{Config: restConfig, Retry: retryPolicy()}, nil
	}

	sess, err := newAWSSession(req)
	if err != nil {
		return nil, err
	}
	return cluster.NewAuthenticator(sess, retryPolicy()), nil
}

func useKubeconfig() bool {
	return (kubeconfigArgs.KubeConfig != nil && *kubeconfigArgs.KubeConfig != "") ||
		(kubeconfigArgs.Context != nil && *kubeconfigArgs.Context != "")
}

func newAWSSession(req *handler.Request) (*session.Session, error) {
	opts := session.Options{
		SharedConfigState: session.SharedConfigEnable,
	}

	region := cfg.Region
	if region == "" {
		region = req.Region
	}
	if region != "" {
		opts.Config.Region = aws.String(region)
	}

	if c := req.Credentials; c != nil {
		opts.Config.Credentials = credentials.NewStaticCredentials(c.AccessKeyID, c.SecretAccessKey, c.SessionToken)
	}

	sess, err := session.NewSessionWithOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("AWS session initialization failed: %w", err)
	}
	return sess, nil
}
