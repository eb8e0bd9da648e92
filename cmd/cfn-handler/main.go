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
	"os"

	"github.com/aws-cloudformation/cloudformation-cli-go-plugin/cfn"
	"github.com/spf13/viper"

	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/config"
	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/logging"
	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/manifest"
)

// main runs the resource handlers inside the CloudFormation Lambda runtime,
// the provider config is read from the OPERATOR_PROVIDER_* environment variables.
func main() {
	v := viper.New()
	cfg := config.NewConfig()
	cfg.ApplyEnv(v)
	_ = v.BindEnv("DEBUG")

	logger := logging.New(os.Stderr, v.GetBool("DEBUG"))

	cfn.Start(newResourceHandler(cfg, logger, manifest.NewHTTPSource()))
}
