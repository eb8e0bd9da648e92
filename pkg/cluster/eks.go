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

package cluster

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/eks"
	"github.com/aws/aws-sdk-go/service/eks/eksiface"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/aws/aws-sdk-go/service/sts/stsiface"
	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
)

const (
	clusterIDHeader = "x-k8s-aws-id"
	tokenPrefix     = "k8s-aws-v1."
	tokenExpiration = 60 * time.Second
)

// TokenGenerator returns a short-lived bearer token for the named cluster.
type TokenGenerator interface {
	Token(ctx context.Context, clusterName string) (string, error)
}

// STSTokenGenerator presigns an STS GetCallerIdentity request the same way
// aws-iam-authenticator does, the API server validates it with AWS.
type STSTokenGenerator struct {
	STS stsiface.STSAPI
}

func (g *STSTokenGenerator) Token(ctx context.Context, clusterName string) (string, error) {
	req, _ := g.STS.GetCallerIdentityRequest(&sts.GetCallerIdentityInput{})
	req.SetContext(ctx)
	req.HTTPRequest.Header.Add(clusterIDHeader, clusterName)

	presignedURL, err := req.Presign(tokenExpiration)
	if err != nil {
		return "", errors.Wrap(err, "failed to presign the caller identity request")
	}

	return tokenPrefix + base64.RawURLEncoding.EncodeToString([]byte(presignedURL)), nil
}

// Authenticator exchanges AWS credentials for a cluster Session.
type Authenticator struct {
	EKS    eksiface.EKSAPI
	Tokens TokenGenerator
	Retry  RetryPolicy

	// TempDir is the parent of the per-session kubeconfig directories,
	// the OS default is used when empty.
	TempDir string
}

// NewAuthenticator returns an Authenticator for the given AWS session.
func NewAuthenticator(sess *session.Session, retry RetryPolicy) *Authenticator {
	return &Authenticator{
		EKS:    eks.New(sess),
		Tokens: &STSTokenGenerator{STS: sts.New(sess)},
		Retry:  retry,
	}
}

// Connect resolves the cluster endpoint, writes a kubeconfig holding a fresh
// token into a private directory and returns a Session using it.
func (a *Authenticator) Connect(ctx context.Context, clusterName string) (*Session, error) {
	log := logr.FromContextOrDiscard(ctx)

	out, err := a.EKS.DescribeClusterWithContext(ctx, &eks.DescribeClusterInput{
		Name: aws.String(clusterName),
	})
	if err != nil {
		return nil, &AuthenticationError{Cluster: clusterName, Err: errors.Wrap(err, "failed to describe cluster")}
	}
	if out.Cluster == nil || aws.StringValue(out.Cluster.Endpoint) == "" {
		return nil, &AuthenticationError{Cluster: clusterName, Err: errors.New("cluster has no endpoint")}
	}

	var caData []byte
	if out.Cluster.CertificateAuthority != nil {
		caData, err = base64.StdEncoding.DecodeString(aws.StringValue(out.Cluster.CertificateAuthority.Data))
		if err != nil {
			return nil, &AuthenticationError{Cluster: clusterName, Err: errors.Wrap(err, "invalid certificate authority data")}
		}
	}

	token, err := a.Tokens.Token(ctx, clusterName)
	if err != nil {
		return nil, &AuthenticationError{Cluster: clusterName, Err: err}
	}

	dir, err := os.MkdirTemp(a.TempDir, "kubeconfig-")
	if err != nil {
		return nil, &AuthenticationError{Cluster: clusterName, Err: errors.Wrap(err, "failed to create kubeconfig dir")}
	}

	kubeconfigPath := filepath.Join(dir, "config")
	if err := clientcmd.WriteToFile(newKubeConfig(clusterName, aws.StringValue(out.Cluster.Endpoint), caData, token), kubeconfigPath); err != nil {
		_ = os.RemoveAll(dir)
		return nil, &AuthenticationError{Cluster: clusterName, Err: errors.Wrap(err, "failed to write kubeconfig")}
	}

	cfg, err := LoadKubeConfig(kubeconfigPath, clusterName)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, &AuthenticationError{Cluster: clusterName, Err: err}
	}

	s, err := NewSessionFromConfig(clusterName, cfg, a.Retry)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	s.dir = dir
	s.kubeconfigPath = kubeconfigPath

	log.V(1).Info("kubeconfig written", "cluster", clusterName, "endpoint", aws.StringValue(out.Cluster.Endpoint))
	return s, nil
}

func newKubeConfig(name, endpoint string, caData []byte, token string) clientcmdapi.Config {
	cfg := clientcmdapi.NewConfig()
	cfg.Clusters[name] = &clientcmdapi.Cluster{
		Server:                   endpoint,
		CertificateAuthorityData: caData,
	}
	cfg.AuthInfos[name] = &clientcmdapi.AuthInfo{
		Token: token,
	}
	cfg.Contexts[name] = &clientcmdapi.Context{
		Cluster:  name,
		AuthInfo: name,
	}
	cfg.CurrentContext = name
	return *cfg
}
