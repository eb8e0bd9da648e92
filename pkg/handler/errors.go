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

package handler

import (
	"errors"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/cluster"
	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/manager"
	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/manifest"
)

// InvalidRequestError is returned when a required field is missing.
type InvalidRequestError struct {
	Message string
}

func (e *InvalidRequestError) Error() string {
	return e.Message
}

// AlreadyExistsError is returned when an object of the bundle exists and
// was not created by the current request.
type AlreadyExistsError struct {
	TypeName   string
	Identifier string
	Err        error
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("Resource of type '%s' with identifier '%s' already exists.", e.TypeName, e.Identifier)
}

func (e *AlreadyExistsError) Unwrap() error {
	return e.Err
}

// ErrorCodeFor maps an error to the CloudFormation handler error code.
func ErrorCodeFor(err error) ErrorCode {
	var (
		invalidRequest *InvalidRequestError
		alreadyExists  *AlreadyExistsError
		authErr        *cluster.AuthenticationError
		connErr        *cluster.ConnectivityError
		fetchErr       *manifest.FetchError
		applyErr       *manager.ApplyError
		deletionFailed *manager.DeletionFailed
		unknownKind    *manager.UnknownKindError
	)

	switch {
	case errors.As(err, &invalidRequest):
		return InvalidRequest
	case errors.As(err, &alreadyExists):
		return AlreadyExists
	case errors.As(err, &authErr):
		return InvalidCredentials
	case errors.As(err, &connErr), errors.As(err, &fetchErr), cluster.IsUnableToConnect(err):
		return NetworkFailure
	case errors.As(err, &unknownKind):
		return InvalidRequest
	case errors.As(err, &applyErr):
		return apiErrorCode(applyErr.Err)
	case errors.As(err, &deletionFailed):
		return GeneralServiceException
	default:
		return InternalFailure
	}
}

func apiErrorCode(err error) ErrorCode {
	switch {
	case apierrors.IsForbidden(err), apierrors.IsUnauthorized(err):
		return AccessDenied
	case apierrors.IsNotFound(err):
		return NotFound
	case apierrors.IsInvalid(err), apierrors.IsBadRequest(err):
		return InvalidRequest
	case apierrors.IsInternalError(err), apierrors.IsServiceUnavailable(err):
		return ServiceInternalError
	default:
		return GeneralServiceException
	}
}
