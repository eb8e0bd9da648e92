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

// Action is the CloudFormation handler action.
type Action string

const (
	CreateAction Action = "CREATE"
	ReadAction   Action = "READ"
	UpdateAction Action = "UPDATE"
	DeleteAction Action = "DELETE"
	ListAction   Action = "LIST"
)

// Status is the operation status reported to CloudFormation.
type Status string

const (
	InProgress Status = "IN_PROGRESS"
	Success    Status = "SUCCESS"
	Failed     Status = "FAILED"
)

// ErrorCode is the CloudFormation handler error code of a failed operation.
type ErrorCode string

const (
	InvalidRequest          ErrorCode = "InvalidRequest"
	AccessDenied            ErrorCode = "AccessDenied"
	InvalidCredentials      ErrorCode = "InvalidCredentials"
	AlreadyExists           ErrorCode = "AlreadyExists"
	NotFound                ErrorCode = "NotFound"
	NetworkFailure          ErrorCode = "NetworkFailure"
	GeneralServiceException ErrorCode = "GeneralServiceException"
	ServiceInternalError    ErrorCode = "ServiceInternalError"
	InternalFailure         ErrorCode = "InternalFailure"
)

// Credentials are the short-lived AWS credentials of the caller session.
type Credentials struct {
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
	SessionToken    string `json:"sessionToken,omitempty"`
}

// Request is the input of one handler invocation.
type Request struct {
	Action                    Action                 `json:"action"`
	ClientRequestToken        string                 `json:"clientRequestToken"`
	LogicalResourceIdentifier string                 `json:"logicalResourceIdentifier,omitempty"`
	StackID                   string                 `json:"stackId,omitempty"`
	Region                    string                 `json:"region,omitempty"`
	Credentials               *Credentials           `json:"credentials,omitempty"`
	DesiredResourceState      *ResourceModel         `json:"desiredResourceState,omitempty"`
	PreviousResourceState     *ResourceModel         `json:"previousResourceState,omitempty"`
	CallbackContext           map[string]interface{} `json:"callbackContext,omitempty"`
}

// ProgressEvent is the output of one handler invocation.
type ProgressEvent struct {
	Status               Status                 `json:"status"`
	ErrorCode            ErrorCode              `json:"errorCode,omitempty"`
	Message              string                 `json:"message,omitempty"`
	ResourceModel        *ResourceModel         `json:"resourceModel,omitempty"`
	ResourceModels       []ResourceModel        `json:"resourceModels,omitempty"`
	CallbackContext      map[string]interface{} `json:"callbackContext,omitempty"`
	CallbackDelaySeconds int64                  `json:"callbackDelaySeconds,omitempty"`
}

// NewFailedEvent returns a FAILED event carrying the error message and its code.
func NewFailedEvent(err error) ProgressEvent {
	return ProgressEvent{
		Status:    Failed,
		ErrorCode: ErrorCodeFor(err),
		Message:   err.Error(),
	}
}
