// Package errors provides the structured error taxonomy shared by taskhub
// services and its mapping onto transport status codes.
package errors

import "net/http"

// Kind is the closed set of failure classes a caller can observe.
type Kind string

const (
	KindInternal        Kind = "internal"
	KindNotFound        Kind = "not_found"
	KindForbidden       Kind = "forbidden"
	KindConflict        Kind = "conflict"
	KindBadRequest      Kind = "bad_request"
	KindUnauthenticated Kind = "unauthenticated"
)

// HTTPStatus maps a kind to its HTTP status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Generic request errors
	CodeNotFound     Code = "NOT_FOUND"
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeForbidden    Code = "FORBIDDEN"

	// Authentication errors
	CodeUnauthenticated    Code = "UNAUTHENTICATED"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeUsernameTaken      Code = "USERNAME_TAKEN"

	// Workspace errors
	CodeWorkspaceNotFound      Code = "WORKSPACE_NOT_FOUND"
	CodeWorkspaceMemberExists  Code = "WORKSPACE_MEMBER_EXISTS"
	CodeWorkspaceMemberMissing Code = "WORKSPACE_MEMBER_NOT_FOUND"
	CodeWorkspaceLastOwner     Code = "WORKSPACE_LAST_OWNER"
	CodeWorkspaceRoleEscalates Code = "WORKSPACE_ROLE_ESCALATION"
	CodeUserNotInWorkspace     Code = "USER_NOT_IN_WORKSPACE"

	// Project errors
	CodeProjectNotFound  Code = "PROJECT_NOT_FOUND"
	CodeProjectNameTaken Code = "PROJECT_NAME_TAKEN"

	// Task errors
	CodeTaskNotFound                Code = "TASK_NOT_FOUND"
	CodeTaskInvalidStatusTransition Code = "TASK_INVALID_STATUS_TRANSITION"
	CodeTaskVersionConflict         Code = "TASK_VERSION_CONFLICT"

	// Collaboration errors
	CodeCommentNotFound Code = "COMMENT_NOT_FOUND"
	CodeTagExists       Code = "TAG_EXISTS"
	CodeTagNotFound     Code = "TAG_NOT_FOUND"
	CodeWatcherExists   Code = "WATCHER_EXISTS"
	CodeWatcherNotFound Code = "WATCHER_NOT_FOUND"

	// Idempotency errors
	CodeIdempotencyKeyConflict Code = "IDEMPOTENCY_KEY_CONFLICT"
	CodeIdempotencyKeyInvalid  Code = "IDEMPOTENCY_KEY_INVALID"

	// Audit errors
	CodeAuditFilterInvalid Code = "AUDIT_FILTER_INVALID"
)

// Kind returns the failure class of the code.
func (c Code) Kind() Kind {
	switch c {
	case CodeNotFound,
		CodeWorkspaceNotFound,
		CodeWorkspaceMemberMissing,
		CodeUserNotInWorkspace,
		CodeProjectNotFound,
		CodeTaskNotFound,
		CodeCommentNotFound,
		CodeTagNotFound,
		CodeWatcherNotFound:
		return KindNotFound

	case CodeForbidden,
		CodeWorkspaceRoleEscalates:
		return KindForbidden

	case CodeUsernameTaken,
		CodeWorkspaceMemberExists,
		CodeProjectNameTaken,
		CodeTaskVersionConflict,
		CodeTagExists,
		CodeWatcherExists,
		CodeIdempotencyKeyConflict:
		return KindConflict

	case CodeInvalidInput,
		CodeWorkspaceLastOwner,
		CodeTaskInvalidStatusTransition,
		CodeIdempotencyKeyInvalid,
		CodeAuditFilterInvalid:
		return KindBadRequest

	case CodeUnauthenticated,
		CodeInvalidCredentials:
		return KindUnauthenticated

	default:
		return KindInternal
	}
}
