package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestCodeKindMapping(t *testing.T) {
	tests := []struct {
		code   Code
		kind   Kind
		status int
	}{
		{CodeTaskNotFound, KindNotFound, http.StatusNotFound},
		{CodeWorkspaceRoleEscalates, KindForbidden, http.StatusForbidden},
		{CodeTaskVersionConflict, KindConflict, http.StatusConflict},
		{CodeIdempotencyKeyConflict, KindConflict, http.StatusConflict},
		{CodeTaskInvalidStatusTransition, KindBadRequest, http.StatusBadRequest},
		{CodeWorkspaceLastOwner, KindBadRequest, http.StatusBadRequest},
		{CodeInvalidCredentials, KindUnauthenticated, http.StatusUnauthorized},
		{CodeUnknown, KindInternal, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(string(tc.code), func(t *testing.T) {
			if got := tc.code.Kind(); got != tc.kind {
				t.Fatalf("kind = %s, want %s", got, tc.kind)
			}
			if got := tc.code.Kind().HTTPStatus(); got != tc.status {
				t.Fatalf("status = %d, want %d", got, tc.status)
			}
		})
	}
}

func TestKindOfWrappedError(t *testing.T) {
	err := fmt.Errorf("update task: %w", New(CodeTaskVersionConflict, "task version conflict"))

	if got := KindOf(err); got != KindConflict {
		t.Fatalf("kind = %s, want conflict", got)
	}
	if !HasCode(err, CodeTaskVersionConflict) {
		t.Fatal("expected code in chain")
	}
	if got := KindOf(fmt.Errorf("boom")); got != KindInternal {
		t.Fatalf("plain error kind = %s, want internal", got)
	}
}

func TestErrorIsMatchesByCode(t *testing.T) {
	err := WithMetadata(CodeTaskInvalidStatusTransition, "invalid status transition: todo -> done", map[string]string{"From": "todo", "To": "done"})
	if !stderrors.Is(err, New(CodeTaskInvalidStatusTransition, "")) {
		t.Fatal("expected errors with the same code to match")
	}
	if stderrors.Is(err, New(CodeTaskNotFound, "")) {
		t.Fatal("expected different codes not to match")
	}
}
