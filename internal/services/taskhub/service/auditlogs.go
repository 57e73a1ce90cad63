package service

import (
	"context"

	"github.com/louisbranch/taskhub/internal/platform/pagination"
	"github.com/louisbranch/taskhub/internal/services/taskhub/audit"
	"github.com/louisbranch/taskhub/internal/services/taskhub/permission"
)

// ListAuditLogs returns a page of the workspace's audit trail, newest first.
// Owners and admins only.
func (s *Service) ListAuditLogs(ctx context.Context, workspaceID, actorID int64, q audit.Query) (Page[audit.Log], error) {
	if _, err := permission.RequireManager(ctx, s.store, workspaceID, actorID); err != nil {
		return Page[audit.Log]{}, err
	}
	items, total, err := audit.List(ctx, s.store, workspaceID, q)
	if err != nil {
		return Page[audit.Log]{}, err
	}
	return Page[audit.Log]{
		Items: items,
		Total: total,
		Skip:  q.Skip,
		Limit: pagination.ClampLimit(q.Limit, pagination.DefaultLimits),
	}, nil
}
