package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/newsroom-tools/codex-api/internal/models"
	appErrors "github.com/newsroom-tools/codex-api/pkg/errors"
)

type userAdminRepository interface {
	ListUsers(ctx context.Context, limit, offset int) ([]models.User, int, error)
	SetUserActive(ctx context.Context, id string, active bool) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
}

// UserService covers the admin console's account management operations.
type UserService struct {
	repo   userAdminRepository
	logger *zap.Logger
}

// NewUserService constructs the service.
func NewUserService(repo userAdminRepository, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, logger: logger}
}

// ListUsers returns a page of accounts plus pagination metadata.
func (s *UserService) ListUsers(ctx context.Context, page, pageSize int) ([]models.User, *models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	users, total, err := s.repo.ListUsers(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// SetActive enables or disables an account. Deactivation also revokes the
// user's live refresh tokens so existing sessions cannot renew.
func (s *UserService) SetActive(ctx context.Context, callerID, userID string, active bool) error {
	if callerID == userID {
		return appErrors.Clone(appErrors.ErrConflict, "cannot change your own account status")
	}

	if err := s.repo.SetUserActive(ctx, userID, active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update account")
	}

	if !active {
		if err := s.repo.RevokeUserRefreshTokens(ctx, userID); err != nil {
			s.logger.Warn("failed to revoke refresh tokens for deactivated user",
				zap.String("user_id", userID), zap.Error(err))
		}
	}

	s.logger.Info("account status changed",
		zap.String("user_id", userID), zap.Bool("active", active), zap.String("changed_by", callerID))
	return nil
}
