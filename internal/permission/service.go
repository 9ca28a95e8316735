package permission

import (
	"context"

	"go.uber.org/zap"

	"github.com/fkhayef/grpprotocol/internal/apperr"
	"github.com/fkhayef/grpprotocol/internal/database"
)

// Common errors
var (
	ErrPermissionNotFound = apperr.NotFound("Berechtigung nicht gefunden.")
	ErrTargetNotFound     = apperr.NotFound("Benutzer oder Gruppe nicht gefunden.")
	ErrInvalidResource    = apperr.Validation("Ungültiger Ressourcentyp. Erlaubt sind resident, protocol und group.")
	ErrInvalidPermission  = apperr.Validation("Ungültige Berechtigung. Erlaubt sind read, write und delete.")
)

// Store is the persistence the service needs
type Store interface {
	ListByUser(ctx context.Context, userID int64) ([]*Permission, error)
	Create(ctx context.Context, userID int64, req *GrantRequest) (*Permission, bool, error)
	Delete(ctx context.Context, userID, permissionID int64) (bool, error)
}

// Service handles permission grants
type Service struct {
	repo   Store
	logger *zap.Logger
}

// NewService creates a new permission service
func NewService(repo Store, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// List returns the grants of a user
func (s *Service) List(ctx context.Context, userID int64) ([]*Permission, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Grant adds a permission. Granting an existing tuple again succeeds and
// returns the stored grant with created=false.
func (s *Service) Grant(ctx context.Context, userID int64, req *GrantRequest) (*Permission, bool, error) {
	if !req.Resource.valid() {
		return nil, false, ErrInvalidResource
	}
	if !req.Permission.valid() {
		return nil, false, ErrInvalidPermission
	}

	p, created, err := s.repo.Create(ctx, userID, req)
	if err != nil {
		if database.IsCode(err, database.CodeForeignKeyViolation) {
			return nil, false, ErrTargetNotFound
		}
		return nil, false, err
	}
	if created {
		s.logger.Info("permission granted",
			zap.Int64("user_id", userID),
			zap.Int64("group_id", p.GroupID),
			zap.String("resource", string(p.Resource)),
			zap.String("permission", string(p.Permission)),
		)
	}
	return p, created, nil
}

// Revoke removes a grant of the user
func (s *Service) Revoke(ctx context.Context, userID, permissionID int64) error {
	ok, err := s.repo.Delete(ctx, userID, permissionID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPermissionNotFound
	}
	return nil
}
