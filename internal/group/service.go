package group

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/fkhayef/grpprotocol/internal/access"
	"github.com/fkhayef/grpprotocol/internal/apperr"
	"github.com/fkhayef/grpprotocol/internal/blob"
	"github.com/fkhayef/grpprotocol/internal/database"
)

// Common errors
var (
	ErrGroupNotFound    = apperr.NotFound("Gruppe nicht gefunden.")
	ErrMemberNotFound   = apperr.NotFound("Der Benutzer ist kein Mitglied dieser Gruppe.")
	ErrUserNotFound     = apperr.NotFound("Benutzer nicht gefunden.")
	ErrTemplateNotFound = apperr.NotFound("Für diese Gruppe ist keine PDF-Vorlage hinterlegt.")
	ErrNameRequired     = apperr.Validation("Der Gruppenname darf nicht leer sein.")
	ErrInvalidColor     = apperr.Validation("Die Farbe muss im Format #RRGGBB angegeben werden.")
)

const defaultColor = "#000000"

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Store is the persistence the service needs
type Store interface {
	Create(ctx context.Context, req *CreateGroupRequest) (*Group, error)
	GetByID(ctx context.Context, id int64) (*Group, error)
	List(ctx context.Context, scope access.Scope, limit, offset int) ([]*Group, int, error)
	Update(ctx context.Context, id int64, req *UpdateGroupRequest) (*Group, error)
	SetTemplateKey(ctx context.Context, id int64, key *string) error
	Delete(ctx context.Context, id int64) (bool, error)
	AddMember(ctx context.Context, groupID, userID int64) (*Member, error)
	ListMembers(ctx context.Context, groupID int64) ([]*Member, error)
	ListByUser(ctx context.Context, userID int64) ([]*Member, error)
	RemoveMember(ctx context.Context, groupID, userID int64) (bool, error)
}

// Service handles group business logic
type Service struct {
	repo     Store
	resolver *access.Resolver
	files    blob.Store
	logger   *zap.Logger
}

// NewService creates a new group service
func NewService(repo Store, resolver *access.Resolver, files blob.Store, logger *zap.Logger) *Service {
	return &Service{repo: repo, resolver: resolver, files: files, logger: logger}
}

// Create creates a new group
func (s *Service) Create(ctx context.Context, req *CreateGroupRequest) (*Group, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, ErrNameRequired
	}
	if req.Color == "" {
		req.Color = defaultColor
	}
	if !colorPattern.MatchString(req.Color) {
		return nil, ErrInvalidColor
	}

	return s.repo.Create(ctx, req)
}

// GetByID retrieves a group the principal may see
func (s *Service) GetByID(ctx context.Context, p access.Principal, id int64) (*Group, error) {
	group, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}
	if err := s.resolver.RequireGroup(ctx, p, id); err != nil {
		return nil, err
	}
	return group, nil
}

// GetByIDWithMembers retrieves a group with all its members
func (s *Service) GetByIDWithMembers(ctx context.Context, p access.Principal, id int64) (*Group, []*Member, error) {
	group, err := s.GetByID(ctx, p, id)
	if err != nil {
		return nil, nil, err
	}

	members, err := s.repo.ListMembers(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return group, members, nil
}

// List retrieves the groups visible to the principal
func (s *Service) List(ctx context.Context, p access.Principal, page, perPage int) ([]*Group, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.List(ctx, s.resolver.Scope(p), perPage, offset)
}

// Update applies a partial update; fields absent from req are left unchanged
func (s *Service) Update(ctx context.Context, p access.Principal, id int64, req *UpdateGroupRequest) (*Group, error) {
	if _, err := s.GetByID(ctx, p, id); err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		req.Name = &name
	}
	if req.Color != nil && !colorPattern.MatchString(*req.Color) {
		return nil, ErrInvalidColor
	}

	group, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}
	return group, nil
}

// Delete removes a group together with its residents and protocols
func (s *Service) Delete(ctx context.Context, id int64) error {
	group, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if group == nil {
		return ErrGroupNotFound
	}

	if _, err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if group.HasTemplate() {
		s.removeFile(ctx, *group.PDFTemplateKey)
	}
	return nil
}

// UploadTemplate replaces the group's letterhead PDF
func (s *Service) UploadTemplate(ctx context.Context, p access.Principal, id int64, filename string, data io.Reader) (*Group, error) {
	group, err := s.GetByID(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := blob.ValidatePDFExt(filename); err != nil {
		return nil, err
	}

	key := blob.NewKey(fmt.Sprintf("groups/%d/templates", id), filename)
	if _, err := s.files.Put(ctx, key, data, blob.PutOptions{ContentType: "application/pdf"}); err != nil {
		return nil, fmt.Errorf("failed to store pdf template: %w", err)
	}
	if err := s.repo.SetTemplateKey(ctx, id, &key); err != nil {
		s.removeFile(ctx, key)
		return nil, err
	}
	if group.HasTemplate() {
		s.removeFile(ctx, *group.PDFTemplateKey)
	}

	group.PDFTemplateKey = &key
	s.logger.Info("pdf template uploaded", zap.Int64("group_id", id), zap.String("key", key))
	return group, nil
}

// Template returns the stored letterhead of a group the principal may see
func (s *Service) Template(ctx context.Context, p access.Principal, id int64) ([]byte, error) {
	group, err := s.GetByID(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !group.HasTemplate() {
		return nil, ErrTemplateNotFound
	}
	data, _, err := blob.ReadAll(ctx, s.files, *group.PDFTemplateKey)
	if err != nil {
		if errors.Is(err, blob.ErrFileMissing) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return data, nil
}

// TemplateURL returns the public URL of the letterhead, or nil when none is set
func (s *Service) TemplateURL(ctx context.Context, group *Group) *string {
	if !group.HasTemplate() {
		return nil
	}
	url, err := s.files.URL(ctx, *group.PDFTemplateKey)
	if err != nil {
		s.logger.Warn("failed to build template url", zap.Int64("group_id", group.ID), zap.Error(err))
		return nil
	}
	return &url
}

// LoadTemplate returns the letterhead bytes for an export. A group without a
// usable template yields nil so the export proceeds without letterhead.
func (s *Service) LoadTemplate(ctx context.Context, group *Group) []byte {
	if !group.HasTemplate() {
		return nil
	}
	data, _, err := blob.ReadAll(ctx, s.files, *group.PDFTemplateKey)
	if err != nil {
		s.logger.Warn("pdf template unavailable, exporting without letterhead",
			zap.Int64("group_id", group.ID),
			zap.Error(err),
		)
		return nil
	}
	return data
}

// AddMember adds a user to a group. Existing memberships are returned unchanged.
func (s *Service) AddMember(ctx context.Context, userID, groupID int64) (*Member, error) {
	group, err := s.repo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}

	member, err := s.repo.AddMember(ctx, groupID, userID)
	if err != nil {
		if database.IsCode(err, database.CodeForeignKeyViolation) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	member.GroupName = group.Name
	return member, nil
}

// Memberships lists the groups a user belongs to
func (s *Service) Memberships(ctx context.Context, userID int64) ([]*Member, error) {
	return s.repo.ListByUser(ctx, userID)
}

// RemoveMember removes a user from a group. Presence rows of existing
// protocols are kept.
func (s *Service) RemoveMember(ctx context.Context, userID, groupID int64) error {
	ok, err := s.repo.RemoveMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMemberNotFound
	}
	return nil
}

func (s *Service) removeFile(ctx context.Context, key string) {
	if _, err := s.files.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete file", zap.String("key", key), zap.Error(err))
	}
}
