package resident

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fkhayef/grpprotocol/internal/access"
	"github.com/fkhayef/grpprotocol/internal/apperr"
	"github.com/fkhayef/grpprotocol/internal/blob"
	"github.com/fkhayef/grpprotocol/internal/cache"
)

// Common errors
var (
	ErrResidentNotFound = apperr.NotFound("Bewohner nicht gefunden.")
	ErrGroupNotFound    = apperr.NotFound("Gruppe nicht gefunden.")
	ErrPictureNotFound  = apperr.NotFound("Für diesen Bewohner ist kein Bild hinterlegt.")
	ErrNameRequired     = apperr.Validation("Vor- und Nachname sind Pflichtfelder.")
	ErrInvalidDate      = apperr.Validation("Ungültiges Datum, erwartet wird JJJJ-MM-TT.")
	ErrMovedOutBefore   = apperr.Validation("Das Auszugsdatum liegt vor dem Einzugsdatum.")
)

// Store is the persistence the service needs
type Store interface {
	Create(ctx context.Context, res *Resident) (*Resident, error)
	GetByID(ctx context.Context, id int64) (*Resident, error)
	List(ctx context.Context, scope access.Scope, f Filter, limit, offset int) ([]*Resident, int, error)
	ListActiveByGroup(ctx context.Context, groupID int64) ([]*Resident, error)
	Update(ctx context.Context, res *Resident) (*Resident, error)
	SetPictureKey(ctx context.Context, id int64, key *string) error
	Delete(ctx context.Context, id int64) (bool, error)
}

// Groups checks that a referenced group exists
type Groups interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// Service handles resident business logic
type Service struct {
	repo     Store
	groups   Groups
	resolver *access.Resolver
	files    blob.Store
	kv       cache.KV
	logger   *zap.Logger
}

// NewService creates a new resident service
func NewService(repo Store, groups Groups, resolver *access.Resolver, files blob.Store, kv cache.KV, logger *zap.Logger) *Service {
	return &Service{repo: repo, groups: groups, resolver: resolver, files: files, kv: kv, logger: logger}
}

// requireGroup checks existence before membership
func (s *Service) requireGroup(ctx context.Context, p access.Principal, groupID int64) error {
	ok, err := s.groups.Exists(ctx, groupID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrGroupNotFound
	}
	return s.resolver.RequireGroup(ctx, p, groupID)
}

// Create adds a resident to a group the principal can access
func (s *Service) Create(ctx context.Context, p access.Principal, req *CreateResidentRequest) (*Resident, error) {
	if err := s.requireGroup(ctx, p, req.GroupID); err != nil {
		return nil, err
	}

	res := &Resident{
		GroupID:   req.GroupID,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
	}
	movedIn, err := parseDate(req.MovedIn)
	if err != nil {
		return nil, err
	}
	res.MovedIn = movedIn
	if req.MovedOut != nil && *req.MovedOut != "" {
		out, err := parseDate(*req.MovedOut)
		if err != nil {
			return nil, err
		}
		res.MovedOut = &out
	}
	if err := validate(res); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, res)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, created.GroupID)
	return created, nil
}

// GetByID retrieves a resident the principal may see
func (s *Service) GetByID(ctx context.Context, p access.Principal, id int64) (*Resident, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrResidentNotFound
	}
	if err := s.resolver.RequireGroup(ctx, p, res.GroupID); err != nil {
		return nil, err
	}
	return res, nil
}

// List retrieves the residents visible to the principal
func (s *Service) List(ctx context.Context, p access.Principal, f Filter, page, perPage int) ([]*Resident, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.List(ctx, s.resolver.Scope(p), f, perPage, offset)
}

// ListActiveByGroup returns the residents currently living in a group. Callers
// check access to the group.
func (s *Service) ListActiveByGroup(ctx context.Context, groupID int64) ([]*Resident, error) {
	return s.repo.ListActiveByGroup(ctx, groupID)
}

// Update changes the given fields. Moving a resident to another group needs
// access to both groups.
func (s *Service) Update(ctx context.Context, p access.Principal, id int64, req *UpdateResidentRequest) (*Resident, error) {
	res, err := s.GetByID(ctx, p, id)
	if err != nil {
		return nil, err
	}
	oldGroup := res.GroupID

	if req.GroupID != nil && *req.GroupID != res.GroupID {
		if err := s.requireGroup(ctx, p, *req.GroupID); err != nil {
			return nil, err
		}
		res.GroupID = *req.GroupID
	}
	if req.FirstName != nil {
		res.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		res.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.MovedIn != nil {
		movedIn, err := parseDate(*req.MovedIn)
		if err != nil {
			return nil, err
		}
		res.MovedIn = movedIn
	}
	if req.MovedOut != nil {
		if *req.MovedOut == "" {
			res.MovedOut = nil
		} else {
			out, err := parseDate(*req.MovedOut)
			if err != nil {
				return nil, err
			}
			res.MovedOut = &out
		}
	}
	if err := validate(res); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, res)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrResidentNotFound
	}
	s.invalidate(ctx, oldGroup, updated.GroupID)
	return updated, nil
}

// Delete removes a resident and its picture
func (s *Service) Delete(ctx context.Context, p access.Principal, id int64) error {
	res, err := s.GetByID(ctx, p, id)
	if err != nil {
		return err
	}

	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrResidentNotFound
	}
	if res.PictureKey != nil {
		s.removeFile(ctx, *res.PictureKey)
	}
	s.invalidate(ctx, res.GroupID)
	return nil
}

// UploadPicture replaces the resident's picture
func (s *Service) UploadPicture(ctx context.Context, p access.Principal, id int64, filename string, data io.Reader) (*Resident, error) {
	res, err := s.GetByID(ctx, p, id)
	if err != nil {
		return nil, err
	}
	contentType, err := blob.ValidateImageExt(filename)
	if err != nil {
		return nil, err
	}

	key := blob.NewKey(fmt.Sprintf("residents/%d", id), filename)
	if _, err := s.files.Put(ctx, key, data, blob.PutOptions{ContentType: contentType}); err != nil {
		return nil, fmt.Errorf("failed to store picture: %w", err)
	}
	if err := s.repo.SetPictureKey(ctx, id, &key); err != nil {
		s.removeFile(ctx, key)
		return nil, err
	}
	if res.PictureKey != nil {
		s.removeFile(ctx, *res.PictureKey)
	}

	res.PictureKey = &key
	return res, nil
}

// Picture returns the stored picture and its content type
func (s *Service) Picture(ctx context.Context, p access.Principal, id int64) ([]byte, string, error) {
	res, err := s.GetByID(ctx, p, id)
	if err != nil {
		return nil, "", err
	}
	if res.PictureKey == nil {
		return nil, "", ErrPictureNotFound
	}
	data, info, err := blob.ReadAll(ctx, s.files, *res.PictureKey)
	if err != nil {
		if errors.Is(err, blob.ErrFileMissing) {
			return nil, "", ErrPictureNotFound
		}
		return nil, "", err
	}
	return data, info.ContentType, nil
}

// PictureURL returns the public URL of the picture, or nil when none is set
func (s *Service) PictureURL(ctx context.Context, res *Resident) *string {
	if res.PictureKey == nil {
		return nil
	}
	url, err := s.files.URL(ctx, *res.PictureKey)
	if err != nil {
		s.logger.Warn("failed to build picture url", zap.Int64("resident_id", res.ID), zap.Error(err))
		return nil
	}
	return &url
}

// invalidate drops cached mention suggestions of the given groups
func (s *Service) invalidate(ctx context.Context, groupIDs ...int64) {
	keys := make([]string, 0, len(groupIDs))
	for _, id := range groupIDs {
		keys = append(keys, cache.MentionKey(id))
	}
	if err := s.kv.Delete(ctx, keys...); err != nil {
		s.logger.Warn("failed to invalidate mention cache", zap.Int64s("group_ids", groupIDs), zap.Error(err))
	}
}

func (s *Service) removeFile(ctx context.Context, key string) {
	if _, err := s.files.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete file", zap.String("key", key), zap.Error(err))
	}
}

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

func validate(res *Resident) error {
	if res.FirstName == "" || res.LastName == "" {
		return ErrNameRequired
	}
	if res.MovedOut != nil && res.MovedOut.Before(res.MovedIn) {
		return ErrMovedOutBefore
	}
	return nil
}
