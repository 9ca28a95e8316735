package protocol

import (
	"bytes"
	"context"
	"encoding/json"
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
	"github.com/fkhayef/grpprotocol/internal/database"
	"github.com/fkhayef/grpprotocol/internal/export"
	"github.com/fkhayef/grpprotocol/internal/group"
	"github.com/fkhayef/grpprotocol/internal/mention"
	"github.com/fkhayef/grpprotocol/internal/metrics"
	"github.com/fkhayef/grpprotocol/internal/resident"
)

// Common errors
var (
	ErrProtocolNotFound     = apperr.NotFound("Protokoll nicht gefunden.")
	ErrItemNotFound         = apperr.NotFound("Protokollpunkt nicht gefunden.")
	ErrTodoNotFound         = apperr.NotFound("Aufgabe nicht gefunden.")
	ErrExportedFileNotFound = apperr.NotFound("Für dieses Protokoll liegt noch keine exportierte Datei vor.")
	ErrInvalidDate          = apperr.Validation("Ungültiges Datum, erwartet wird JJJJ-MM-TT.")
	ErrItemNameRequired     = apperr.Validation("Der Name des Protokollpunkts darf nicht leer sein.")
	ErrTodoWasRequired      = apperr.Validation("Die Aufgabe braucht eine Beschreibung.")
	ErrUnknownUser          = apperr.Validation("Der Benutzer existiert nicht.")
	ErrInvalidStatus        = apperr.Validation("Unbekannter Status.")
)

// Store is the persistence the service needs
type Store interface {
	Create(ctx context.Context, groupID int64, date time.Time) (*Protocol, error)
	GetByID(ctx context.Context, id int64) (*Protocol, error)
	List(ctx context.Context, scope access.Scope, f Filter, limit, offset int) ([]*Protocol, int, error)
	Update(ctx context.Context, id int64, date *time.Time, status *Status) (*Protocol, error)
	MarkExported(ctx context.Context, id int64, key string) (*Protocol, error)
	Delete(ctx context.Context, id int64) (bool, error)

	ListItems(ctx context.Context, protocolID int64) ([]*Item, error)
	UpsertItem(ctx context.Context, item *Item) (*Item, bool, error)
	DeleteItem(ctx context.Context, protocolID, itemID int64) (bool, error)

	ListTodos(ctx context.Context, protocolID int64) ([]*Todo, error)
	GetTodo(ctx context.Context, protocolID, todoID int64) (*Todo, error)
	CreateTodo(ctx context.Context, t *Todo) (*Todo, error)
	UpdateTodo(ctx context.Context, t *Todo) (*Todo, error)
	DeleteTodo(ctx context.Context, protocolID, todoID int64) (bool, error)

	ListPresences(ctx context.Context, protocolID int64) ([]*Presence, error)
	UpsertPresence(ctx context.Context, protocolID, userID int64, wasPresent bool) (*Presence, bool, error)
}

// Groups resolves the owning group of a protocol
type Groups interface {
	GetByID(ctx context.Context, p access.Principal, id int64) (*group.Group, error)
	LoadTemplate(ctx context.Context, g *group.Group) []byte
}

// Residents lists the mention candidates of a group
type Residents interface {
	ListActiveByGroup(ctx context.Context, groupID int64) ([]*resident.Resident, error)
}

// Deps are the collaborators of the protocol service
type Deps struct {
	Groups     Groups
	Residents  Residents
	Resolver   *access.Resolver
	Files      blob.Store
	Cache      cache.KV
	MentionTTL time.Duration
	Pipeline   *export.Pipeline
	Metrics    *metrics.Recorder
	Logger     *zap.Logger
}

// Service handles protocol business logic
type Service struct {
	repo       Store
	groups     Groups
	residents  Residents
	resolver   *access.Resolver
	files      blob.Store
	kv         cache.KV
	mentionTTL time.Duration
	pipeline   *export.Pipeline
	metrics    *metrics.Recorder
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates a new protocol service. A nil Cache disables caching.
func NewService(repo Store, deps Deps) *Service {
	kv := deps.Cache
	if kv == nil {
		kv = cache.Nop{}
	}
	return &Service{
		repo:       repo,
		groups:     deps.Groups,
		residents:  deps.Residents,
		resolver:   deps.Resolver,
		files:      deps.Files,
		kv:         kv,
		mentionTTL: deps.MentionTTL,
		pipeline:   deps.Pipeline,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        time.Now,
	}
}

// Create adds a protocol to a group and snapshots the group's members as
// presence rows.
func (s *Service) Create(ctx context.Context, p access.Principal, req *CreateProtocolRequest) (*Protocol, error) {
	if _, err := s.groups.GetByID(ctx, p, req.GroupID); err != nil {
		return nil, err
	}
	date, err := parseDate(req.ProtocolDate)
	if err != nil {
		return nil, err
	}

	protocol, err := s.repo.Create(ctx, req.GroupID, date)
	if err != nil {
		return nil, err
	}
	s.logger.Info("protocol created",
		zap.Int64("protocol_id", protocol.ID),
		zap.Int64("group_id", protocol.GroupID),
		zap.Int64("user_id", p.UserID),
	)
	return protocol, nil
}

// load fetches a protocol and checks that p may access it
func (s *Service) load(ctx context.Context, p access.Principal, id int64) (*Protocol, error) {
	protocol, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if protocol == nil {
		return nil, ErrProtocolNotFound
	}
	if err := s.resolver.RequireGroup(ctx, p, protocol.GroupID); err != nil {
		return nil, err
	}
	return protocol, nil
}

// loadMutable is load followed by the lifecycle guard. target labels the
// rejected mutation in metrics and logs.
func (s *Service) loadMutable(ctx context.Context, p access.Principal, id int64, target string) (*Protocol, error) {
	protocol, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := AssertMutable(protocol); err != nil {
		s.metrics.LockRejected(target)
		s.logger.Info("mutation rejected on exported protocol",
			zap.Int64("protocol_id", id),
			zap.String("target", target),
			zap.Int64("user_id", p.UserID),
		)
		return nil, err
	}
	return protocol, nil
}

// GetByID retrieves a protocol with its items
func (s *Service) GetByID(ctx context.Context, p access.Principal, id int64) (*Protocol, error) {
	protocol, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, id)
	if err != nil {
		return nil, err
	}
	protocol.Items = items
	return protocol, nil
}

// List retrieves the protocols visible to the principal
func (s *Service) List(ctx context.Context, p access.Principal, f Filter, page, perPage int) ([]*Protocol, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	if f.Status != nil && !f.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}

	offset := (page - 1) * perPage
	return s.repo.List(ctx, s.resolver.Scope(p), f, perPage, offset)
}

// Update changes the protocol date or moves it between draft and ready
func (s *Service) Update(ctx context.Context, p access.Principal, id int64, req *UpdateProtocolRequest) (*Protocol, error) {
	protocol, err := s.loadMutable(ctx, p, id, "protocol")
	if err != nil {
		return nil, err
	}

	var date *time.Time
	if req.ProtocolDate != nil {
		d, err := parseDate(*req.ProtocolDate)
		if err != nil {
			return nil, err
		}
		date = &d
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		if !CanTransition(protocol.Status, *req.Status, TriggerEdit) {
			return nil, ErrInvalidTransition
		}
	}

	updated, err := s.repo.Update(ctx, id, date, req.Status)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrProtocolNotFound
	}
	return updated, nil
}

// Delete removes a protocol that has not been exported
func (s *Service) Delete(ctx context.Context, p access.Principal, id int64) error {
	if _, err := s.loadMutable(ctx, p, id, "protocol"); err != nil {
		return err
	}

	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrProtocolNotFound
	}
	return nil
}

// UpsertItem updates the item named by req.ID or creates a new one. The bool
// reports whether an item was created.
func (s *Service) UpsertItem(ctx context.Context, p access.Principal, id int64, req *UpsertItemRequest) (*Item, bool, error) {
	if _, err := s.loadMutable(ctx, p, id, "item"); err != nil {
		return nil, false, err
	}

	item := &Item{
		ProtocolID: id,
		Name:       strings.TrimSpace(req.Name),
		Position:   req.Position,
		Value:      req.Value,
	}
	if item.Name == "" {
		return nil, false, ErrItemNameRequired
	}
	if req.ID != nil {
		item.ID = *req.ID
	}

	return s.repo.UpsertItem(ctx, item)
}

// DeleteItem removes one item of a protocol
func (s *Service) DeleteItem(ctx context.Context, p access.Principal, id, itemID int64) error {
	if _, err := s.loadMutable(ctx, p, id, "item"); err != nil {
		return err
	}

	ok, err := s.repo.DeleteItem(ctx, id, itemID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrItemNotFound
	}
	return nil
}

// Todos lists the to-dos of a protocol
func (s *Service) Todos(ctx context.Context, p access.Principal, id int64) ([]*Todo, error) {
	if _, err := s.load(ctx, p, id); err != nil {
		return nil, err
	}
	return s.repo.ListTodos(ctx, id)
}

// CreateTodo adds a to-do to a protocol
func (s *Service) CreateTodo(ctx context.Context, p access.Principal, id int64, req *CreateTodoRequest) (*Todo, error) {
	if _, err := s.loadMutable(ctx, p, id, "todo"); err != nil {
		return nil, err
	}

	t := &Todo{
		ProtocolID: id,
		Was:        strings.TrimSpace(req.Was),
		Wer:        strings.TrimSpace(req.Wer),
		Wann:       strings.TrimSpace(req.Wann),
		Position:   req.Position,
	}
	if t.Was == "" {
		return nil, ErrTodoWasRequired
	}
	return s.repo.CreateTodo(ctx, t)
}

// UpdateTodo changes the given fields of a to-do
func (s *Service) UpdateTodo(ctx context.Context, p access.Principal, id, todoID int64, req *UpdateTodoRequest) (*Todo, error) {
	if _, err := s.loadMutable(ctx, p, id, "todo"); err != nil {
		return nil, err
	}

	t, err := s.repo.GetTodo(ctx, id, todoID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTodoNotFound
	}
	if req.Was != nil {
		t.Was = strings.TrimSpace(*req.Was)
	}
	if req.Wer != nil {
		t.Wer = strings.TrimSpace(*req.Wer)
	}
	if req.Wann != nil {
		t.Wann = strings.TrimSpace(*req.Wann)
	}
	if req.Position != nil {
		t.Position = *req.Position
	}
	if t.Was == "" {
		return nil, ErrTodoWasRequired
	}

	updated, err := s.repo.UpdateTodo(ctx, t)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrTodoNotFound
	}
	return updated, nil
}

// DeleteTodo removes a to-do
func (s *Service) DeleteTodo(ctx context.Context, p access.Principal, id, todoID int64) error {
	if _, err := s.loadMutable(ctx, p, id, "todo"); err != nil {
		return err
	}

	ok, err := s.repo.DeleteTodo(ctx, id, todoID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTodoNotFound
	}
	return nil
}

// Presences lists the attendance rows of a protocol
func (s *Service) Presences(ctx context.Context, p access.Principal, id int64) ([]*Presence, error) {
	if _, err := s.load(ctx, p, id); err != nil {
		return nil, err
	}
	return s.repo.ListPresences(ctx, id)
}

// UpdatePresence sets the attendance of one user. Repeating the call with the
// same payload leaves a single row and reports created=false.
func (s *Service) UpdatePresence(ctx context.Context, p access.Principal, id int64, req *UpdatePresenceRequest) (*Presence, bool, error) {
	if _, err := s.loadMutable(ctx, p, id, "presence"); err != nil {
		return nil, false, err
	}
	if req.UserID <= 0 {
		return nil, false, ErrUnknownUser
	}

	presence, created, err := s.repo.UpsertPresence(ctx, id, req.UserID, req.WasPresent)
	if err != nil {
		if database.IsCode(err, database.CodeForeignKeyViolation) {
			return nil, false, ErrUnknownUser
		}
		return nil, false, err
	}
	return presence, created, nil
}

// Mentions returns the active residents of the protocol's group as mention
// suggestions. Results are cached per group until a resident changes.
func (s *Service) Mentions(ctx context.Context, p access.Principal, id int64) ([]Suggestion, error) {
	protocol, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}

	key := cache.MentionKey(protocol.GroupID)
	if raw, err := s.kv.Get(ctx, key); err == nil {
		var cached []Suggestion
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return cached, nil
		}
		s.logger.Warn("discarding malformed mention cache entry", zap.String("key", key))
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("mention cache unavailable", zap.Error(err))
	}

	residents, err := s.residents.ListActiveByGroup(ctx, protocol.GroupID)
	if err != nil {
		return nil, err
	}
	suggestions := make([]Suggestion, len(residents))
	for i, r := range residents {
		token := mention.Token(r.FirstName, r.LastName)
		suggestions[i] = Suggestion{ID: r.ID, Token: token, Display: mention.Display(token)}
	}

	if raw, err := json.Marshal(suggestions); err == nil {
		if err := s.kv.Set(ctx, key, string(raw), s.mentionTTL); err != nil {
			s.logger.Warn("failed to cache mentions", zap.String("key", key), zap.Error(err))
		}
	}
	return suggestions, nil
}

// source collects everything the export pipeline needs
func (s *Service) source(ctx context.Context, p access.Principal, protocol *Protocol) (export.Source, *group.Group, error) {
	g, err := s.groups.GetByID(ctx, p, protocol.GroupID)
	if err != nil {
		return export.Source{}, nil, err
	}
	presences, err := s.repo.ListPresences(ctx, protocol.ID)
	if err != nil {
		return export.Source{}, nil, err
	}
	items, err := s.repo.ListItems(ctx, protocol.ID)
	if err != nil {
		return export.Source{}, nil, err
	}

	src := export.Source{
		GroupName:    g.Name,
		GroupAddress: g.FullAddress(),
		ProtocolDate: protocol.ProtocolDate,
		GeneratedAt:  s.now(),
		Attendees:    make([]export.Attendee, len(presences)),
		Items:        make([]export.Item, len(items)),
	}
	for i, pr := range presences {
		src.Attendees[i] = export.Attendee{Name: pr.DisplayName(), Present: pr.WasPresent}
	}
	for i, item := range items {
		src.Items[i] = export.Item{Name: item.Name}
		if item.Value != nil {
			src.Items[i].Value = *item.Value
		}
	}
	return src, g, nil
}

// Preview renders the protocol as PDF without storing it or changing its status
func (s *Service) Preview(ctx context.Context, p access.Principal, id int64) ([]byte, string, error) {
	started := time.Now()
	protocol, err := s.load(ctx, p, id)
	if err != nil {
		return nil, "", err
	}
	src, g, err := s.source(ctx, p, protocol)
	if err != nil {
		return nil, "", err
	}

	data, err := s.pipeline.Export(ctx, src, s.groups.LoadTemplate(ctx, g))
	s.metrics.ObserveExport("preview", started, err)
	if err != nil {
		return nil, "", err
	}
	return data, export.Filename(protocol.ProtocolDate), nil
}

// Export renders the protocol, stores the PDF and locks the protocol.
// Exporting an already exported protocol replaces the stored file.
func (s *Service) Export(ctx context.Context, p access.Principal, id int64) (*Protocol, []byte, error) {
	started := time.Now()
	protocol, err := s.load(ctx, p, id)
	if err != nil {
		return nil, nil, err
	}
	if !CanTransition(protocol.Status, StatusExported, TriggerExport) {
		return nil, nil, ErrInvalidTransition
	}
	src, g, err := s.source(ctx, p, protocol)
	if err != nil {
		return nil, nil, err
	}

	data, err := s.pipeline.Export(ctx, src, s.groups.LoadTemplate(ctx, g))
	s.metrics.ObserveExport("export", started, err)
	if err != nil {
		return nil, nil, err
	}

	filename := export.Filename(protocol.ProtocolDate)
	exported, err := s.storeArtifact(ctx, protocol, filename, bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("protocol exported",
		zap.Int64("protocol_id", id),
		zap.Int("bytes", len(data)),
		zap.Int64("user_id", p.UserID),
	)
	return exported, data, nil
}

// UploadExportedFile stores a PDF produced elsewhere as the protocol's
// exported file. It is the only write allowed on an exported protocol.
func (s *Service) UploadExportedFile(ctx context.Context, p access.Principal, id int64, filename string, data io.Reader) (*Protocol, error) {
	protocol, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := blob.ValidatePDFExt(filename); err != nil {
		return nil, err
	}
	if !CanTransition(protocol.Status, StatusExported, TriggerUpload) {
		return nil, ErrInvalidTransition
	}
	return s.storeArtifact(ctx, protocol, export.Filename(protocol.ProtocolDate), data)
}

// storeArtifact writes the file under a fresh key, marks the protocol exported
// and removes the previous file.
func (s *Service) storeArtifact(ctx context.Context, protocol *Protocol, filename string, data io.Reader) (*Protocol, error) {
	key := blob.NewKey(fmt.Sprintf("protocols/%d", protocol.ID), filename)
	if _, err := s.files.Put(ctx, key, data, blob.PutOptions{ContentType: export.ContentTypePDF}); err != nil {
		return nil, fmt.Errorf("failed to store exported file: %w", err)
	}

	exported, err := s.repo.MarkExported(ctx, protocol.ID, key)
	if err != nil || exported == nil {
		s.removeFile(ctx, key)
		if err != nil {
			return nil, err
		}
		return nil, ErrProtocolNotFound
	}
	if protocol.ExportedFileKey != nil && *protocol.ExportedFileKey != key {
		s.removeFile(ctx, *protocol.ExportedFileKey)
	}
	return exported, nil
}

// ExportedFile returns the stored PDF of an exported protocol
func (s *Service) ExportedFile(ctx context.Context, p access.Principal, id int64) ([]byte, string, error) {
	protocol, err := s.load(ctx, p, id)
	if err != nil {
		return nil, "", err
	}
	if protocol.ExportedFileKey == nil {
		return nil, "", ErrExportedFileNotFound
	}
	data, _, err := blob.ReadAll(ctx, s.files, *protocol.ExportedFileKey)
	if err != nil {
		if errors.Is(err, blob.ErrFileMissing) {
			return nil, "", ErrExportedFileNotFound
		}
		return nil, "", err
	}
	return data, export.Filename(protocol.ProtocolDate), nil
}

// ExportedFileURL returns the public URL of the exported file, or nil
func (s *Service) ExportedFileURL(ctx context.Context, protocol *Protocol) *string {
	if protocol.ExportedFileKey == nil {
		return nil
	}
	url, err := s.files.URL(ctx, *protocol.ExportedFileKey)
	if err != nil {
		s.logger.Warn("failed to build exported file url", zap.Int64("protocol_id", protocol.ID), zap.Error(err))
		return nil
	}
	return &url
}

// TodoWorkbook renders the to-dos of a protocol as a spreadsheet
func (s *Service) TodoWorkbook(ctx context.Context, p access.Principal, id int64) ([]byte, string, error) {
	protocol, err := s.load(ctx, p, id)
	if err != nil {
		return nil, "", err
	}
	g, err := s.groups.GetByID(ctx, p, protocol.GroupID)
	if err != nil {
		return nil, "", err
	}
	todos, err := s.repo.ListTodos(ctx, id)
	if err != nil {
		return nil, "", err
	}

	rows := make([]export.TodoRow, len(todos))
	for i, t := range todos {
		rows[i] = export.TodoRow{Was: t.Was, Wer: t.Wer, Wann: t.Wann}
	}
	data, err := export.TodoWorkbook(g.Name, protocol.ProtocolDate, rows)
	if err != nil {
		return nil, "", err
	}
	return data, export.TodoFilename(protocol.ProtocolDate), nil
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
