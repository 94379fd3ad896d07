package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newsroom-tools/codex-api/internal/dto"
	"github.com/newsroom-tools/codex-api/internal/models"
	appErrors "github.com/newsroom-tools/codex-api/pkg/errors"
	"github.com/newsroom-tools/codex-api/pkg/storage"
)

type itemStore interface {
	Insert(ctx context.Context, item *models.CodexItem) error
	GetByID(ctx context.Context, id string) (*models.CodexItem, error)
	ListByOwner(ctx context.Context, ownerID string, filter models.ItemFilter) ([]models.CodexItem, error)
	UpdateMeta(ctx context.Context, id string, title, description *string, tags *[]string) error
	Delete(ctx context.Context, id string) error
}

type itemFileStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type itemSignedURLSigner interface {
	Generate(itemID, ownerID, relPath string) (string, time.Time, error)
	Parse(token string) (*storage.DownloadClaim, error)
}

// ItemUpload carries upload metadata and a stream reader.
type ItemUpload struct {
	Filename string
	Size     int64
	MimeType string
	Content  io.ReadSeeker
}

// ItemDownload bundles a file reader with metadata for streaming.
type ItemDownload struct {
	File      *os.File
	Filename  string
	MimeType  string
	SizeBytes int64
	ExpiresAt time.Time
}

// ItemServiceConfig holds validation parameters for uploads and listings.
type ItemServiceConfig struct {
	MaxFileSize     int64
	AllowedMIMEs    []string
	APIPrefix       string
	MaxListPageSize int
}

// ItemService manages codex item metadata and storage IO. Group structure on
// top of items is owned by GroupService/GroupViewService; the one rule this
// service enforces about groups is that a parent cannot be deleted here.
type ItemService struct {
	repo    itemStore
	storage itemFileStorage
	signer  itemSignedURLSigner
	cache   *CacheService
	logger  *zap.Logger
	cfg     ItemServiceConfig
	mimeSet map[string]struct{}
}

// NewItemService constructs the service with defaults.
func NewItemService(repo itemStore, storage itemFileStorage, signer itemSignedURLSigner, cache *CacheService, logger *zap.Logger, cfg ItemServiceConfig) *ItemService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 200 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{
			"application/pdf",
			"audio/mpeg",
			"audio/mp4",
			"audio/wav",
			"video/mp4",
			"video/quicktime",
		}
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	if cfg.MaxListPageSize <= 0 {
		cfg.MaxListPageSize = 200
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(mt)] = struct{}{}
	}
	return &ItemService{
		repo:    repo,
		storage: storage,
		signer:  signer,
		cache:   cache,
		logger:  logger,
		cfg:     cfg,
		mimeSet: mimeSet,
	}
}

// Create adds a link or note item from a JSON payload. File-backed kinds go
// through Upload.
func (s *ItemService) Create(ctx context.Context, ownerID string, req dto.CreateItemRequest) (*models.CodexItem, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title is required")
	}
	switch req.Kind {
	case models.ItemKindLink:
		if req.URL == nil || strings.TrimSpace(*req.URL) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "url is required for link items")
		}
	case models.ItemKindNote:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "only link and note items can be created without a file")
	}

	item := &models.CodexItem{
		OwnerID:     ownerID,
		Kind:        req.Kind,
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		URL:         req.URL,
	}
	if err := s.repo.Insert(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create item")
	}
	s.invalidateViews(ctx, ownerID)
	return item, nil
}

// Upload persists metadata and the physical file for a new file-backed item.
func (s *ItemService) Upload(ctx context.Context, ownerID string, meta dto.UploadItemRequest, upload ItemUpload) (*models.CodexItem, error) {
	if strings.TrimSpace(meta.Title) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title is required")
	}
	switch meta.Kind {
	case models.ItemKindDocument, models.ItemKindAudio, models.ItemKindVideo:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "kind must be document, audio or video for uploads")
	}
	if upload.Content == nil || upload.Size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	mimeType, err := s.detectMime(upload)
	if err != nil {
		return nil, err
	}
	if _, allowed := s.mimeSet[strings.ToLower(mimeType)]; !allowed {
		return nil, appErrors.Clone(appErrors.ErrValidation, "mime type not allowed")
	}

	filename := s.generateFilename(string(meta.Kind), upload.Filename, mimeType)
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	path, err := s.storage.SaveStream(filename, upload.Content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist upload")
	}

	size := upload.Size
	item := &models.CodexItem{
		OwnerID:     ownerID,
		Kind:        meta.Kind,
		Title:       meta.Title,
		Description: meta.Description,
		Tags:        splitTags(meta.Tags),
		FilePath:    &path,
		MimeType:    &mimeType,
		SizeBytes:   &size,
	}
	if err := s.repo.Insert(ctx, item); err != nil {
		_ = s.storage.Delete(path)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create item metadata")
	}
	s.invalidateViews(ctx, ownerID)
	return item, nil
}

// List returns a page of the owner's items applying filters. The page size
// defaults to and is capped at cfg.MaxListPageSize.
func (s *ItemService) List(ctx context.Context, ownerID string, filter dto.ItemFilter) ([]models.CodexItem, error) {
	limit := filter.Limit
	if limit <= 0 || limit > s.cfg.MaxListPageSize {
		limit = s.cfg.MaxListPageSize
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	items, err := s.repo.ListByOwner(ctx, ownerID, models.ItemFilter{
		Kind:   filter.Kind,
		Tag:    filter.Tag,
		Search: filter.Search,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list items")
	}
	return items, nil
}

// Get returns one item, treating other owners' items as missing.
func (s *ItemService) Get(ctx context.Context, ownerID, id string) (*models.CodexItem, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load item")
	}
	if item.OwnerID != ownerID {
		return nil, appErrors.ErrNotFound
	}
	return item, nil
}

// Update patches free-form item metadata.
func (s *ItemService) Update(ctx context.Context, ownerID, id string, patch dto.UpdateItemRequest) (*models.CodexItem, error) {
	if patch.Title == nil && patch.Description == nil && patch.Tags == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "nothing to update")
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title cannot be empty")
	}

	item, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateMeta(ctx, item.ID, patch.Title, patch.Description, patch.Tags); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update item")
	}
	s.invalidateViews(ctx, ownerID)

	if patch.Title != nil {
		item.Title = *patch.Title
	}
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.Tags != nil {
		item.Tags = *patch.Tags
	}
	return item, nil
}

// Delete removes an item and its stored file. Group parents are refused:
// dissolving a group must go through GroupService.DeleteGroup so children
// are detached first. Deleting a child never affects its siblings.
func (s *ItemService) Delete(ctx context.Context, ownerID, id string) error {
	item, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if item.IsGroupParent {
		return appErrors.Clone(appErrors.ErrConflict, "item anchors a group; delete the group instead")
	}

	if err := s.repo.Delete(ctx, item.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete item")
	}
	if item.FilePath != nil {
		if err := s.storage.Delete(*item.FilePath); err != nil {
			s.logger.Warn("failed to remove stored file", zap.String("path", *item.FilePath), zap.Error(err))
		}
	}
	s.invalidateViews(ctx, ownerID)
	return nil
}

// GetDownloadURL generates a signed URL for downloading the item's file.
func (s *ItemService) GetDownloadURL(ctx context.Context, ownerID, id string) (string, error) {
	if s.signer == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "download signer unavailable")
	}
	item, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return "", err
	}
	if item.FilePath == nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "item has no stored file")
	}
	token, _, err := s.signer.Generate(item.ID, item.OwnerID, *item.FilePath)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate download token")
	}
	base := strings.TrimRight(s.cfg.APIPrefix, "/")
	return fmt.Sprintf("%s/codex/items/%s/download?token=%s", base, item.ID, token), nil
}

// Download validates the token and opens the item's file for streaming.
func (s *ItemService) Download(ctx context.Context, ownerID, id, token string) (*ItemDownload, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "download signer unavailable")
	}
	item, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if item.FilePath == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "item has no stored file")
	}
	claim, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired token")
	}
	if claim.ItemID != item.ID || claim.OwnerID != item.OwnerID || claim.RelPath != *item.FilePath {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := s.storage.Open(claim.RelPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open stored file")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close() //nolint:errcheck
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read file metadata")
	}
	mimeType := "application/octet-stream"
	if item.MimeType != nil {
		mimeType = *item.MimeType
	}
	return &ItemDownload{
		File:      file,
		Filename:  filepath.Base(claim.RelPath),
		MimeType:  mimeType,
		SizeBytes: info.Size(),
		ExpiresAt: claim.ExpiresAt,
	}, nil
}

func (s *ItemService) detectMime(upload ItemUpload) (string, error) {
	if upload.Content == nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "file reader missing")
	}
	if upload.MimeType != "" {
		return upload.MimeType, nil
	}
	header := make([]byte, 512)
	n, err := upload.Content.Read(header)
	if err != nil && err != io.EOF {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect file")
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	if n == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "empty file")
	}
	return http.DetectContentType(header[:n]), nil
}

func (s *ItemService) generateFilename(kind, original, mimeType string) string {
	kind = sanitize(kind)
	ext := strings.ToLower(filepath.Ext(original))
	if ext == "" {
		ext = mimeExtension(mimeType)
	}
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("codex_%s_%d_%s%s", kind, time.Now().Unix(), randomSuffix(), ext)
}

func (s *ItemService) invalidateViews(ctx context.Context, ownerID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, viewCachePattern(ownerID)); err != nil {
		s.logger.Warn("failed to invalidate view cache", zap.String("owner_id", ownerID), zap.Error(err))
	}
}

func sanitize(raw string) string {
	raw = strings.ToLower(raw)
	var b strings.Builder
	for _, r := range raw {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

func mimeExtension(mime string) string {
	switch strings.ToLower(mime) {
	case "application/pdf":
		return ".pdf"
	case "audio/mpeg":
		return ".mp3"
	case "audio/mp4":
		return ".m4a"
	case "audio/wav":
		return ".wav"
	case "video/mp4":
		return ".mp4"
	case "video/quicktime":
		return ".mov"
	default:
		return ""
	}
}

func randomSuffix() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}
