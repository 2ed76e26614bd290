package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/pkg/cache"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
)

type categoryRepository interface {
	List(ctx context.Context) ([]models.AppointmentCategory, error)
	FindByID(ctx context.Context, id string) (*models.AppointmentCategory, error)
	Create(ctx context.Context, category *models.AppointmentCategory) error
}

var categoriesCacheKey = cache.Key("categories", "all")

// CategoryService serves appointment categories, which are read on every scheduling write.
type CategoryService struct {
	repo      categoryRepository
	cache     *CacheService
	ttl       time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCategoryService constructs a CategoryService.
func NewCategoryService(repo categoryRepository, cacheSvc *CacheService, ttl time.Duration, validate *validator.Validate, logger *zap.Logger) *CategoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CategoryService{repo: repo, cache: cacheSvc, ttl: ttl, validator: validate, logger: logger}
}

// List returns all categories, from cache when possible.
func (s *CategoryService) List(ctx context.Context) ([]models.AppointmentCategory, error) {
	var cached []models.AppointmentCategory
	if s.cache.Get(ctx, categoriesCacheKey, &cached) {
		return cached, nil
	}
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}
	s.cache.Set(ctx, categoriesCacheKey, list, s.ttl)
	return list, nil
}

// Get returns one category.
func (s *CategoryService) Get(ctx context.Context, id string) (*models.AppointmentCategory, error) {
	var cached []models.AppointmentCategory
	if s.cache.Get(ctx, categoriesCacheKey, &cached) {
		for i := range cached {
			if cached[i].ID == id {
				return &cached[i], nil
			}
		}
	}
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category")
	}
	return category, nil
}

// Create validates and stores a new category.
func (s *CategoryService) Create(ctx context.Context, req models.CreateCategoryRequest) (*models.AppointmentCategory, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}
	category := &models.AppointmentCategory{Name: req.Name, LessonMinutes: req.LessonMinutes, BufferMinutes: req.BufferMinutes}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create category")
	}
	s.cache.Invalidate(ctx, categoriesCacheKey)
	s.logger.Info("category created", zap.String("category_id", category.ID), zap.Int("total_minutes", category.TotalMinutes()))
	return category, nil
}
