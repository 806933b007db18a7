package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/hr-assessment-service/internal/models"
	"github.com/SAP-F-2025/hr-assessment-service/internal/repositories"
)

// ErrDirectoryUnavailable is returned by SyncDirectory when no identity
// directory is configured
var ErrDirectoryUnavailable = errors.New("identity directory not configured")

type userService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewUserService(repo repositories.Repository, logger *slog.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

// SyncProfile mirrors an identity provider profile into the local users and
// departments tables
func (s *userService) SyncProfile(ctx context.Context, profile *repositories.IdentityProfile) (*models.User, error) {
	if profile == nil || profile.UserID == "" {
		return nil, NewValidationError("user_id", "is required", nil)
	}

	role := models.UserRole(profile.Role)
	if profile.IsAdmin {
		role = models.RoleAdmin
	}
	if !role.IsValid() {
		role = models.RoleEmployee
	}

	user := &models.User{
		ID:       profile.UserID,
		FullName: profile.FullName,
		Email:    profile.Email,
		Role:     role,
	}
	if user.FullName == "" {
		user.FullName = profile.UserID
	}

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if profile.DepartmentCode != "" {
			department, err := tx.Department().EnsureByCode(ctx, nil, profile.DepartmentCode, profile.DepartmentName)
			if err != nil {
				return err
			}
			user.DepartmentID = &department.ID
			user.Department = department
		}
		return tx.User().Upsert(ctx, nil, user)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sync user %s: %w", profile.UserID, err)
	}
	return user, nil
}

// SyncDirectory mirrors every directory user and returns how many were synced.
// A single failing user does not stop the run.
func (s *userService) SyncDirectory(ctx context.Context) (int, error) {
	directory := s.repo.Directory()
	if directory == nil {
		return 0, ErrDirectoryUnavailable
	}

	profiles, err := directory.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list directory users: %w", err)
	}

	synced := 0
	for _, profile := range profiles {
		if _, err := s.SyncProfile(ctx, profile); err != nil {
			s.logger.Warn("Skipping directory user", "user_id", profile.UserID, "error", err)
			continue
		}
		synced++
	}

	s.logger.Info("Directory synced", "users", synced, "listed", len(profiles))
	return synced, nil
}

// GetRequester builds the caller identity from the local mirror
func (s *userService) GetRequester(ctx context.Context, userID string) (models.Requester, error) {
	user, err := s.repo.User().GetByID(ctx, nil, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return models.Requester{}, ErrUserNotFound
		}
		return models.Requester{}, fmt.Errorf("failed to get user: %w", err)
	}
	return user.Requester(), nil
}
