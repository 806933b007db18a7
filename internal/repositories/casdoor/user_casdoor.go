package casdoor

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/hr-assessment-service/internal/cache"
	"github.com/SAP-F-2025/hr-assessment-service/internal/models"
	"github.com/SAP-F-2025/hr-assessment-service/internal/repositories"
)

// CasdoorConfig holds the configuration for Casdoor connection
type CasdoorConfig struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
}

const listPageSize = 100

// UserCasdoor reads the organisation directory from Casdoor
type UserCasdoor struct {
	client *casdoorsdk.Client
	cache  *cache.CacheHelper
}

func NewUserCasdoor(config CasdoorConfig, redisClient *redis.Client) *UserCasdoor {
	client := casdoorsdk.NewClient(
		config.Endpoint,
		config.ClientID,
		config.ClientSecret,
		config.Certificate,
		config.OrganizationName,
		config.ApplicationName,
	)

	return &UserCasdoor{
		client: client,
		cache:  cache.NewCacheManager(redisClient).User,
	}
}

// GetByID retrieves a user profile, served from cache when possible
func (u *UserCasdoor) GetByID(ctx context.Context, id string) (*repositories.IdentityProfile, error) {
	var profile repositories.IdentityProfile
	err := u.cache.CacheOrExecute(ctx, "id:"+id, &profile, cache.UserCacheConfig.TTL, func() (interface{}, error) {
		casdoorUser, err := u.client.GetUserByUserId(id)
		if err != nil {
			return nil, fmt.Errorf("failed to get user from Casdoor: %w", err)
		}
		if casdoorUser == nil {
			return nil, fmt.Errorf("casdoor user %s: %w", id, repositories.ErrNotFound)
		}
		return ProfileFromCasdoorUser(casdoorUser), nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// List pages through every user of the organisation
func (u *UserCasdoor) List(ctx context.Context) ([]*repositories.IdentityProfile, error) {
	var profiles []*repositories.IdentityProfile
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		casdoorUsers, total, err := u.client.GetPaginationUsers(page, listPageSize, map[string]string{})
		if err != nil {
			return nil, fmt.Errorf("failed to get users from Casdoor: %w", err)
		}
		for _, cu := range casdoorUsers {
			if cu == nil || cu.IsDeleted || cu.IsForbidden {
				continue
			}
			profiles = append(profiles, ProfileFromCasdoorUser(cu))
		}

		if len(casdoorUsers) < listPageSize || page*listPageSize >= int(total) {
			break
		}
	}
	return profiles, nil
}

// ProfileFromCasdoorUser maps a Casdoor user to the directory profile. The
// department code comes from the affiliation, falling back to the first group.
func ProfileFromCasdoorUser(cu *casdoorsdk.User) *repositories.IdentityProfile {
	profile := &repositories.IdentityProfile{
		UserID:         cu.Id,
		FullName:       cu.DisplayName,
		Email:          cu.Email,
		Role:           string(MapRole(cu)),
		IsAdmin:        cu.IsAdmin,
		DepartmentCode: strings.TrimSpace(cu.Affiliation),
	}
	if profile.FullName == "" {
		profile.FullName = cu.Name
	}
	if profile.DepartmentCode == "" && len(cu.Groups) > 0 {
		group := cu.Groups[0]
		if i := strings.LastIndex(group, "/"); i >= 0 {
			group = group[i+1:]
		}
		profile.DepartmentCode = group
	}
	profile.DepartmentName = getPropertyOrDefault(cu.Properties, "department_name", profile.DepartmentCode)
	return profile
}

// MapRole collapses Casdoor roles and the user type into a single portal role.
// Admin wins over manager, manager over employee.
func MapRole(cu *casdoorsdk.User) models.UserRole {
	if cu.IsAdmin {
		return models.RoleAdmin
	}

	names := []string{cu.Type, cu.Tag}
	for _, r := range cu.Roles {
		if r != nil {
			names = append(names, r.Name)
		}
	}

	roles := make([]models.UserRole, 0, len(names))
	for _, name := range names {
		roles = append(roles, mapSingleRole(name))
	}

	switch {
	case slices.Contains(roles, models.RoleAdmin):
		return models.RoleAdmin
	case slices.Contains(roles, models.RoleManager):
		return models.RoleManager
	default:
		return models.RoleEmployee
	}
}

func mapSingleRole(name string) models.UserRole {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "admin", "administrator", "hr-admin":
		return models.RoleAdmin
	case "manager", "lead", "team-lead", "head":
		return models.RoleManager
	default:
		return models.RoleEmployee
	}
}

// getPropertyOrDefault gets property value or returns default
func getPropertyOrDefault(properties map[string]string, key, defaultValue string) string {
	if value, exists := properties[key]; exists && value != "" {
		return value
	}
	return defaultValue
}
