package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/vertexautomation/site-server/internal/audit"
	apperrors "github.com/vertexautomation/site-server/internal/errors"
	"github.com/vertexautomation/site-server/internal/model"
	"github.com/vertexautomation/site-server/internal/repository"
	"github.com/vertexautomation/site-server/internal/util"
)

type RoleService struct {
	roleRepo repository.RoleRepository
	userRepo repository.UserRepository
}

func NewRoleService(roleRepo repository.RoleRepository, userRepo repository.UserRepository) *RoleService {
	return &RoleService{roleRepo: roleRepo, userRepo: userRepo}
}

func (s *RoleService) Roles(ctx context.Context, userID string) ([]model.RoleAssignment, error) {
	roles, err := s.roleRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find roles: %w", err)
	}
	return roles, nil
}

func (s *RoleService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	roles, err := s.Roles(ctx, userID)
	if err != nil {
		return false, err
	}
	return model.HasRole(roles, model.RoleAdmin), nil
}

// Grant adds a role row. Granting a role the user already holds adds another row.
func (s *RoleService) Grant(ctx context.Context, actorID, userID string, role model.Role) (*model.RoleAssignment, error) {
	if !util.IsValidEnum(string(role), model.ValidRoles) || role == "" {
		return nil, apperrors.InvalidInput("role", "must be one of admin, moderator, user")
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, apperrors.NotFound("User")
	}

	assignment, err := s.roleRepo.Create(ctx, userID, role)
	if err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}

	audit.Log(ctx, audit.Event{
		Type:    audit.EventRoleGranted,
		UserID:  actorID,
		Details: map[string]interface{}{"target_user_id": userID, "role": string(role)},
	})
	return assignment, nil
}

// GrantByEmail is Grant for operators who know the email, not the id.
func (s *RoleService) GrantByEmail(ctx context.Context, email string, role model.Role) (*model.RoleAssignment, error) {
	user, err := s.userRepo.FindByEmail(ctx, util.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, apperrors.NotFound("User")
	}
	return s.Grant(ctx, "cli", user.ID, role)
}

// Revoke deletes one role row. An admin cannot remove their own last admin role.
func (s *RoleService) Revoke(ctx context.Context, actorID, assignmentID string) error {
	actorRoles, err := s.Roles(ctx, actorID)
	if err != nil {
		return err
	}
	adminRows := 0
	revokingOwnAdmin := false
	for _, r := range actorRoles {
		if r.Role == model.RoleAdmin {
			adminRows++
			if r.ID == assignmentID {
				revokingOwnAdmin = true
			}
		}
	}
	if revokingOwnAdmin && adminRows == 1 {
		return apperrors.ValidationError("Cannot remove your own last admin role")
	}

	deleted, err := s.roleRepo.Delete(ctx, assignmentID)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	if !deleted {
		return apperrors.NotFound("Role assignment")
	}

	audit.Log(ctx, audit.Event{
		Type:    audit.EventRoleRevoked,
		UserID:  actorID,
		Details: map[string]interface{}{"assignment_id": assignmentID},
	})
	return nil
}

// ListUsers returns a page of users with their role rows attached.
func (s *RoleService) ListUsers(ctx context.Context, limit, offset int) ([]model.UserWithRoles, int, error) {
	users, err := s.userRepo.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	total, err := s.userRepo.Count(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to count users")
		total = len(users)
	}

	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	roles, err := s.roleRepo.FindByUserIDs(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("list roles: %w", err)
	}
	byUser := make(map[string][]model.RoleAssignment, len(users))
	for _, r := range roles {
		byUser[r.UserID] = append(byUser[r.UserID], r)
	}

	result := make([]model.UserWithRoles, len(users))
	for i, u := range users {
		assigned := byUser[u.ID]
		if assigned == nil {
			assigned = []model.RoleAssignment{}
		}
		result[i] = model.UserWithRoles{User: u, Roles: assigned}
	}
	return result, total, nil
}
