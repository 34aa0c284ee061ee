package handlers

import (
	"errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/spendshare/internal/models"
	"example.com/spendshare/internal/repository"
)

// profileAccess — роль и права пользователя в конкретном профиле.
type profileAccess struct {
	Role        models.Role
	Permissions models.Permissions
}

func (a profileAccess) canManage() bool {
	return a.Role == models.RoleOwner || a.Role == models.RoleAdmin
}

// resolveAccess проверяет доступ пользователя к профилю. При отказе
// ответ уже записан, вызывающий возвращает err как есть.
func resolveAccess(c echo.Context, members *repository.MemberRepository, profileID, userID uuid.UUID) (profileAccess, bool, error) {
	role, permissions, err := members.Access(c.Request().Context(), profileID, userID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return profileAccess{}, false, notFound(c, "profile not found")
		default:
			return profileAccess{}, false, serverError(c)
		}
	}

	if !permissions.View {
		return profileAccess{}, false, forbidden(c)
	}

	return profileAccess{Role: role, Permissions: permissions}, true, nil
}

func parseProfileID(c echo.Context) (uuid.UUID, bool, error) {
	profileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, false, badRequest(c, "invalid profile id")
	}
	return profileID, true, nil
}
