package utils

import (
	"context"

	"equipment-compliance/pkg/constants"
	"equipment-compliance/pkg/contextkeys"
	apperrors "equipment-compliance/pkg/errors"
)

func GetUserIDFromCtx(ctx context.Context) (uint64, error) {
	userID, ok := ctx.Value(contextkeys.UserIDKey).(uint64)
	if !ok {
		return 0, apperrors.ErrUnauthorized
	}
	return userID, nil
}

func GetUserRoleFromCtx(ctx context.Context) (constants.Role, error) {
	role, ok := ctx.Value(contextkeys.UserRoleKey).(constants.Role)
	if !ok || !role.Valid() {
		return "", apperrors.ErrUnauthorized
	}
	return role, nil
}
