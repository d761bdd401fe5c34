package main

import (
	"context"
	"errors"
	"fmt"

	"projecthub/pkg/absence"
	"projecthub/pkg/format"
	"projecthub/pkg/notification"
	"projecthub/pkg/permission"
	"projecthub/pkg/user"
)

var errNotAllowed = errors.New("not allowed to resolve this absence")

type absenceResolver interface {
	Get(ctx context.Context, id string) (*absence.Absence, error)
	Resolve(ctx context.Context, id, resolverID string, approved bool) (*absence.Absence, error)
}

type userGetter interface {
	Get(ctx context.Context, id string) (*user.User, error)
}

type notificationCreator interface {
	CreateMany(ctx context.Context, inputs []notification.Input) ([]notification.Notification, error)
}

// resolveAbsence applies the same rules as the HTTP API: the resolver must be
// allowed to decide for the requester, and the requester is notified.
func resolveAbsence(ctx context.Context, absences absenceResolver, users userGetter, notifications notificationCreator,
	id, resolverID string, approved bool) (*absence.Absence, error) {
	a, err := absences.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	resolver, err := users.Get(ctx, resolverID)
	if err != nil {
		return nil, fmt.Errorf("resolver: %w", err)
	}
	requester, err := users.Get(ctx, a.RequesterID)
	if err != nil {
		return nil, fmt.Errorf("requester: %w", err)
	}
	if !permission.CanResolveAbsence(resolver.ID, resolver.Role, resolver.Department, requester.ID, requester.Department) {
		return nil, errNotAllowed
	}

	resolved, err := absences.Resolve(ctx, a.ID, resolver.ID, approved)
	if err != nil {
		return nil, err
	}
	n := notification.BuildAbsenceResolvedNotification(requester.ID, resolver.Label(), approved, notification.AbsenceRequest{
		AbsenceID:      resolved.ID,
		RequesterLabel: requester.Label(),
		KindLabel:      format.AbsenceKindLabel(string(resolved.Kind)),
		Start:          resolved.StartDate,
		End:            resolved.EndDate,
	})
	if _, err := notifications.CreateMany(ctx, []notification.Input{n}); err != nil {
		return resolved, fmt.Errorf("notify requester: %w", err)
	}
	return resolved, nil
}
