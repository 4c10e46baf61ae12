package chat

import (
	"context"
	"errors"
	"fmt"

	"institution-chat/internal/auth"
	"institution-chat/internal/model"
	"institution-chat/internal/storage"
)

// ParticipantResolver validates the other side of a conversation.
//
// Cross-institution conversations are allowed unless SameInstitutionOnly is
// set; the product has not decided which behaviour is intended.
type ParticipantResolver struct {
	users               UserDirectory
	sameInstitutionOnly bool
}

func NewParticipantResolver(users UserDirectory, sameInstitutionOnly bool) *ParticipantResolver {
	return &ParticipantResolver{users: users, sameInstitutionOnly: sameInstitutionOnly}
}

// Resolve looks targetID up.
func (r *ParticipantResolver) Resolve(ctx context.Context, targetID int64) (model.User, error) {
	if targetID <= 0 {
		return model.User{}, invalid("user id must be positive")
	}
	u, err := r.users.LookupUser(ctx, targetID)
	if errors.Is(err, storage.ErrNoRows) {
		return model.User{}, fmt.Errorf("%w: user with given id does not exist", ErrNotFound)
	}
	if err != nil {
		return model.User{}, readErr(ctx, "lookup user", err)
	}
	return u, nil
}

// ResolveCounterparty validates targetID as the other party of a new
// conversation started by caller.
func (r *ParticipantResolver) ResolveCounterparty(ctx context.Context, caller auth.Identity, targetID int64) (model.User, error) {
	if targetID == caller.ID {
		return model.User{}, ErrSelfConversation
	}
	u, err := r.Resolve(ctx, targetID)
	if err != nil {
		return model.User{}, err
	}
	if r.sameInstitutionOnly && u.InstitutionID != caller.InstitutionID {
		return model.User{}, fmt.Errorf("%w: user belongs to another institution", ErrForbidden)
	}
	return u, nil
}
