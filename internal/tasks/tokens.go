package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/portify/internal/models"
	"github.com/desertthunder/portify/internal/repositories"
	"github.com/desertthunder/portify/internal/services"
	"github.com/desertthunder/portify/internal/shared"
)

// ResolveToken loads the stored credential for (userID, appBundle,
// client.Source), lets the client validate or refresh it, and persists the
// returned token before handing it back.
//
// The write is unconditional: even when nothing was refreshed, the stored
// blob is overwritten so the row is always the latest known-good token.
// Concurrent resolutions of the same key are last-write-wins.
func ResolveToken(ctx context.Context, store *repositories.Store, client services.Client, userID, appBundle string) (models.Token, error) {
	uow, err := store.Begin(ctx)
	if err != nil {
		return nil, err
	}

	stored, err := uow.SourceTokens().GetByUser(userID, appBundle, client.Source())
	uow.Rollback()
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s for user %s", shared.ErrSourceNotConnected, client.Source(), userID)
		}
		return nil, err
	}

	token, err := client.ValidateToken(ctx, stored.TokenData)
	if err != nil {
		return nil, err
	}

	blob, err := token.Serialize()
	if err != nil {
		return nil, err
	}

	uow, err = store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.SourceTokens().UpdateByUser(userID, appBundle, client.Source(), blob); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return token, nil
}
