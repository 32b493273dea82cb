package tasks

import (
	"context"

	"github.com/desertthunder/portify/internal/models"
	"github.com/desertthunder/portify/internal/repositories"
	"github.com/desertthunder/portify/internal/services"
)

// ConnectRequest carries the credentials a user hands over when linking a
// provider account.
type ConnectRequest struct {
	UserID       string
	AppBundle    string
	AccessToken  string
	RefreshToken string
}

// ConnectSource builds the provider's token from the raw credential pair
// and upserts the SourceToken row. Connecting the same (user, app, source)
// again replaces the stored blob; a duplicate row is never created.
func ConnectSource(ctx context.Context, store *repositories.Store, client services.Client, req ConnectRequest) error {
	token := client.NewToken(req.AccessToken, req.RefreshToken)

	blob, err := token.Serialize()
	if err != nil {
		return err
	}

	uow, err := store.Begin(ctx)
	if err != nil {
		return err
	}
	defer uow.Rollback()

	record := &models.SourceToken{
		UserID:    req.UserID,
		AppBundle: req.AppBundle,
		Source:    client.Source(),
		TokenData: blob,
	}

	if err := uow.SourceTokens().Upsert(record); err != nil {
		return err
	}

	return uow.Commit()
}
