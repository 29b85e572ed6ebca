// internal/app/system/accounts/accounts.go
package accounts

import (
	"context"
	"fmt"

	eventregstore "github.com/dalemusser/bloodlink/internal/app/store/eventregs"
	eventstore "github.com/dalemusser/bloodlink/internal/app/store/events"
	notificationstore "github.com/dalemusser/bloodlink/internal/app/store/notifications"
	userstore "github.com/dalemusser/bloodlink/internal/app/store/users"
	"github.com/dalemusser/bloodlink/internal/app/system/txn"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Remover hard-deletes donor accounts. Completed registrations, blood
// requests, and acceptances stay behind as history; pending registrations
// are removed and their slots handed back.
type Remover struct {
	Client        *mongo.Client
	Users         *userstore.Store
	Registrations *eventregstore.Store
	Events        *eventstore.Store
	Notifications *notificationstore.Store
	Log           *zap.Logger
}

// NewRemover wires a Remover to db. client may be nil.
func NewRemover(client *mongo.Client, db *mongo.Database, logger *zap.Logger) *Remover {
	return &Remover{
		Client:        client,
		Users:         userstore.New(db),
		Registrations: eventregstore.New(db),
		Events:        eventstore.New(db),
		Notifications: notificationstore.New(db),
		Log:           logger,
	}
}

// Result summarizes a removal.
type Result struct {
	RegistrationsRemoved int `json:"registrationsRemoved"`
}

// Remove deletes the user and everything tied only to them. It returns
// userstore.ErrNotFound when the account is already gone.
func (rm *Remover) Remove(ctx context.Context, userID primitive.ObjectID) (Result, error) {
	var res Result
	err := txn.Run(ctx, rm.Client, rm.Log, func(ctx context.Context) error {
		if err := rm.Users.Delete(ctx, userID); err != nil {
			return err
		}
		eventIDs, err := rm.Registrations.DeletePendingByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("delete pending registrations: %w", err)
		}
		for _, id := range eventIDs {
			if err := rm.Events.ReleaseSlot(ctx, id); err != nil {
				return fmt.Errorf("release slot: %w", err)
			}
		}
		res.RegistrationsRemoved = len(eventIDs)
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	// Notifications are cosmetic; a leftover inbox never blocks deletion.
	if err := rm.Notifications.DeleteForRecipient(ctx, models.RecipientUser, userID); err != nil {
		rm.Log.Warn("delete notifications failed", zap.String("user_id", userID.Hex()), zap.Error(err))
	}

	rm.Log.Info("account removed",
		zap.String("user_id", userID.Hex()),
		zap.Int("registrations_removed", res.RegistrationsRemoved))
	return res, nil
}
