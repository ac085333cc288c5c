package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"voice-journal/internal/domain"
)

// IdentityAdmin manages users in the identity provider.
type IdentityAdmin interface {
	DeleteUser(ctx context.Context, userID string) error
}

// Accounts removes a user and everything tied to them.
type Accounts struct {
	payments PaymentProvider
	thoughts ThoughtStore
	profiles ProfileStore
	identity IdentityAdmin
	logger   *slog.Logger
}

func NewAccounts(payments PaymentProvider, thoughts ThoughtStore, profiles ProfileStore, identity IdentityAdmin, logger *slog.Logger) *Accounts {
	return &Accounts{
		payments: payments,
		thoughts: thoughts,
		profiles: profiles,
		identity: identity,
		logger:   logger,
	}
}

// DeleteAccount cancels billing, then deletes data and the identity.
// Payment provider failures are logged and do not stop the deletion.
func (a *Accounts) DeleteAccount(ctx context.Context, userID string) error {
	logger := a.logger.With("user_id", userID)

	profile, err := a.profiles.Get(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("loading profile: %w", err)
	}

	if profile != nil && a.payments != nil {
		if profile.StripeSubscriptionID != "" {
			if err := a.payments.CancelSubscription(ctx, profile.StripeSubscriptionID); err != nil {
				logger.Warn("failed to cancel subscription", "subscription_id", profile.StripeSubscriptionID, "error", err)
			}
		}
		if profile.StripeCustomerID != "" {
			if err := a.payments.DeleteCustomer(ctx, profile.StripeCustomerID); err != nil {
				logger.Warn("failed to delete customer", "customer_id", profile.StripeCustomerID, "error", err)
			}
		}
	}

	if err := a.thoughts.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("deleting thoughts: %w", err)
	}
	if err := a.profiles.Delete(ctx, userID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("deleting profile: %w", err)
	}

	if a.identity != nil {
		if err := a.identity.DeleteUser(ctx, userID); err != nil {
			return fmt.Errorf("deleting auth user: %w", err)
		}
	}

	logger.Info("account deleted")
	return nil
}
