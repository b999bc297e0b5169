// services/ledger_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/abilsmall/marketplace_backend/config"
	"github.com/abilsmall/marketplace_backend/models"
)

// LedgerEntry is one wallet delta. Exactly one of CompanyID or UserID is set.
// Amount is positive for credits and negative for debits. User entries get a
// wallet_transactions audit row; company entries are audited through the
// activity record attached to the Apply call.
type LedgerEntry struct {
	CompanyID   *primitive.ObjectID
	UserID      *primitive.ObjectID
	Amount      float64
	Description string
}

// LedgerService is the only component allowed to mutate wallet balances.
// Every mutation runs inside a Mongo transaction together with its audit
// records and the guard update that owns it, so a crash can never leave a
// credit without its audit trail or status flip.
type LedgerService struct {
	client *mongo.Client
}

// NewLedgerService creates a new ledger service
func NewLedgerService(client *mongo.Client) *LedgerService {
	return &LedgerService{client: client}
}

// WithTransaction runs fn inside a Mongo session transaction.
func (s *LedgerService) WithTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// ApplyTx applies a set of ledger entries inside an already-open transaction.
// Company balances are $inc'd; user balances are $inc'd and mirrored into
// wallet_transactions. The optional activity row is the per-company audit
// grain (one per business event, not one per entry).
func (s *LedgerService) ApplyTx(sc mongo.SessionContext, entries []LedgerEntry, activity *models.CompanyActivity) error {
	companies := config.GetCollection(s.client, "companies")
	users := config.GetCollection(s.client, "users")
	walletTx := config.GetCollection(s.client, "wallet_transactions")

	now := time.Now()

	for _, entry := range entries {
		if entry.Amount == 0 {
			continue
		}

		switch {
		case entry.CompanyID != nil:
			res, err := companies.UpdateOne(sc,
				bson.M{"_id": *entry.CompanyID},
				bson.M{"$inc": bson.M{"walletBalance": entry.Amount}})
			if err != nil {
				return fmt.Errorf("failed to update company wallet: %w", err)
			}
			if res.MatchedCount == 0 {
				return fmt.Errorf("company %s: %w", entry.CompanyID.Hex(), ErrNotFound)
			}

		case entry.UserID != nil:
			res, err := users.UpdateOne(sc,
				bson.M{"_id": *entry.UserID},
				bson.M{"$inc": bson.M{"walletBalance": entry.Amount}})
			if err != nil {
				return fmt.Errorf("failed to update user wallet: %w", err)
			}
			if res.MatchedCount == 0 {
				return fmt.Errorf("user %s: %w", entry.UserID.Hex(), ErrNotFound)
			}

			txType := models.TxCredit
			amount := entry.Amount
			if amount < 0 {
				txType = models.TxDebit
				amount = -amount
			}
			_, err = walletTx.InsertOne(sc, models.WalletTransaction{
				ID:          primitive.NewObjectID(),
				UserID:      *entry.UserID,
				Amount:      amount,
				TxType:      txType,
				Description: entry.Description,
				CreatedAt:   now,
			})
			if err != nil {
				return fmt.Errorf("failed to record wallet transaction: %w", err)
			}

		default:
			return fmt.Errorf("%w: ledger entry has no target", ErrValidation)
		}
	}

	if activity != nil {
		activity.ID = primitive.NewObjectID()
		activity.CreatedAt = now
		activities := config.GetCollection(s.client, "company_activities")
		if _, err := activities.InsertOne(sc, *activity); err != nil {
			return fmt.Errorf("failed to record company activity: %w", err)
		}
	}

	return nil
}

// Apply runs ApplyTx in its own transaction, for mutations that need no
// additional guard update.
func (s *LedgerService) Apply(ctx context.Context, entries []LedgerEntry, activity *models.CompanyActivity) error {
	return s.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		return s.ApplyTx(sc, entries, activity)
	})
}

// CompanyBalance reads a company's current wallet balance.
func (s *LedgerService) CompanyBalance(ctx context.Context, companyID primitive.ObjectID) (float64, error) {
	var company models.Company
	err := config.GetCollection(s.client, "companies").FindOne(ctx, bson.M{"_id": companyID}).Decode(&company)
	if err == mongo.ErrNoDocuments {
		return 0, fmt.Errorf("company %s: %w", companyID.Hex(), ErrNotFound)
	}
	if err != nil {
		return 0, err
	}
	return company.WalletBalance, nil
}
