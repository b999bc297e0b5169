// services/referral_service.go
package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/abilsmall/marketplace_backend/config"
	"github.com/abilsmall/marketplace_backend/models"
	"github.com/abilsmall/marketplace_backend/utils"
)

// ReferralService manages the invite token economy: rewarding referrers when
// their invitees verify, and converting tokens to currency withdrawals.
type ReferralService struct {
	client *mongo.Client
	ledger *LedgerService
}

func NewReferralService(client *mongo.Client) *ReferralService {
	return &ReferralService{
		client: client,
		ledger: NewLedgerService(client),
	}
}

// ResolveCode looks up the user owning a referral code.
func (s *ReferralService) ResolveCode(ctx context.Context, code string) (*models.User, error) {
	db := s.client.Database(config.DatabaseName())

	var referrer models.User
	err := db.Collection("users").FindOne(ctx, bson.M{"referralCode": code}).Decode(&referrer)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("referral code %q: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("looking up referral code: %w", err)
	}
	return &referrer, nil
}

// RewardVerification credits the referrer's token wallet once the invitee's
// account is verified. The unique (referrerId, referredId) index makes retried
// verification events a no-op rather than a double credit. The referral record
// and the wallet credit commit in one transaction, so a retry either finds
// both or neither.
func (s *ReferralService) RewardVerification(ctx context.Context, referrerID, referredID primitive.ObjectID) error {
	db := s.client.Database(config.DatabaseName())

	rewarded := false
	err := s.ledger.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		_, err := db.Collection("referrals").InsertOne(sc, models.Referral{
			ReferrerID: referrerID,
			ReferredID: referredID,
			CreatedAt:  time.Now(),
		})
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				log.Printf("Referral %s -> %s already rewarded, skipping", referrerID.Hex(), referredID.Hex())
				return nil
			}
			return fmt.Errorf("recording referral: %w", err)
		}

		opts := options.Update().SetUpsert(true)
		_, err = db.Collection("referral_wallets").UpdateOne(sc,
			bson.M{"userId": referrerID},
			bson.M{
				"$inc": bson.M{
					"tokenBalance": utils.ReferralRewardTokens,
					"totalEarned":  utils.ReferralRewardTokens,
				},
				"$setOnInsert": bson.M{"createdAt": time.Now()},
			},
			opts,
		)
		if err != nil {
			return fmt.Errorf("crediting referral wallet: %w", err)
		}
		rewarded = true
		return nil
	})
	if err != nil {
		return err
	}

	if rewarded {
		log.Printf("Referral: credited %d token(s) to %s for verified invitee %s",
			utils.ReferralRewardTokens, referrerID.Hex(), referredID.Hex())
	}
	return nil
}

// Wallet returns the user's referral wallet, zero-valued if none exists yet.
func (s *ReferralService) Wallet(ctx context.Context, userID primitive.ObjectID) (*models.ReferralWallet, error) {
	db := s.client.Database(config.DatabaseName())

	var wallet models.ReferralWallet
	err := db.Collection("referral_wallets").FindOne(ctx, bson.M{"userId": userID}).Decode(&wallet)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return &models.ReferralWallet{UserID: userID}, nil
		}
		return nil, fmt.Errorf("loading referral wallet: %w", err)
	}
	return &wallet, nil
}

// RequestWithdrawal empties the wallet immediately and opens a pending
// withdrawal converting every held token at the fixed rate. The conditional
// debit doubles as a concurrency guard: a racing second request sees a
// changed balance and fails instead of double-spending. If the request row
// cannot be written afterward the tokens are credited back.
func (s *ReferralService) RequestWithdrawal(ctx context.Context, userID primitive.ObjectID) (*models.ReferralWithdrawalRequest, error) {
	db := s.client.Database(config.DatabaseName())
	wallets := db.Collection("referral_wallets")

	wallet, err := s.Wallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	tokens := wallet.TokenBalance
	if tokens < utils.ReferralMinTokens {
		return nil, fmt.Errorf("withdrawal needs at least %d tokens, wallet holds %d: %w",
			utils.ReferralMinTokens, tokens, ErrInsufficientBalance)
	}

	res, err := wallets.UpdateOne(ctx,
		bson.M{"userId": userID, "tokenBalance": tokens},
		bson.M{"$set": bson.M{"tokenBalance": 0}},
	)
	if err != nil {
		return nil, fmt.Errorf("debiting referral wallet: %w", err)
	}
	if res.ModifiedCount == 0 {
		return nil, fmt.Errorf("referral wallet changed concurrently: %w", ErrAlreadyProcessed)
	}

	withdrawal := models.ReferralWithdrawalRequest{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Tokens:    tokens,
		Amount:    float64(tokens) * utils.ReferralTokenValue,
		Status:    models.ReferralWithdrawalPending,
		CreatedAt: time.Now(),
	}
	if _, err := db.Collection("referral_withdrawals").InsertOne(ctx, withdrawal); err != nil {
		// Compensate: the debit already happened, give the tokens back.
		if _, restoreErr := wallets.UpdateOne(ctx,
			bson.M{"userId": userID},
			bson.M{"$inc": bson.M{"tokenBalance": tokens}},
		); restoreErr != nil {
			log.Printf("CRITICAL: failed to restore %d token(s) to user %s after withdrawal insert failure: %v",
				tokens, userID.Hex(), restoreErr)
		}
		return nil, fmt.Errorf("creating withdrawal request: %w", err)
	}

	return &withdrawal, nil
}

// DecideWithdrawal settles a pending withdrawal. Approval is a status flip
// only, since the tokens left the wallet at request time and the cash leg is
// paid out of band. Rejection credits the tokens back in the same transaction
// as the status flip; a failure on either side rolls back both, leaving the
// request pending and retryable.
func (s *ReferralService) DecideWithdrawal(ctx context.Context, withdrawalID, adminID primitive.ObjectID, approve bool) (*models.ReferralWithdrawalRequest, error) {
	db := s.client.Database(config.DatabaseName())
	withdrawals := db.Collection("referral_withdrawals")

	status := models.ReferralWithdrawalRejected
	if approve {
		status = models.ReferralWithdrawalApproved
	}

	now := time.Now()
	var withdrawal models.ReferralWithdrawalRequest
	err := s.ledger.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		res := withdrawals.FindOneAndUpdate(sc,
			bson.M{"_id": withdrawalID, "status": models.ReferralWithdrawalPending},
			bson.M{"$set": bson.M{
				"status":      status,
				"adminId":     adminID,
				"processedAt": now,
			}},
		)
		if err := res.Decode(&withdrawal); err != nil {
			if err == mongo.ErrNoDocuments {
				count, countErr := withdrawals.CountDocuments(sc, bson.M{"_id": withdrawalID})
				if countErr == nil && count > 0 {
					return fmt.Errorf("withdrawal already decided: %w", ErrAlreadyProcessed)
				}
				return fmt.Errorf("withdrawal %s: %w", withdrawalID.Hex(), ErrNotFound)
			}
			return fmt.Errorf("deciding withdrawal: %w", err)
		}

		if !approve {
			_, err := db.Collection("referral_wallets").UpdateOne(sc,
				bson.M{"userId": withdrawal.UserID},
				bson.M{"$inc": bson.M{"tokenBalance": withdrawal.Tokens}},
			)
			if err != nil {
				return fmt.Errorf("restoring tokens after rejection: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !approve {
		log.Printf("Referral: restored %d token(s) to %s after withdrawal rejection",
			withdrawal.Tokens, withdrawal.UserID.Hex())
	}

	withdrawal.Status = status
	withdrawal.AdminID = &adminID
	withdrawal.ProcessedAt = &now
	return &withdrawal, nil
}
