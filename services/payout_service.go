// services/payout_service.go
package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/abilsmall/marketplace_backend/config"
	"github.com/abilsmall/marketplace_backend/models"
)

// PayoutService runs the company withdrawal workflow. Requests never reserve
// funds; the company balance is checked against the live wallet at approval
// time, and the debit happens in the same transaction as the status flip.
type PayoutService struct {
	client *mongo.Client
	ledger *LedgerService
}

func NewPayoutService(client *mongo.Client) *PayoutService {
	return &PayoutService{
		client: client,
		ledger: NewLedgerService(client),
	}
}

// Request raises a payout for the manager's company. The amount may exceed
// the current balance; it only has to clear at decision time.
func (s *PayoutService) Request(ctx context.Context, managerID, companyID primitive.ObjectID, amount float64) (*models.PayoutRequest, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("payout amount must be positive: %w", ErrValidation)
	}

	db := s.client.Database(config.DatabaseName())

	count, err := db.Collection("companies").CountDocuments(ctx, bson.M{"_id": companyID})
	if err != nil {
		return nil, fmt.Errorf("checking company: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("company %s: %w", companyID.Hex(), ErrNotFound)
	}

	payout := models.PayoutRequest{
		ID:        primitive.NewObjectID(),
		CompanyID: companyID,
		ManagerID: managerID,
		Amount:    amount,
		Status:    models.PayoutPending,
		CreatedAt: time.Now(),
	}
	if _, err := db.Collection("payout_requests").InsertOne(ctx, payout); err != nil {
		return nil, fmt.Errorf("creating payout request: %w", err)
	}

	go func() {
		bg, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, err := db.Collection("company_activities").InsertOne(bg, models.CompanyActivity{
			CompanyID:   companyID,
			Action:      models.ActivityPayoutRequested,
			Description: fmt.Sprintf("Payout of %.2f requested by manager %s", amount, managerID.Hex()),
			CreatedAt:   time.Now(),
		})
		if err != nil {
			log.Printf("Failed to log payout request activity: %v", err)
		}
	}()

	return &payout, nil
}

// Approve debits the company wallet and marks the request approved in one
// transaction. Fails with ErrInsufficientBalance when the wallet no longer
// covers the amount, and ErrAlreadyProcessed when the request is not pending.
func (s *PayoutService) Approve(ctx context.Context, payoutID, adminID primitive.ObjectID, note string) (*models.PayoutRequest, error) {
	db := s.client.Database(config.DatabaseName())
	payouts := db.Collection("payout_requests")

	var payout models.PayoutRequest
	if err := payouts.FindOne(ctx, bson.M{"_id": payoutID}).Decode(&payout); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("payout request %s: %w", payoutID.Hex(), ErrNotFound)
		}
		return nil, fmt.Errorf("loading payout request: %w", err)
	}
	if payout.Status != models.PayoutPending {
		return nil, fmt.Errorf("payout request is %s: %w", payout.Status, ErrAlreadyProcessed)
	}

	err := s.ledger.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		balance, err := s.ledger.CompanyBalance(sc, payout.CompanyID)
		if err != nil {
			return err
		}
		if balance < payout.Amount {
			return fmt.Errorf("company balance %.2f below payout %.2f: %w",
				balance, payout.Amount, ErrInsufficientBalance)
		}

		now := time.Now()
		res, err := payouts.UpdateOne(sc,
			bson.M{"_id": payoutID, "status": models.PayoutPending},
			bson.M{"$set": bson.M{
				"status":      models.PayoutApproved,
				"adminId":     adminID,
				"adminNote":   note,
				"processedAt": now,
			}},
		)
		if err != nil {
			return fmt.Errorf("updating payout request: %w", err)
		}
		if res.ModifiedCount == 0 {
			return fmt.Errorf("payout request already decided: %w", ErrAlreadyProcessed)
		}

		entries := []LedgerEntry{{
			CompanyID:   &payout.CompanyID,
			Amount:      -payout.Amount,
			Description: fmt.Sprintf("Payout %s approved", payoutID.Hex()),
		}}
		activity := &models.CompanyActivity{
			CompanyID:   payout.CompanyID,
			Action:      models.ActivityPayoutApproved,
			Description: fmt.Sprintf("Payout of %.2f approved", payout.Amount),
			CreatedAt:   now,
		}
		return s.ledger.ApplyTx(sc, entries, activity)
	})
	if err != nil {
		return nil, err
	}

	payout.Status = models.PayoutApproved
	payout.AdminID = &adminID
	payout.AdminNote = note
	return &payout, nil
}

// Reject marks the request rejected. Nothing was reserved, so no wallet
// mutation is needed.
func (s *PayoutService) Reject(ctx context.Context, payoutID, adminID primitive.ObjectID, note string) (*models.PayoutRequest, error) {
	db := s.client.Database(config.DatabaseName())
	payouts := db.Collection("payout_requests")

	now := time.Now()
	res := payouts.FindOneAndUpdate(ctx,
		bson.M{"_id": payoutID, "status": models.PayoutPending},
		bson.M{"$set": bson.M{
			"status":      models.PayoutRejected,
			"adminId":     adminID,
			"adminNote":   note,
			"processedAt": now,
		}},
	)

	var payout models.PayoutRequest
	if err := res.Decode(&payout); err != nil {
		if err == mongo.ErrNoDocuments {
			// Either missing or already decided; disambiguate for the caller.
			count, countErr := payouts.CountDocuments(ctx, bson.M{"_id": payoutID})
			if countErr == nil && count > 0 {
				return nil, fmt.Errorf("payout request already decided: %w", ErrAlreadyProcessed)
			}
			return nil, fmt.Errorf("payout request %s: %w", payoutID.Hex(), ErrNotFound)
		}
		return nil, fmt.Errorf("rejecting payout request: %w", err)
	}

	go func() {
		bg, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, err := db.Collection("company_activities").InsertOne(bg, models.CompanyActivity{
			CompanyID:   payout.CompanyID,
			Action:      models.ActivityPayoutRejected,
			Description: fmt.Sprintf("Payout of %.2f rejected", payout.Amount),
			CreatedAt:   time.Now(),
		})
		if err != nil {
			log.Printf("Failed to log payout rejection activity: %v", err)
		}
	}()

	payout.Status = models.PayoutRejected
	payout.AdminID = &adminID
	payout.AdminNote = note
	payout.ProcessedAt = &now
	return &payout, nil
}
