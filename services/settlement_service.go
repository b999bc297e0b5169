// services/settlement_service.go
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

// SettlementService distributes a paid order's funds to the selling company
// and the attributed product managers. Every provider callback and every
// reconciliation sweep funnels through Settle; the settled flag on the order
// guarantees at most one distribution no matter how many times a gateway
// retries its webhook.
type SettlementService struct {
	client *mongo.Client
	ledger *LedgerService
}

// SettlementResult reports what a Settle call did.
type SettlementResult struct {
	OrderID        primitive.ObjectID `json:"orderId"`
	AlreadySettled bool               `json:"alreadySettled"`
	CompanyCredit  float64            `json:"companyCredit"`
	ManagerCredits map[string]float64 `json:"managerCredits"`
}

func NewSettlementService(client *mongo.Client) *SettlementService {
	return &SettlementService{
		client: client,
		ledger: NewLedgerService(client),
	}
}

// Settle marks the order paid and distributes its funds atomically. If
// paymentID is non-nil the matching payment row is flipped to paid in the
// same transaction. The second and later calls for the same order return
// AlreadySettled without touching any wallet.
func (s *SettlementService) Settle(ctx context.Context, orderID primitive.ObjectID, paymentID *primitive.ObjectID) (*SettlementResult, error) {
	db := s.client.Database(config.DatabaseName())
	orders := db.Collection("orders")

	var order models.Order
	if err := orders.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("order %s: %w", orderID.Hex(), ErrNotFound)
		}
		return nil, fmt.Errorf("loading order: %w", err)
	}

	// Fast path: no transaction needed for a retried webhook.
	if order.Settled {
		return &SettlementResult{OrderID: orderID, AlreadySettled: true}, nil
	}

	items, products, managers, companyExists, err := s.loadParticipants(ctx, db, order)
	if err != nil {
		return nil, err
	}

	dist := ComputeDistribution(order, items, products, managers, companyExists)

	result := &SettlementResult{
		OrderID:        orderID,
		CompanyCredit:  dist.CompanyCredit,
		ManagerCredits: make(map[string]float64, len(dist.ManagerCredits)),
	}

	err = s.ledger.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		// The guard: exactly one caller wins this update.
		now := time.Now()
		res, err := orders.UpdateOne(sc,
			bson.M{"_id": orderID, "settled": false},
			bson.M{"$set": bson.M{
				"settled":   true,
				"settledAt": now,
				"status":    models.OrderPaid,
			}},
		)
		if err != nil {
			return fmt.Errorf("claiming order for settlement: %w", err)
		}
		if res.ModifiedCount == 0 {
			result.AlreadySettled = true
			result.CompanyCredit = 0
			result.ManagerCredits = map[string]float64{}
			return nil
		}

		entries := make([]LedgerEntry, 0, 1+len(dist.ManagerCredits))
		if companyExists && dist.CompanyCredit > 0 {
			entries = append(entries, LedgerEntry{
				CompanyID:   &order.CompanyID,
				Amount:      dist.CompanyCredit,
				Description: fmt.Sprintf("Settlement of order %s", orderID.Hex()),
			})
		}
		for managerID, amount := range dist.ManagerCredits {
			if amount <= 0 {
				continue
			}
			id := managerID
			entries = append(entries, LedgerEntry{
				UserID:      &id,
				Amount:      amount,
				Description: fmt.Sprintf("Commission from order %s", orderID.Hex()),
			})
			result.ManagerCredits[managerID.Hex()] = amount
		}

		var activity *models.CompanyActivity
		if companyExists {
			activity = &models.CompanyActivity{
				CompanyID: order.CompanyID,
				Action:    models.ActivityPaymentDistributed,
				Description: fmt.Sprintf("Order %s settled: company %.2f, managers %.2f",
					orderID.Hex(), dist.CompanyCredit, dist.Total()-dist.CompanyCredit),
				CreatedAt: now,
			}
		}

		if err := s.ledger.ApplyTx(sc, entries, activity); err != nil {
			return err
		}

		if paymentID != nil {
			_, err := db.Collection("payments").UpdateOne(sc,
				bson.M{"_id": *paymentID},
				bson.M{"$set": bson.M{"status": models.PaymentPaid, "paidAt": now}},
			)
			if err != nil {
				return fmt.Errorf("marking payment paid: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.AlreadySettled {
		log.Printf("Settlement: order %s already settled, skipping", orderID.Hex())
	} else {
		log.Printf("Settlement: order %s distributed %.2f to company, %d manager credit(s)",
			orderID.Hex(), result.CompanyCredit, len(result.ManagerCredits))
	}
	return result, nil
}

// loadParticipants gathers everything ComputeDistribution needs. Missing
// records are reported through the maps and the companyExists flag rather
// than as errors; settlement degrades instead of failing.
func (s *SettlementService) loadParticipants(ctx context.Context, db *mongo.Database, order models.Order) (
	[]models.OrderItem,
	map[primitive.ObjectID]models.Product,
	map[primitive.ObjectID]models.User,
	bool,
	error,
) {
	cursor, err := db.Collection("order_items").Find(ctx, bson.M{"orderId": order.ID})
	if err != nil {
		return nil, nil, nil, false, fmt.Errorf("loading order items: %w", err)
	}
	var items []models.OrderItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, nil, nil, false, fmt.Errorf("decoding order items: %w", err)
	}

	productIDs := make([]primitive.ObjectID, 0, len(items))
	for _, item := range items {
		productIDs = append(productIDs, item.ProductID)
	}

	products := make(map[primitive.ObjectID]models.Product, len(items))
	if len(productIDs) > 0 {
		cursor, err = db.Collection("products").Find(ctx, bson.M{"_id": bson.M{"$in": productIDs}})
		if err != nil {
			return nil, nil, nil, false, fmt.Errorf("loading products: %w", err)
		}
		var productList []models.Product
		if err := cursor.All(ctx, &productList); err != nil {
			return nil, nil, nil, false, fmt.Errorf("decoding products: %w", err)
		}
		for _, p := range productList {
			products[p.ID] = p
		}
	}

	managerIDs := make([]primitive.ObjectID, 0)
	seen := make(map[primitive.ObjectID]bool)
	for _, p := range products {
		if p.ManagerID != nil && !seen[*p.ManagerID] {
			seen[*p.ManagerID] = true
			managerIDs = append(managerIDs, *p.ManagerID)
		}
	}

	managers := make(map[primitive.ObjectID]models.User, len(managerIDs))
	if len(managerIDs) > 0 {
		cursor, err = db.Collection("users").Find(ctx, bson.M{"_id": bson.M{"$in": managerIDs}})
		if err != nil {
			return nil, nil, nil, false, fmt.Errorf("loading managers: %w", err)
		}
		var managerList []models.User
		if err := cursor.All(ctx, &managerList); err != nil {
			return nil, nil, nil, false, fmt.Errorf("decoding managers: %w", err)
		}
		for _, m := range managerList {
			managers[m.ID] = m
		}
	}

	companyExists := true
	count, err := db.Collection("companies").CountDocuments(ctx, bson.M{"_id": order.CompanyID})
	if err != nil {
		return nil, nil, nil, false, fmt.Errorf("checking company: %w", err)
	}
	if count == 0 {
		companyExists = false
		log.Printf("Settlement: company %s for order %s no longer exists, its share will be skipped",
			order.CompanyID.Hex(), order.ID.Hex())
	}

	return items, products, managers, companyExists, nil
}

// Refund reverses a settled order commercially: the company wallet is debited
// the full order amount and the order flips to refunded. Manager commission
// shares are not clawed back. The status guard makes a second refund a
// conflict, not a second debit.
func (s *SettlementService) Refund(ctx context.Context, orderID primitive.ObjectID) (*models.Order, error) {
	db := s.client.Database(config.DatabaseName())
	orders := db.Collection("orders")

	var order models.Order
	if err := orders.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("order %s: %w", orderID.Hex(), ErrNotFound)
		}
		return nil, fmt.Errorf("loading order: %w", err)
	}
	if order.Status == models.OrderRefunded {
		return nil, fmt.Errorf("order already refunded: %w", ErrAlreadyProcessed)
	}
	if !order.Settled || order.Status != models.OrderPaid {
		return nil, fmt.Errorf("only settled paid orders can be refunded: %w", ErrValidation)
	}

	err := s.ledger.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		res, err := orders.UpdateOne(sc,
			bson.M{"_id": orderID, "status": models.OrderPaid},
			bson.M{"$set": bson.M{"status": models.OrderRefunded}},
		)
		if err != nil {
			return fmt.Errorf("marking order refunded: %w", err)
		}
		if res.ModifiedCount == 0 {
			return fmt.Errorf("order already refunded: %w", ErrAlreadyProcessed)
		}

		entries := []LedgerEntry{{
			CompanyID:   &order.CompanyID,
			Amount:      -order.TotalAmount,
			Description: fmt.Sprintf("Refund of order %s", orderID.Hex()),
		}}
		activity := &models.CompanyActivity{
			CompanyID:   order.CompanyID,
			Action:      models.ActivityOrderRefunded,
			Description: fmt.Sprintf("Order %s refunded for %.2f", orderID.Hex(), order.TotalAmount),
			CreatedAt:   time.Now(),
		}
		if err := s.ledger.ApplyTx(sc, entries, activity); err != nil {
			return err
		}

		_, err = db.Collection("payments").UpdateOne(sc,
			bson.M{"orderId": orderID, "status": models.PaymentPaid},
			bson.M{"$set": bson.M{"status": models.PaymentRefunded}},
		)
		if err != nil {
			return fmt.Errorf("marking payment refunded: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.Status = models.OrderRefunded
	log.Printf("Refund: order %s reversed, company %s debited %.2f",
		orderID.Hex(), order.CompanyID.Hex(), order.TotalAmount)
	return &order, nil
}

// MarkFailed records a failed payment attempt without touching wallets.
func (s *SettlementService) MarkFailed(ctx context.Context, orderID primitive.ObjectID, paymentID *primitive.ObjectID) error {
	db := s.client.Database(config.DatabaseName())

	_, err := db.Collection("orders").UpdateOne(ctx,
		bson.M{"_id": orderID, "settled": false},
		bson.M{"$set": bson.M{"status": models.OrderPaymentFailed}},
	)
	if err != nil {
		return fmt.Errorf("marking order failed: %w", err)
	}
	if paymentID != nil {
		_, err = db.Collection("payments").UpdateOne(ctx,
			bson.M{"_id": *paymentID},
			bson.M{"$set": bson.M{"status": models.PaymentFailed}},
		)
		if err != nil {
			return fmt.Errorf("marking payment failed: %w", err)
		}
	}
	return nil
}
