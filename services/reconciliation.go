// services/reconciliation.go
package services

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/abilsmall/marketplace_backend/config"
	"github.com/abilsmall/marketplace_backend/models"
)

// Reconciler picks up OPay payments whose webhook never arrived. It asks the
// gateway directly and pushes the answer through the normal settle/fail path;
// the settled flag keeps a late webhook harmless.
type Reconciler struct {
	client     *mongo.Client
	settlement *SettlementService
	opay       *OpayService
}

func NewReconciler(client *mongo.Client) *Reconciler {
	return &Reconciler{
		client:     client,
		settlement: NewSettlementService(client),
		opay:       NewOpayService(),
	}
}

// SweepOnce reconciles pending OPay payments older than the given age.
func (r *Reconciler) SweepOnce(ctx context.Context, olderThan time.Duration) {
	db := r.client.Database(config.DatabaseName())

	cursor, err := db.Collection("payments").Find(ctx, bson.M{
		"provider":  models.ProviderOpay,
		"status":    models.PaymentPending,
		"createdAt": bson.M{"$lt": time.Now().Add(-olderThan)},
	})
	if err != nil {
		log.Printf("Reconciler: failed to query pending payments: %v", err)
		return
	}
	var payments []models.Payment
	if err := cursor.All(ctx, &payments); err != nil {
		log.Printf("Reconciler: failed to decode pending payments: %v", err)
		return
	}

	for _, payment := range payments {
		status, err := r.opay.QueryStatus(payment.Reference, payment.ProviderOrderNo)
		if err != nil {
			log.Printf("Reconciler: status query failed for %s: %v", payment.Reference, err)
			continue
		}

		switch status {
		case "SUCCESS":
			p := payment
			result, err := r.settlement.Settle(ctx, p.OrderID, &p.ID)
			if err != nil {
				log.Printf("Reconciler: settlement failed for order %s: %v", p.OrderID.Hex(), err)
				continue
			}
			if !result.AlreadySettled {
				log.Printf("Reconciler: recovered payment %s, order %s settled", p.Reference, p.OrderID.Hex())
			}
		case "FAIL", "CLOSE":
			p := payment
			if err := r.settlement.MarkFailed(ctx, p.OrderID, &p.ID); err != nil {
				log.Printf("Reconciler: failed to mark payment %s failed: %v", p.Reference, err)
			}
		}
		// INITIAL / PENDING stay pending for the next sweep.
	}
}

// Run sweeps on the given interval until the context is cancelled.
func (r *Reconciler) Run(ctx context.Context, interval, olderThan time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			r.SweepOnce(sweepCtx, olderThan)
			cancel()
		}
	}
}
