package services

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/abilsmall/marketplace_backend/models"
	"github.com/abilsmall/marketplace_backend/utils"
)

// These tests exercise the transactional referral paths and need a Mongo
// replica set. Point TEST_MONGO_URI at one to run them.
func referralTestSetup(t *testing.T) (*mongo.Client, *mongo.Database) {
	t.Helper()

	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connecting to test Mongo: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		t.Fatalf("pinging test Mongo: %v", err)
	}

	dbName := fmt.Sprintf("mall_test_%d", time.Now().UnixNano())
	t.Setenv("DB_NAME", dbName)
	db := client.Database(dbName)

	for _, coll := range []string{"referrals", "referral_wallets", "referral_withdrawals"} {
		if err := db.CreateCollection(ctx, coll); err != nil {
			t.Fatalf("creating collection %s: %v", coll, err)
		}
	}
	_, err = db.Collection("referrals").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "referrerId", Value: 1}, {Key: "referredId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		t.Fatalf("creating referral index: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		db.Drop(ctx)
		client.Disconnect(ctx)
	})

	return client, db
}

func tokenBalanceOf(t *testing.T, db *mongo.Database, userID primitive.ObjectID) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wallet models.ReferralWallet
	err := db.Collection("referral_wallets").FindOne(ctx, bson.M{"userId": userID}).Decode(&wallet)
	if err == mongo.ErrNoDocuments {
		return 0
	}
	if err != nil {
		t.Fatalf("loading wallet: %v", err)
	}
	return wallet.TokenBalance
}

func TestDecideWithdrawalRejectRestoresTokens(t *testing.T) {
	client, db := referralTestSetup(t)
	svc := NewReferralService(client)
	ctx := context.Background()

	userID := primitive.NewObjectID()
	adminID := primitive.NewObjectID()

	// Wallet already emptied by the request, as RequestWithdrawal leaves it.
	if _, err := db.Collection("referral_wallets").InsertOne(ctx, models.ReferralWallet{
		UserID:       userID,
		TokenBalance: 0,
		TotalEarned:  30,
		CreatedAt:    time.Now(),
	}); err != nil {
		t.Fatalf("seeding wallet: %v", err)
	}
	withdrawal := models.ReferralWithdrawalRequest{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Tokens:    30,
		Amount:    30 * utils.ReferralTokenValue,
		Status:    models.ReferralWithdrawalPending,
		CreatedAt: time.Now(),
	}
	if _, err := db.Collection("referral_withdrawals").InsertOne(ctx, withdrawal); err != nil {
		t.Fatalf("seeding withdrawal: %v", err)
	}

	decided, err := svc.DecideWithdrawal(ctx, withdrawal.ID, adminID, false)
	if err != nil {
		t.Fatalf("DecideWithdrawal: %v", err)
	}
	if decided.Status != models.ReferralWithdrawalRejected {
		t.Errorf("status = %s, want %s", decided.Status, models.ReferralWithdrawalRejected)
	}
	if got := tokenBalanceOf(t, db, userID); got != 30 {
		t.Errorf("token balance after rejection = %d, want 30", got)
	}

	// A second decision must not credit the tokens again.
	if _, err := svc.DecideWithdrawal(ctx, withdrawal.ID, adminID, false); !IsAlreadyProcessed(err) {
		t.Errorf("second decision err = %v, want ErrAlreadyProcessed", err)
	}
	if got := tokenBalanceOf(t, db, userID); got != 30 {
		t.Errorf("token balance after repeated rejection = %d, want 30", got)
	}
}

func TestDecideWithdrawalApproveLeavesWalletUntouched(t *testing.T) {
	client, db := referralTestSetup(t)
	svc := NewReferralService(client)
	ctx := context.Background()

	userID := primitive.NewObjectID()
	withdrawal := models.ReferralWithdrawalRequest{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Tokens:    25,
		Amount:    25 * utils.ReferralTokenValue,
		Status:    models.ReferralWithdrawalPending,
		CreatedAt: time.Now(),
	}
	if _, err := db.Collection("referral_withdrawals").InsertOne(ctx, withdrawal); err != nil {
		t.Fatalf("seeding withdrawal: %v", err)
	}

	decided, err := svc.DecideWithdrawal(ctx, withdrawal.ID, primitive.NewObjectID(), true)
	if err != nil {
		t.Fatalf("DecideWithdrawal: %v", err)
	}
	if decided.Status != models.ReferralWithdrawalApproved {
		t.Errorf("status = %s, want %s", decided.Status, models.ReferralWithdrawalApproved)
	}
	if got := tokenBalanceOf(t, db, userID); got != 0 {
		t.Errorf("token balance after approval = %d, want 0", got)
	}
}

func TestRewardVerificationDuplicateIsNoOp(t *testing.T) {
	client, db := referralTestSetup(t)
	svc := NewReferralService(client)
	ctx := context.Background()

	referrerID := primitive.NewObjectID()
	referredID := primitive.NewObjectID()

	if err := svc.RewardVerification(ctx, referrerID, referredID); err != nil {
		t.Fatalf("first RewardVerification: %v", err)
	}
	if got := tokenBalanceOf(t, db, referrerID); got != utils.ReferralRewardTokens {
		t.Fatalf("token balance = %d, want %d", got, utils.ReferralRewardTokens)
	}

	// A retried verification event must not credit twice.
	if err := svc.RewardVerification(ctx, referrerID, referredID); err != nil {
		t.Fatalf("second RewardVerification: %v", err)
	}
	if got := tokenBalanceOf(t, db, referrerID); got != utils.ReferralRewardTokens {
		t.Errorf("token balance after duplicate = %d, want %d", got, utils.ReferralRewardTokens)
	}

	count, err := db.Collection("referrals").CountDocuments(ctx, bson.M{"referrerId": referrerID})
	if err != nil {
		t.Fatalf("counting referrals: %v", err)
	}
	if count != 1 {
		t.Errorf("referral records = %d, want 1", count)
	}
}
