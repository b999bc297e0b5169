package services

import (
	"math"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/abilsmall/marketplace_backend/models"
)

const eps = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < eps
}

func managedProduct(companyID primitive.ObjectID, managerID primitive.ObjectID) models.Product {
	return models.Product{
		ID:        primitive.NewObjectID(),
		CompanyID: companyID,
		ManagerID: &managerID,
	}
}

func TestComputeDistributionDiscountAndShipping(t *testing.T) {
	companyID := primitive.NewObjectID()
	managerID := primitive.NewObjectID()

	product := managedProduct(companyID, managerID)

	// Subtotal 1000, discount 100, shipping 50 -> total 950, ratio 0.95.
	order := models.Order{
		ID:              primitive.NewObjectID(),
		CompanyID:       companyID,
		TotalAmount:     950,
		ShippingFee:     50,
		DiscountApplied: 100,
	}
	items := []models.OrderItem{
		{ProductID: product.ID, Quantity: 2, Price: 500},
	}
	products := map[primitive.ObjectID]models.Product{product.ID: product}
	managers := map[primitive.ObjectID]models.User{
		managerID: {ID: managerID, CommissionRate: 10},
	}

	dist := ComputeDistribution(order, items, products, managers, true)

	if !almostEqual(dist.CompanyCredit, 95) {
		t.Errorf("company credit = %v, want 95", dist.CompanyCredit)
	}
	if !almostEqual(dist.ManagerCredits[managerID], 855) {
		t.Errorf("manager credit = %v, want 855", dist.ManagerCredits[managerID])
	}
	if !almostEqual(dist.Total(), order.TotalAmount) {
		t.Errorf("distributed total = %v, want %v", dist.Total(), order.TotalAmount)
	}
}

func TestComputeDistributionConservation(t *testing.T) {
	companyID := primitive.NewObjectID()
	managerA := primitive.NewObjectID()
	managerB := primitive.NewObjectID()

	pa := managedProduct(companyID, managerA)
	pb := managedProduct(companyID, managerB)
	pc := models.Product{ID: primitive.NewObjectID(), CompanyID: companyID} // unattributed

	order := models.Order{
		ID:          primitive.NewObjectID(),
		CompanyID:   companyID,
		TotalAmount: 803.37,
	}
	items := []models.OrderItem{
		{ProductID: pa.ID, Quantity: 3, Price: 19.99},
		{ProductID: pb.ID, Quantity: 1, Price: 450},
		{ProductID: pc.ID, Quantity: 2, Price: 120.5},
	}
	products := map[primitive.ObjectID]models.Product{pa.ID: pa, pb.ID: pb, pc.ID: pc}
	managers := map[primitive.ObjectID]models.User{
		managerA: {ID: managerA, CommissionRate: 7.5},
		managerB: {ID: managerB, CommissionRate: 30},
	}

	dist := ComputeDistribution(order, items, products, managers, true)

	if math.Abs(dist.Total()-order.TotalAmount) > 1e-6 {
		t.Errorf("distributed total = %v, want %v", dist.Total(), order.TotalAmount)
	}
	if dist.ManagerCredits[managerA] <= 0 || dist.ManagerCredits[managerB] <= 0 {
		t.Errorf("both managers should be credited, got %v", dist.ManagerCredits)
	}
}

func TestComputeDistributionUnattributedProduct(t *testing.T) {
	companyID := primitive.NewObjectID()
	product := models.Product{ID: primitive.NewObjectID(), CompanyID: companyID}

	order := models.Order{CompanyID: companyID, TotalAmount: 200}
	items := []models.OrderItem{{ProductID: product.ID, Quantity: 2, Price: 100}}
	products := map[primitive.ObjectID]models.Product{product.ID: product}

	dist := ComputeDistribution(order, items, products, nil, true)

	if !almostEqual(dist.CompanyCredit, 200) {
		t.Errorf("company credit = %v, want 200", dist.CompanyCredit)
	}
	if len(dist.ManagerCredits) != 0 {
		t.Errorf("no manager should be credited, got %v", dist.ManagerCredits)
	}
}

func TestComputeDistributionMissingProductRecord(t *testing.T) {
	companyID := primitive.NewObjectID()

	order := models.Order{CompanyID: companyID, TotalAmount: 100}
	items := []models.OrderItem{{ProductID: primitive.NewObjectID(), Quantity: 1, Price: 100}}

	dist := ComputeDistribution(order, items, map[primitive.ObjectID]models.Product{}, nil, true)

	if !almostEqual(dist.CompanyCredit, 100) {
		t.Errorf("deleted product's share should go to the company, got %v", dist.CompanyCredit)
	}
}

func TestComputeDistributionMissingManagerRecord(t *testing.T) {
	companyID := primitive.NewObjectID()
	managerID := primitive.NewObjectID()
	product := managedProduct(companyID, managerID)

	order := models.Order{CompanyID: companyID, TotalAmount: 100}
	items := []models.OrderItem{{ProductID: product.ID, Quantity: 1, Price: 100}}
	products := map[primitive.ObjectID]models.Product{product.ID: product}

	// Manager record gone: rate defaults to 0, so the company share is 0 and
	// the manager share has nowhere to go.
	dist := ComputeDistribution(order, items, products, map[primitive.ObjectID]models.User{}, true)

	if !almostEqual(dist.CompanyCredit, 0) {
		t.Errorf("company credit = %v, want 0", dist.CompanyCredit)
	}
	if len(dist.ManagerCredits) != 0 {
		t.Errorf("missing manager must not be credited, got %v", dist.ManagerCredits)
	}
}

func TestComputeDistributionMissingCompany(t *testing.T) {
	companyID := primitive.NewObjectID()
	managerID := primitive.NewObjectID()
	product := managedProduct(companyID, managerID)

	order := models.Order{CompanyID: companyID, TotalAmount: 100}
	items := []models.OrderItem{{ProductID: product.ID, Quantity: 1, Price: 100}}
	products := map[primitive.ObjectID]models.Product{product.ID: product}
	managers := map[primitive.ObjectID]models.User{
		managerID: {ID: managerID, CommissionRate: 20},
	}

	dist := ComputeDistribution(order, items, products, managers, false)

	if !almostEqual(dist.CompanyCredit, 0) {
		t.Errorf("missing company must not be credited, got %v", dist.CompanyCredit)
	}
	if !almostEqual(dist.ManagerCredits[managerID], 80) {
		t.Errorf("manager credit = %v, want 80", dist.ManagerCredits[managerID])
	}
}

func TestComputeDistributionCommissionBoundaries(t *testing.T) {
	companyID := primitive.NewObjectID()

	cases := []struct {
		name        string
		rate        float64
		wantCompany float64
		wantManager float64
	}{
		{"zero rate", 0, 0, 100},
		{"full rate", 100, 100, 0},
		{"half rate", 50, 50, 50},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			managerID := primitive.NewObjectID()
			product := managedProduct(companyID, managerID)

			order := models.Order{CompanyID: companyID, TotalAmount: 100}
			items := []models.OrderItem{{ProductID: product.ID, Quantity: 1, Price: 100}}
			products := map[primitive.ObjectID]models.Product{product.ID: product}
			managers := map[primitive.ObjectID]models.User{
				managerID: {ID: managerID, CommissionRate: tc.rate},
			}

			dist := ComputeDistribution(order, items, products, managers, true)

			if !almostEqual(dist.CompanyCredit, tc.wantCompany) {
				t.Errorf("company credit = %v, want %v", dist.CompanyCredit, tc.wantCompany)
			}
			if !almostEqual(dist.ManagerCredits[managerID], tc.wantManager) {
				t.Errorf("manager credit = %v, want %v", dist.ManagerCredits[managerID], tc.wantManager)
			}
		})
	}
}

func TestComputeDistributionZeroSubtotal(t *testing.T) {
	companyID := primitive.NewObjectID()
	product := models.Product{ID: primitive.NewObjectID(), CompanyID: companyID}

	order := models.Order{CompanyID: companyID, TotalAmount: 5} // shipping only
	items := []models.OrderItem{{ProductID: product.ID, Quantity: 1, Price: 0}}
	products := map[primitive.ObjectID]models.Product{product.ID: product}

	// Ratio cannot be formed against a zero subtotal; item amounts settle
	// as-is, which for free items means nothing moves.
	dist := ComputeDistribution(order, items, products, nil, true)

	if !almostEqual(dist.Total(), 0) {
		t.Errorf("distributed total = %v, want 0", dist.Total())
	}
}

func TestComputeDistributionNoItems(t *testing.T) {
	order := models.Order{CompanyID: primitive.NewObjectID(), TotalAmount: 100}

	dist := ComputeDistribution(order, nil, nil, nil, true)

	if !almostEqual(dist.Total(), 0) {
		t.Errorf("empty order must distribute nothing, got %v", dist.Total())
	}
}
