package controllers

import (
	"errors"
	"math"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/abilsmall/marketplace_backend/models"
)

func TestShippingFeeFor(t *testing.T) {
	cases := []struct {
		name  string
		grams int
		want  float64
	}{
		{"zero weight", 0, shippingBaseFee},
		{"negative weight", -10, shippingBaseFee},
		{"under a kilo rounds up", 300, shippingBaseFee + shippingPerKilo},
		{"exactly one kilo", 1000, shippingBaseFee + shippingPerKilo},
		{"just over a kilo", 1001, shippingBaseFee + 2*shippingPerKilo},
		{"three and a half kilos", 3500, shippingBaseFee + 4*shippingPerKilo},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := shippingFeeFor(tc.grams); got != tc.want {
				t.Errorf("shippingFeeFor(%d) = %v, want %v", tc.grams, got, tc.want)
			}
		})
	}
}

func catalogProduct(companyID primitive.ObjectID, price float64, salePrice *float64, stock, grams int) models.Product {
	return models.Product{
		ID:          primitive.NewObjectID(),
		CompanyID:   companyID,
		Name:        "widget",
		Price:       price,
		SalePrice:   salePrice,
		Stock:       stock,
		WeightGrams: grams,
	}
}

func TestPriceCartSnapshotsTotals(t *testing.T) {
	companyID := primitive.NewObjectID()
	sale := 40.0
	pFull := catalogProduct(companyID, 100, nil, 10, 500)
	pSale := catalogProduct(companyID, 50, &sale, 10, 1500)
	products := map[primitive.ObjectID]models.Product{
		pFull.ID: pFull,
		pSale.ID: pSale,
	}
	items := []models.CartItem{
		{ProductID: pFull.ID, Quantity: 2},
		{ProductID: pSale.ID, Quantity: 1},
	}

	pricing, err := priceCart(items, products, 10)
	if err != nil {
		t.Fatalf("priceCart: %v", err)
	}
	if pricing.CompanyID != companyID {
		t.Errorf("companyID = %s, want %s", pricing.CompanyID.Hex(), companyID.Hex())
	}
	// 2x100 full price plus one item at its sale price.
	if pricing.Subtotal != 240 {
		t.Errorf("subtotal = %v, want 240", pricing.Subtotal)
	}
	if pricing.Discount != 24 {
		t.Errorf("discount = %v, want 24", pricing.Discount)
	}
	if pricing.TotalWeightGrams != 2500 {
		t.Errorf("weight = %d, want 2500", pricing.TotalWeightGrams)
	}
	wantShipping := shippingFeeFor(2500)
	if pricing.Shipping != wantShipping {
		t.Errorf("shipping = %v, want %v", pricing.Shipping, wantShipping)
	}
	wantTotal := 240 - 24 + wantShipping
	if math.Abs(pricing.Total-wantTotal) > 1e-9 {
		t.Errorf("total = %v, want %v", pricing.Total, wantTotal)
	}

	if len(pricing.Lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(pricing.Lines))
	}
	if pricing.Lines[0].Price != 100 || pricing.Lines[1].Price != 40 {
		t.Errorf("snapshot prices = %v, %v, want 100, 40", pricing.Lines[0].Price, pricing.Lines[1].Price)
	}
}

func TestPriceCartRejectsMixedCompanies(t *testing.T) {
	a := catalogProduct(primitive.NewObjectID(), 10, nil, 5, 100)
	b := catalogProduct(primitive.NewObjectID(), 10, nil, 5, 100)
	products := map[primitive.ObjectID]models.Product{a.ID: a, b.ID: b}
	items := []models.CartItem{
		{ProductID: a.ID, Quantity: 1},
		{ProductID: b.ID, Quantity: 1},
	}

	if _, err := priceCart(items, products, 0); !errors.Is(err, errCartMixedCompanies) {
		t.Errorf("err = %v, want errCartMixedCompanies", err)
	}
}

func TestPriceCartRejectsMissingProduct(t *testing.T) {
	items := []models.CartItem{{ProductID: primitive.NewObjectID(), Quantity: 1}}

	if _, err := priceCart(items, map[primitive.ObjectID]models.Product{}, 0); !errors.Is(err, errCartProductMissing) {
		t.Errorf("err = %v, want errCartProductMissing", err)
	}
}

func TestPriceCartRejectsInsufficientStock(t *testing.T) {
	p := catalogProduct(primitive.NewObjectID(), 10, nil, 1, 100)
	items := []models.CartItem{{ProductID: p.ID, Quantity: 2}}

	_, err := priceCart(items, map[primitive.ObjectID]models.Product{p.ID: p}, 0)
	var stockErr *stockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("err = %v, want stockError", err)
	}
	if stockErr.name != p.Name {
		t.Errorf("stock error names %q, want %q", stockErr.name, p.Name)
	}
}

func TestPriceCartEmptyCart(t *testing.T) {
	pricing, err := priceCart(nil, map[primitive.ObjectID]models.Product{}, 0)
	if err != nil {
		t.Fatalf("priceCart: %v", err)
	}
	if pricing.Subtotal != 0 || pricing.Total != shippingBaseFee {
		t.Errorf("empty cart total = %v, want base shipping %v", pricing.Total, shippingBaseFee)
	}
}
