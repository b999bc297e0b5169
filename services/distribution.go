// services/distribution.go
package services

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/abilsmall/marketplace_backend/models"
)

// Distribution is the outcome of splitting an order's total between the
// selling company and its product managers. CompanyCredit plus the sum of
// ManagerCredits equals the order total, minus any share whose owning record
// is missing (a missing party forfeits its share rather than blocking
// settlement of the rest).
type Distribution struct {
	CompanyCredit  float64
	ManagerCredits map[primitive.ObjectID]float64
}

// Total returns the sum of all credited shares.
func (d Distribution) Total() float64 {
	total := d.CompanyCredit
	for _, amount := range d.ManagerCredits {
		total += amount
	}
	return total
}

// ComputeDistribution runs the settlement split. Shipping and discounts apply
// at order granularity while commission applies per product, so each item's
// contribution is scaled by totalAmount/subtotal: that is the only ratio under
// which the distributed shares sum exactly to the order total.
//
// A product with no attributed manager sends its whole share to the company.
// A manager-attributed item splits rate% to the company and the remainder to
// the manager. Missing product, manager or company records are tolerated:
// their shares are skipped, not fatal.
func ComputeDistribution(
	order models.Order,
	items []models.OrderItem,
	products map[primitive.ObjectID]models.Product,
	managers map[primitive.ObjectID]models.User,
	companyExists bool,
) Distribution {
	dist := Distribution{ManagerCredits: make(map[primitive.ObjectID]float64)}

	if len(items) == 0 {
		return dist
	}

	subtotal := 0.0
	for _, item := range items {
		subtotal += item.Price * float64(item.Quantity)
	}

	// Degenerate zero-subtotal orders settle item amounts as-is.
	ratio := 1.0
	if subtotal > 0 {
		ratio = order.TotalAmount / subtotal
	}

	for _, item := range items {
		adjustedTotal := item.Price * float64(item.Quantity) * ratio

		product, ok := products[item.ProductID]
		if !ok || product.ManagerID == nil {
			if companyExists {
				dist.CompanyCredit += adjustedTotal
			}
			continue
		}

		manager, managerExists := managers[*product.ManagerID]
		rate := 0.0
		if managerExists {
			rate = manager.CommissionRate
		}

		companyShare := adjustedTotal * rate / 100.0
		managerShare := adjustedTotal - companyShare

		if companyExists {
			dist.CompanyCredit += companyShare
		}
		if managerExists {
			dist.ManagerCredits[*product.ManagerID] += managerShare
		}
	}

	return dist
}
