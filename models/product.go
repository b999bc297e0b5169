// models/product.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product belongs to one company and is optionally attributed to one manager.
// Proceeds of unattributed products go entirely to the company at settlement.
type Product struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	CompanyID   primitive.ObjectID  `bson:"companyId" json:"companyId"`
	ManagerID   *primitive.ObjectID `bson:"managerId,omitempty" json:"managerId,omitempty"`
	Name        string              `bson:"name" json:"name"`
	Description string              `bson:"description,omitempty" json:"description,omitempty"`
	Price       float64             `bson:"price" json:"price"`
	SalePrice   *float64            `bson:"salePrice,omitempty" json:"salePrice,omitempty"`
	Stock       int                 `bson:"stock" json:"stock"`
	ImageURL    string              `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	WeightGrams int                 `bson:"weightGrams" json:"weightGrams"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
}

// EffectivePrice returns the sale price when one is set.
func (p *Product) EffectivePrice() float64 {
	if p.SalePrice != nil && *p.SalePrice > 0 {
		return *p.SalePrice
	}
	return p.Price
}

// CartItem is a buyer's staged purchase line.
type CartItem struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

type AddToCartRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type CreateProductRequest struct {
	Name        string   `json:"name" validate:"required,max=150"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price" validate:"required,gt=0"`
	SalePrice   *float64 `json:"salePrice,omitempty"`
	Stock       int      `json:"stock"`
	WeightGrams int      `json:"weightGrams"`
	ManagerID   string   `json:"managerId,omitempty"`
}
