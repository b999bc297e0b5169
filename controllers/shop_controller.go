package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/abilsmall/marketplace_backend/models"
	"github.com/abilsmall/marketplace_backend/utils"
)

// ShopController serves the product catalog, the cart and checkout.
type ShopController struct {
	DB     *mongo.Client
	logger *log.Logger
}

func NewShopController(db *mongo.Client) *ShopController {
	return &ShopController{
		DB:     db,
		logger: log.New(os.Stdout, "[SHOP] ", log.LstdFlags),
	}
}

// Shipping fee schedule: flat base plus a per-kilogram charge, rounded up to
// whole kilograms.
const (
	shippingBaseFee = 5.0
	shippingPerKilo = 1.5
)

func shippingFeeFor(totalWeightGrams int) float64 {
	if totalWeightGrams <= 0 {
		return shippingBaseFee
	}
	kilos := (totalWeightGrams + 999) / 1000
	return shippingBaseFee + float64(kilos)*shippingPerKilo
}

var (
	errCartProductMissing = errors.New("a cart item no longer exists")
	errCartMixedCompanies = errors.New("order items must come from a single company")
)

type stockError struct {
	name string
}

func (e *stockError) Error() string {
	return "not enough stock for " + e.name
}

type cartPricing struct {
	CompanyID        primitive.ObjectID
	Lines            []models.OrderItem
	Subtotal         float64
	Discount         float64
	Shipping         float64
	Total            float64
	TotalWeightGrams int
}

// priceCart snapshots current effective prices into order lines and prices the
// whole cart. Carts spanning more than one company are rejected.
func priceCart(items []models.CartItem, products map[primitive.ObjectID]models.Product, discountRate float64) (cartPricing, error) {
	var p cartPricing
	for i, item := range items {
		product, ok := products[item.ProductID]
		if !ok {
			return cartPricing{}, errCartProductMissing
		}
		if i == 0 {
			p.CompanyID = product.CompanyID
		} else if product.CompanyID != p.CompanyID {
			return cartPricing{}, errCartMixedCompanies
		}
		if product.Stock < item.Quantity {
			return cartPricing{}, &stockError{name: product.Name}
		}

		price := product.EffectivePrice()
		p.Subtotal += price * float64(item.Quantity)
		p.TotalWeightGrams += product.WeightGrams * item.Quantity
		p.Lines = append(p.Lines, models.OrderItem{
			ProductID: product.ID,
			Quantity:  item.Quantity,
			Price:     price,
		})
	}
	p.Discount = p.Subtotal * discountRate / 100.0
	p.Shipping = shippingFeeFor(p.TotalWeightGrams)
	p.Total = p.Subtotal - p.Discount + p.Shipping
	return p, nil
}

// ListProducts returns the catalog, optionally filtered by company.
func (sc *ShopController) ListProducts(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	filter := bson.M{}
	if companyID := c.QueryParam("companyId"); companyID != "" {
		oid, err := primitive.ObjectIDFromHex(companyID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid company ID",
			})
		}
		filter["companyId"] = oid
	}
	priceRange := bson.M{}
	if min, err := utils.ParseFloat(c.QueryParam("minPrice")); err == nil && min > 0 {
		priceRange["$gte"] = min
	}
	if max, err := utils.ParseFloat(c.QueryParam("maxPrice")); err == nil && max > 0 {
		priceRange["$lte"] = max
	}
	if len(priceRange) > 0 {
		filter["price"] = priceRange
	}

	opts := options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(100)
	cursor, err := sc.DB.Database(dbName()).Collection("products").Find(ctx, filter, opts)
	if err != nil {
		sc.logger.Printf("Failed to list products: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load products",
		})
	}
	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		sc.logger.Printf("Failed to decode products: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load products",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Products retrieved",
		Data:    products,
	})
}

// GetProduct returns one product by ID.
func (sc *ShopController) GetProduct(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid product ID",
		})
	}

	var product models.Product
	if err := sc.DB.Database(dbName()).Collection("products").FindOne(ctx, bson.M{"_id": oid}).Decode(&product); err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Product not found",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Product retrieved",
		Data:    product,
	})
}

// CreateProduct adds a product to the manager's company. The managerId
// attribution may point at any manager of the same company.
func (sc *ShopController) CreateProduct(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, ok := authedUserID(c)
	if !ok {
		return nil
	}

	db := sc.DB.Database(dbName())

	var manager models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&manager); err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "User not found",
		})
	}
	if manager.CompanyID == nil {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Only company managers can create products",
		})
	}

	var req models.CreateProductRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	product := models.Product{
		CompanyID:   *manager.CompanyID,
		Name:        utils.SanitizeInput(req.Name),
		Description: utils.SanitizeInput(req.Description),
		Price:       req.Price,
		SalePrice:   req.SalePrice,
		Stock:       req.Stock,
		WeightGrams: req.WeightGrams,
		CreatedAt:   time.Now(),
	}

	if req.ManagerID != "" {
		attrID, err := primitive.ObjectIDFromHex(req.ManagerID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid manager ID",
			})
		}
		count, err := db.Collection("users").CountDocuments(ctx, bson.M{
			"_id":       attrID,
			"companyId": *manager.CompanyID,
			"role":      models.RoleManager,
		})
		if err != nil || count == 0 {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Attributed manager does not belong to your company",
			})
		}
		product.ManagerID = &attrID
	} else {
		product.ManagerID = &userID
	}

	res, err := db.Collection("products").InsertOne(ctx, product)
	if err != nil {
		sc.logger.Printf("Failed to create product: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create product",
		})
	}
	product.ID = res.InsertedID.(primitive.ObjectID)

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Product created",
		Data:    product,
	})
}

// UploadProductImage attaches an image to a product owned by the manager's
// company.
func (sc *ShopController) UploadProductImage(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, ok := authedUserID(c)
	if !ok {
		return nil
	}

	productID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid product ID",
		})
	}

	db := sc.DB.Database(dbName())

	var manager models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&manager); err != nil || manager.CompanyID == nil {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Only company managers can update products",
		})
	}

	file, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Image file is required",
		})
	}
	if err := utils.ValidateFile(file.Filename, file.Size); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	path, err := utils.SaveUploadedFile(file, "products")
	if err != nil {
		sc.logger.Printf("Failed to save product image: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to save image",
		})
	}

	res, err := db.Collection("products").UpdateOne(ctx,
		bson.M{"_id": productID, "companyId": *manager.CompanyID},
		bson.M{"$set": bson.M{"imageUrl": path}})
	if err != nil {
		sc.logger.Printf("Failed to update product image: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update product",
		})
	}
	if res.MatchedCount == 0 {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Product not found",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Product image updated",
		Data:    map[string]string{"imageUrl": path},
	})
}

// AddToCart stages a product line for the buyer. A second add of the same
// product increments the quantity.
func (sc *ShopController) AddToCart(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, ok := authedUserID(c)
	if !ok {
		return nil
	}

	var req models.AddToCartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	productID, err := primitive.ObjectIDFromHex(req.ProductID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid product ID",
		})
	}

	db := sc.DB.Database(dbName())

	var product models.Product
	if err := db.Collection("products").FindOne(ctx, bson.M{"_id": productID}).Decode(&product); err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Product not found",
		})
	}
	if product.Stock < req.Quantity {
		return c.JSON(http.StatusUnprocessableEntity, models.Response{
			Status:  http.StatusUnprocessableEntity,
			Message: "Not enough stock",
		})
	}

	opts := options.Update().SetUpsert(true)
	_, err = db.Collection("cart_items").UpdateOne(ctx,
		bson.M{"userId": userID, "productId": productID},
		bson.M{
			"$inc":         bson.M{"quantity": req.Quantity},
			"$setOnInsert": bson.M{"createdAt": time.Now()},
		},
		opts,
	)
	if err != nil {
		sc.logger.Printf("Failed to add to cart: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to add to cart",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Added to cart",
	})
}

// GetCart returns the buyer's staged lines with their current products.
func (sc *ShopController) GetCart(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, ok := authedUserID(c)
	if !ok {
		return nil
	}

	items, products, err := sc.loadCart(ctx, userID)
	if err != nil {
		sc.logger.Printf("Failed to load cart: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load cart",
		})
	}

	type cartLine struct {
		Item    models.CartItem `json:"item"`
		Product *models.Product `json:"product,omitempty"`
	}
	lines := make([]cartLine, 0, len(items))
	for _, item := range items {
		line := cartLine{Item: item}
		if p, ok := products[item.ProductID]; ok {
			cp := p
			line.Product = &cp
		}
		lines = append(lines, line)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Cart retrieved",
		Data:    lines,
	})
}

// ClearCart drops all staged lines.
func (sc *ShopController) ClearCart(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, ok := authedUserID(c)
	if !ok {
		return nil
	}

	if _, err := sc.DB.Database(dbName()).Collection("cart_items").DeleteMany(ctx, bson.M{"userId": userID}); err != nil {
		sc.logger.Printf("Failed to clear cart: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to clear cart",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Cart cleared",
	})
}

func (sc *ShopController) loadCart(ctx context.Context, userID primitive.ObjectID) ([]models.CartItem, map[primitive.ObjectID]models.Product, error) {
	db := sc.DB.Database(dbName())

	cursor, err := db.Collection("cart_items").Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, nil, err
	}
	var items []models.CartItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, nil, err
	}

	ids := make([]primitive.ObjectID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	products := make(map[primitive.ObjectID]models.Product, len(ids))
	if len(ids) > 0 {
		cursor, err = db.Collection("products").Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
		if err != nil {
			return nil, nil, err
		}
		var list []models.Product
		if err := cursor.All(ctx, &list); err != nil {
			return nil, nil, err
		}
		for _, p := range list {
			products[p.ID] = p
		}
	}

	return items, products, nil
}

// Checkout turns the cart into a pending order. All lines must belong to one
// company; prices and weights are snapshotted so later catalog edits never
// change what settles.
func (sc *ShopController) Checkout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, ok := authedUserID(c)
	if !ok {
		return nil
	}

	var req models.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	db := sc.DB.Database(dbName())

	var buyer models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&buyer); err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "User not found",
		})
	}

	items, products, err := sc.loadCart(ctx, userID)
	if err != nil {
		sc.logger.Printf("Failed to load cart: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load cart",
		})
	}
	if len(items) == 0 {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Cart is empty",
		})
	}

	pricing, err := priceCart(items, products, buyer.DiscountRate)
	if err != nil {
		var stockErr *stockError
		if errors.As(err, &stockErr) {
			return c.JSON(http.StatusUnprocessableEntity, models.Response{
				Status:  http.StatusUnprocessableEntity,
				Message: "Not enough stock for " + stockErr.name,
			})
		}
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	order := models.Order{
		ID:               primitive.NewObjectID(),
		BuyerID:          userID,
		CompanyID:        pricing.CompanyID,
		TotalAmount:      pricing.Total,
		ShippingFee:      pricing.Shipping,
		DiscountApplied:  pricing.Discount,
		Status:           models.OrderPending,
		DeliveryAddress:  utils.SanitizeInput(req.DeliveryAddress),
		DeliveryPhone:    req.DeliveryPhone,
		TotalWeightGrams: pricing.TotalWeightGrams,
		CreatedAt:        time.Now(),
	}

	if _, err := db.Collection("orders").InsertOne(ctx, order); err != nil {
		sc.logger.Printf("Failed to create order: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create order",
		})
	}
	orderItems := make([]interface{}, 0, len(pricing.Lines))
	for _, line := range pricing.Lines {
		line.OrderID = order.ID
		orderItems = append(orderItems, line)
	}
	if _, err := db.Collection("order_items").InsertMany(ctx, orderItems); err != nil {
		sc.logger.Printf("Failed to store order items: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create order",
		})
	}

	// Decrement stock and empty the cart; neither failure invalidates the
	// already created order.
	for _, item := range items {
		if _, err := db.Collection("products").UpdateOne(ctx,
			bson.M{"_id": item.ProductID},
			bson.M{"$inc": bson.M{"stock": -item.Quantity}},
		); err != nil {
			sc.logger.Printf("Failed to decrement stock for %s: %v", item.ProductID.Hex(), err)
		}
	}
	if _, err := db.Collection("cart_items").DeleteMany(ctx, bson.M{"userId": userID}); err != nil {
		sc.logger.Printf("Failed to clear cart after checkout: %v", err)
	}

	sc.logger.Printf("Order %s created for buyer %s, total %.2f", order.ID.Hex(), userID.Hex(), pricing.Total)
	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Order created, proceed to payment",
		Data:    order,
	})
}

// ListOrders returns the caller's orders, newest first.
func (sc *ShopController) ListOrders(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, ok := authedUserID(c)
	if !ok {
		return nil
	}

	opts := options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(50)
	cursor, err := sc.DB.Database(dbName()).Collection("orders").Find(ctx, bson.M{"buyerId": userID}, opts)
	if err != nil {
		sc.logger.Printf("Failed to list orders: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load orders",
		})
	}
	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		sc.logger.Printf("Failed to decode orders: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load orders",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Orders retrieved",
		Data:    orders,
	})
}

// GetOrder returns one of the caller's orders with its items.
func (sc *ShopController) GetOrder(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, ok := authedUserID(c)
	if !ok {
		return nil
	}

	orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid order ID",
		})
	}

	db := sc.DB.Database(dbName())

	var order models.Order
	if err := db.Collection("orders").FindOne(ctx, bson.M{"_id": orderID, "buyerId": userID}).Decode(&order); err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Order not found",
		})
	}

	cursor, err := db.Collection("order_items").Find(ctx, bson.M{"orderId": orderID})
	if err != nil {
		sc.logger.Printf("Failed to load order items: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load order",
		})
	}
	var items []models.OrderItem
	if err := cursor.All(ctx, &items); err != nil {
		sc.logger.Printf("Failed to decode order items: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load order",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Order retrieved",
		Data: map[string]interface{}{
			"order": order,
			"items": items,
		},
	})
}
