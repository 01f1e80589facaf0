package handlers

import (
	"errors"
	"net/http"
	"time"

	"foodhub/middleware"
	"foodhub/models"
	"foodhub/services"
	"foodhub/statemachine"

	"github.com/gin-gonic/gin"
)

// API serves the JSON endpoints under /api.
type API struct {
	Catalog   *services.CatalogService
	Auth      *services.AuthService
	Carts     *services.CartService
	Orders    *services.OrderService
	JWTSecret []byte
	JWTTTL    time.Duration
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AddCartItemRequest struct {
	RestaurantID uint `json:"restaurant_id" binding:"required"`
	ItemID       uint `json:"item_id" binding:"required"`
	Quantity     int  `json:"quantity"`
}

type CartLineRequest struct {
	CartID   uint `json:"cart_id" binding:"required"`
	ItemID   uint `json:"item_id" binding:"required"`
	Quantity int  `json:"quantity"`
}

type CheckoutRequest struct {
	ShipName      string `json:"ship_name" binding:"required"`
	ShipPhone     string `json:"ship_phone" binding:"required"`
	ShipAddress   string `json:"ship_address" binding:"required"`
	PaymentMethod string `json:"payment_method"`
}

type PaymentResultRequest struct {
	Result string `json:"result" binding:"required,oneof=success fail"`
}

// respondError writes err as {"error": ...} with the status of its kind
func respondError(c *gin.Context, err error) {
	status := services.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		c.Error(err)
	}
	c.JSON(status, gin.H{"error": services.UserMessage(err)})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func userJSON(u *models.User) gin.H {
	return gin.H{
		"id":        u.ID,
		"username":  u.Username,
		"email":     u.Email,
		"full_name": u.FullName,
		"role":      u.Role,
	}
}

func (a *API) issueToken(c *gin.Context, status int, message string, user *models.User) {
	token, err := middleware.GenerateToken(user, a.JWTSecret, a.JWTTTL)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}
	c.JSON(status, gin.H{
		"message": message,
		"token":   token,
		"user":    userJSON(user),
	})
}

// Register creates a customer account. Other roles are provisioned with
// foodhubctl.
func (a *API) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := a.Auth.Register(c.Request.Context(), services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
		Role:     models.RoleCustomer,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	a.issueToken(c, http.StatusCreated, "Account created successfully", user)
}

// Login authenticates a user and returns a JWT
func (a *API) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := a.Auth.Authenticate(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": services.UserMessage(err)})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	a.issueToken(c, http.StatusOK, "Login successful", user)
}

// GetProfile returns the authenticated user's profile
func (a *API) GetProfile(c *gin.Context) {
	user, err := a.Auth.GetUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ListRestaurants supports ?q= on name or address and ?is_open=1|0
func (a *API) ListRestaurants(c *gin.Context) {
	restaurants, err := a.Catalog.ListRestaurants(c.Request.Context(), services.RestaurantFilter{
		Query: c.Query("q"),
		Open:  services.ParseOpenFilter(c.Query("is_open")),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":       len(restaurants),
		"restaurants": restaurants,
	})
}

// GetRestaurant returns a restaurant and its orderable items
func (a *API) GetRestaurant(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		respondError(c, services.ErrRestaurantNotFound)
		return
	}
	ctx := c.Request.Context()
	r, err := a.Catalog.GetRestaurant(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	items, err := a.Catalog.ListAvailableItems(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurant": r, "items": items})
}

func (a *API) GetCart(c *gin.Context) {
	restaurantID, err := parseID(c.Param("restaurantId"))
	if err != nil {
		respondError(c, services.ErrRestaurantNotFound)
		return
	}
	detail, err := a.Carts.ActiveCartDetail(c.Request.Context(), middleware.GetUserID(c), restaurantID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": detail})
}

func (a *API) AddCartItem(c *gin.Context) {
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	line, err := a.Carts.AddItem(c.Request.Context(), services.AddItemInput{
		UserID:       middleware.GetUserID(c),
		RestaurantID: req.RestaurantID,
		ItemID:       req.ItemID,
		Quantity:     req.Quantity,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Added to cart", "line": line})
}

// UpdateCartItem sets a line's quantity; zero or less removes the line.
func (a *API) UpdateCartItem(c *gin.Context) {
	var req CartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	err := a.Carts.UpdateItemQuantity(c.Request.Context(), middleware.GetUserID(c), req.CartID, req.ItemID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart updated"})
}

func (a *API) RemoveCartItem(c *gin.Context) {
	var req CartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := a.Carts.RemoveItem(c.Request.Context(), middleware.GetUserID(c), req.CartID, req.ItemID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item removed from cart"})
}

// Checkout places an order from the caller's cart. An empty payment_method
// means COD; unknown methods are rejected.
func (a *API) Checkout(c *gin.Context) {
	restaurantID, err := parseID(c.Param("restaurantId"))
	if err != nil {
		respondError(c, services.ErrRestaurantNotFound)
		return
	}
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	method := models.MethodCOD
	if req.PaymentMethod != "" {
		method, _ = models.ParsePaymentMethod(req.PaymentMethod)
	}
	res, err := a.Orders.CreateFromCart(c.Request.Context(), services.CheckoutInput{
		UserID:        middleware.GetUserID(c),
		RestaurantID:  restaurantID,
		ShipName:      req.ShipName,
		ShipPhone:     req.ShipPhone,
		ShipAddress:   req.ShipAddress,
		PaymentMethod: method,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	body := gin.H{
		"message":       res.Message,
		"order":         res.Order,
		"needs_gateway": res.NeedsGateway,
	}
	if res.NeedsGateway {
		body["next"] = nextStep(res.Order.ID, method)
	}
	c.JSON(http.StatusCreated, body)
}

// GetMyOrders returns the caller's orders, newest first
func (a *API) GetMyOrders(c *gin.Context) {
	orders, err := a.Orders.ListForUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// GetOrderDetail returns one order with its lines and latest payment
func (a *API) GetOrderDetail(c *gin.Context) {
	orderID, err := parseID(c.Param("id"))
	if err != nil {
		respondError(c, services.ErrOrderNotFound)
		return
	}
	order, err := a.Orders.GetForUser(c.Request.Context(), middleware.GetUserID(c), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	var latest *models.Payment
	if n := len(order.Payments); n > 0 {
		latest = &order.Payments[n-1]
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "payment": latest})
}

// ReportPayment lets an API client relay the gateway outcome for its own order.
func (a *API) ReportPayment(c *gin.Context) {
	orderID, err := parseID(c.Param("id"))
	if err != nil {
		respondError(c, services.ErrOrderNotFound)
		return
	}
	var req PaymentResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	if _, err := a.Orders.GetForUser(ctx, middleware.GetUserID(c), orderID); err != nil {
		respondError(c, err)
		return
	}
	settled, err := a.Orders.RecordPaymentResult(ctx, orderID, services.ParseOutcome(req.Result))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": settled.Order, "payment": settled.Payment})
}

// GetStateMachineInfo documents the order and payment lifecycles
func (a *API) GetStateMachineInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		statemachine.Order.Name():   statemachine.Order.Transitions(),
		statemachine.Payment.Name(): statemachine.Payment.Transitions(),
		"note":                      "Checkout creates orders in PENDING; the payment callback only moves payment status.",
	})
}
