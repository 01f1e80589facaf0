package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"foodhub/middleware"
	"foodhub/models"
	"foodhub/services"
	"foodhub/web"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
)

const (
	flashSuccess = "success"
	flashDanger  = "danger"
	flashWarning = "warning"
	flashInfo    = "info"
)

// Web serves the HTML pages and form posts.
type Web struct {
	Catalog *services.CatalogService
	Auth    *services.AuthService
	Carts   *services.CartService
	Orders  *services.OrderService
	Store   sessions.Store
	Pages   *web.Templates
}

func (h *Web) render(c *gin.Context, page string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Flashes"] = middleware.Flashes(c, h.Store)
	data["Authenticated"] = middleware.IsAuthenticated(c)
	data["Username"] = middleware.Username(c)
	data["CSRFField"] = csrf.TemplateField(c.Request)

	var buf bytes.Buffer
	if err := h.Pages.Render(&buf, page, data); err != nil {
		slog.Error("Failed to render template", "page", page, "error", err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (h *Web) flash(c *gin.Context, typ, msg string) {
	middleware.AddFlash(c, h.Store, typ, msg)
}

// fail shows err as a notice and redirects. Unexpected errors are attached
// to the request so the access log carries them.
func (h *Web) fail(c *gin.Context, err error, location string) {
	if services.HTTPStatus(err) >= http.StatusInternalServerError {
		c.Error(err)
	}
	h.flash(c, flashDanger, services.UserMessage(err))
	c.Redirect(http.StatusFound, location)
}

func parseID(s string) (uint, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: invalid id %q", services.ErrValidation, s)
	}
	return uint(n), nil
}

func restaurantPath(id uint) string { return fmt.Sprintf("/restaurants/%d", id) }
func cartPath(id uint) string       { return fmt.Sprintf("/cart/%d", id) }
func checkoutPath(id uint) string   { return fmt.Sprintf("/checkout/%d", id) }

// backTo redirects to base/{raw} when the raw form id is usable, else to
// the restaurant list.
func backTo(base, raw string) string {
	if id, err := parseID(raw); err == nil {
		return fmt.Sprintf("%s/%d", base, id)
	}
	return "/restaurants"
}

func (h *Web) ListRestaurants(c *gin.Context) {
	q := c.Query("q")
	isOpen := c.Query("is_open")
	restaurants, err := h.Catalog.ListRestaurants(c.Request.Context(), services.RestaurantFilter{
		Query: q,
		Open:  services.ParseOpenFilter(isOpen),
	})
	if err != nil {
		c.Error(err)
		c.String(http.StatusInternalServerError, services.UserMessage(err))
		return
	}
	h.render(c, "restaurants.html", gin.H{
		"Title":       "Restaurants",
		"Restaurants": restaurants,
		"Query":       q,
		"IsOpen":      isOpen,
	})
}

func (h *Web) ShowRestaurant(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		h.fail(c, services.ErrRestaurantNotFound, "/restaurants")
		return
	}
	ctx := c.Request.Context()
	r, err := h.Catalog.GetRestaurant(ctx, id)
	if err != nil {
		h.fail(c, err, "/restaurants")
		return
	}
	items, err := h.Catalog.ListAvailableItems(ctx, id)
	if err != nil {
		h.fail(c, err, "/restaurants")
		return
	}
	h.render(c, "restaurant.html", gin.H{
		"Title":      r.Name,
		"Restaurant": r,
		"Items":      items,
		"Added":      c.Query("added") == "1",
	})
}

func (h *Web) AddToCart(c *gin.Context) {
	rawRestaurant := c.PostForm("restaurant_id")
	restaurantID, err1 := parseID(rawRestaurant)
	itemID, err2 := parseID(c.PostForm("item_id"))
	qty, err3 := strconv.Atoi(strings.TrimSpace(c.DefaultPostForm("quantity", "1")))
	if err1 != nil || err2 != nil || err3 != nil {
		h.fail(c, services.ErrInvalidQuantity, backTo("/restaurants", rawRestaurant))
		return
	}

	_, err := h.Carts.AddItem(c.Request.Context(), services.AddItemInput{
		UserID:       middleware.GetUserID(c),
		RestaurantID: restaurantID,
		ItemID:       itemID,
		Quantity:     qty,
	})
	added := 1
	if err != nil {
		added = 0
		if services.HTTPStatus(err) >= http.StatusInternalServerError {
			c.Error(err)
		}
		h.flash(c, flashDanger, services.UserMessage(err))
	} else {
		h.flash(c, flashSuccess, "Added to cart")
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("%s?added=%d", restaurantPath(restaurantID), added))
}

func (h *Web) ShowCart(c *gin.Context) {
	restaurantID, err := parseID(c.Param("restaurantId"))
	if err != nil {
		h.fail(c, services.ErrRestaurantNotFound, "/restaurants")
		return
	}
	detail, err := h.Carts.ActiveCartDetail(c.Request.Context(), middleware.GetUserID(c), restaurantID)
	if err != nil {
		h.fail(c, err, "/restaurants")
		return
	}
	h.render(c, "cart.html", gin.H{"Title": "Cart", "Cart": detail})
}

// cartLineForm reads the fields shared by the update and remove forms.
func cartLineForm(c *gin.Context) (restaurantID, cartID, itemID uint, err error) {
	if restaurantID, err = parseID(c.PostForm("restaurant_id")); err != nil {
		return
	}
	if cartID, err = parseID(c.PostForm("cart_id")); err != nil {
		return
	}
	itemID, err = parseID(c.PostForm("item_id"))
	return
}

func (h *Web) UpdateCart(c *gin.Context) {
	restaurantID, cartID, itemID, err := cartLineForm(c)
	qty, qerr := strconv.Atoi(strings.TrimSpace(c.DefaultPostForm("quantity", "1")))
	if err != nil || qerr != nil {
		h.fail(c, services.ErrInvalidQuantity, backTo("/cart", c.PostForm("restaurant_id")))
		return
	}
	err = h.Carts.UpdateItemQuantity(c.Request.Context(), middleware.GetUserID(c), cartID, itemID, qty)
	if err != nil {
		h.fail(c, err, cartPath(restaurantID))
		return
	}
	if qty <= 0 {
		h.flash(c, flashSuccess, "Item removed from cart")
	} else {
		h.flash(c, flashSuccess, "Cart updated")
	}
	c.Redirect(http.StatusFound, cartPath(restaurantID))
}

func (h *Web) RemoveFromCart(c *gin.Context) {
	restaurantID, cartID, itemID, err := cartLineForm(c)
	if err != nil {
		h.fail(c, services.ErrInvalidQuantity, backTo("/cart", c.PostForm("restaurant_id")))
		return
	}
	if err := h.Carts.RemoveItem(c.Request.Context(), middleware.GetUserID(c), cartID, itemID); err != nil {
		h.fail(c, err, cartPath(restaurantID))
		return
	}
	h.flash(c, flashSuccess, "Item removed from cart")
	c.Redirect(http.StatusFound, cartPath(restaurantID))
}

func (h *Web) CheckoutForm(c *gin.Context) {
	restaurantID, err := parseID(c.Param("restaurantId"))
	if err != nil {
		h.fail(c, services.ErrRestaurantNotFound, "/restaurants")
		return
	}
	detail, err := h.Carts.ActiveCartDetail(c.Request.Context(), middleware.GetUserID(c), restaurantID)
	if err != nil {
		h.fail(c, err, "/restaurants")
		return
	}
	if detail.Empty() {
		h.flash(c, flashWarning, services.UserMessage(services.ErrEmptyCart))
		c.Redirect(http.StatusFound, restaurantPath(restaurantID))
		return
	}
	h.render(c, "checkout.html", gin.H{"Title": "Checkout", "Cart": detail})
}

// formPaymentMethod defaults a missing field to COD and anything
// unrecognised to CARD.
func formPaymentMethod(c *gin.Context) models.PaymentMethod {
	raw, present := c.GetPostForm("payment_method")
	if !present {
		return models.MethodCOD
	}
	if m, ok := models.ParsePaymentMethod(raw); ok {
		return m
	}
	return models.MethodCard
}

func (h *Web) CheckoutSubmit(c *gin.Context) {
	restaurantID, err := parseID(c.Param("restaurantId"))
	if err != nil {
		h.fail(c, services.ErrRestaurantNotFound, "/restaurants")
		return
	}
	shipName := strings.TrimSpace(c.PostForm("ship_name"))
	shipPhone := strings.TrimSpace(c.PostForm("ship_phone"))
	shipAddress := strings.TrimSpace(c.PostForm("ship_address"))
	if shipName == "" || shipPhone == "" || shipAddress == "" {
		h.flash(c, flashDanger, "Please enter complete shipping information")
		c.Redirect(http.StatusFound, checkoutPath(restaurantID))
		return
	}

	method := formPaymentMethod(c)
	res, err := h.Orders.CreateFromCart(c.Request.Context(), services.CheckoutInput{
		UserID:        middleware.GetUserID(c),
		RestaurantID:  restaurantID,
		ShipName:      shipName,
		ShipPhone:     shipPhone,
		ShipAddress:   shipAddress,
		PaymentMethod: method,
	})
	if err != nil {
		h.fail(c, err, checkoutPath(restaurantID))
		return
	}
	h.flash(c, flashSuccess, res.Message)
	c.Redirect(http.StatusFound, nextStep(res.Order.ID, method))
}

// nextStep is where the browser goes after an order is placed.
func nextStep(orderID uint, method models.PaymentMethod) string {
	switch method {
	case models.MethodBank:
		return fmt.Sprintf("/bankpay?order_id=%d", orderID)
	case models.MethodCOD:
		return resultPath(orderID, "success")
	default:
		return mockPayPath(orderID, string(method))
	}
}

func resultPath(orderID uint, status string) string {
	return fmt.Sprintf("/orders/%d/result?status=%s", orderID, url.QueryEscape(status))
}

func mockPayPath(orderID uint, method string) string {
	return fmt.Sprintf("/mockpay?order_id=%d&method=%s", orderID, url.QueryEscape(method))
}

// MockPay is the simulated card and e-wallet gateway.
func (h *Web) MockPay(c *gin.Context) {
	orderID, err := parseID(c.Query("order_id"))
	if err != nil {
		h.flash(c, flashDanger, "Missing order id")
		c.Redirect(http.StatusFound, "/restaurants")
		return
	}
	h.render(c, "mockpay.html", gin.H{
		"Title":   "Payment",
		"OrderID": orderID,
		"Method":  c.DefaultQuery("method", string(models.MethodCard)),
	})
}

// PaymentCallback records what the gateway reported and shows the result.
func (h *Web) PaymentCallback(c *gin.Context) {
	orderID, err := parseID(c.Query("order_id"))
	if err != nil {
		h.flash(c, flashDanger, "Missing order id")
		c.Redirect(http.StatusFound, "/restaurants")
		return
	}
	outcome := services.ParseOutcome(c.DefaultQuery("result", string(services.OutcomeSuccess)))
	status := "fail"
	if _, err := h.Orders.RecordPaymentResult(c.Request.Context(), orderID, outcome); err != nil {
		if services.HTTPStatus(err) >= http.StatusInternalServerError {
			c.Error(err)
		}
		slog.Warn("payment callback not recorded", "order_id", orderID, "error", err)
	} else if outcome == services.OutcomeSuccess {
		status = "success"
	}
	c.Redirect(http.StatusFound, resultPath(orderID, status))
}

func (h *Web) OrderResult(c *gin.Context) {
	orderID, err := parseID(c.Param("id"))
	if err != nil {
		h.fail(c, services.ErrOrderNotFound, "/restaurants")
		return
	}
	data := gin.H{
		"Title":   "Order result",
		"OrderID": orderID,
		"Status":  c.DefaultQuery("status", "success"),
	}
	if userID, ok := middleware.CurrentUserID(c); ok {
		if order, err := h.Orders.GetForUser(c.Request.Context(), userID, orderID); err == nil {
			data["Order"] = order
		}
	}
	h.render(c, "order_result.html", data)
}

func (h *Web) BankPay(c *gin.Context) {
	orderID, err := parseID(c.Query("order_id"))
	if err != nil {
		h.flash(c, flashDanger, "Missing order id")
		c.Redirect(http.StatusFound, "/restaurants")
		return
	}
	order, payment, err := h.Orders.PaymentInfo(c.Request.Context(), orderID)
	if err != nil || payment == nil {
		if err != nil && services.HTTPStatus(err) >= http.StatusInternalServerError {
			c.Error(err)
		}
		h.flash(c, flashDanger, "Order or payment not found")
		c.Redirect(http.StatusFound, "/restaurants")
		return
	}
	if payment.Method != models.MethodBank {
		c.Redirect(http.StatusFound, mockPayPath(orderID, string(payment.Method)))
		return
	}
	h.render(c, "bankpay.html", gin.H{"Title": "Bank transfer", "Order": order, "Payment": payment})
}

func (h *Web) ListOrders(c *gin.Context) {
	orders, err := h.Orders.ListForUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.fail(c, err, "/restaurants")
		return
	}
	h.render(c, "orders.html", gin.H{"Title": "My orders", "Orders": orders})
}

func (h *Web) LoginForm(c *gin.Context) {
	h.render(c, "login.html", gin.H{"Title": "Log in"})
}

func (h *Web) Login(c *gin.Context) {
	user, err := h.Auth.Authenticate(c.Request.Context(), c.PostForm("username"), c.PostForm("password"))
	if err != nil {
		h.fail(c, err, "/login")
		return
	}
	if err := middleware.Login(c, h.Store, user.ID, user.Username); err != nil {
		c.Error(err)
		h.flash(c, flashDanger, services.UserMessage(err))
		c.Redirect(http.StatusFound, "/login")
		return
	}
	slog.Info("User logged in", "user_id", user.ID)
	h.flash(c, flashSuccess, "Welcome back, "+user.Username)
	c.Redirect(http.StatusFound, "/restaurants")
}

func (h *Web) RegisterForm(c *gin.Context) {
	h.render(c, "register.html", gin.H{"Title": "Register"})
}

// Register always creates customers; other roles come from the operator CLI.
func (h *Web) Register(c *gin.Context) {
	user, err := h.Auth.Register(c.Request.Context(), services.RegisterInput{
		Username: c.PostForm("username"),
		Email:    c.PostForm("email"),
		Password: c.PostForm("password"),
		FullName: c.PostForm("full_name"),
		Phone:    c.PostForm("phone"),
		Role:     models.RoleCustomer,
	})
	if err != nil {
		h.fail(c, err, "/register")
		return
	}
	if err := middleware.Login(c, h.Store, user.ID, user.Username); err != nil {
		c.Error(err)
		h.flash(c, flashInfo, "Account created, please log in.")
		c.Redirect(http.StatusFound, "/login")
		return
	}
	h.flash(c, flashSuccess, "Account created")
	c.Redirect(http.StatusFound, "/restaurants")
}

func (h *Web) Logout(c *gin.Context) {
	if err := middleware.Logout(c, h.Store); err != nil {
		c.Error(err)
	}
	h.flash(c, flashInfo, "You have been logged out.")
	c.Redirect(http.StatusFound, "/login")
}
