package routes

import (
	"net/http"
	"time"

	"foodhub/handlers"
	"foodhub/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	rd "github.com/redis/go-redis/v9"
)

// Deps is everything the router needs from main.
type Deps struct {
	Web   *handlers.Web
	API   *handlers.API
	Store sessions.Store

	// DemoUserID lets anonymous browsers use the cart as this user. Zero disables it.
	DemoUserID uint
	JWTSecret  []byte

	// Redis backs the rate limiter; nil disables limiting.
	Redis       *rd.Client
	RateLimit   int
	RateWindow  time.Duration
	CORSOrigins []string
}

func Setup(r *gin.Engine, d Deps) {
	limit := middleware.RedisRateLimit(d.Redis, d.RateLimit, d.RateWindow)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "FoodHub ordering",
		})
	})
	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/restaurants")
	})

	// ── HTML pages ────────────────────────────────────────────────
	site := r.Group("/")
	site.Use(middleware.Identity(d.Store, d.DemoUserID))
	{
		site.GET("/restaurants", d.Web.ListRestaurants)
		site.GET("/restaurants/:id", d.Web.ShowRestaurant)

		site.GET("/login", d.Web.LoginForm)
		site.POST("/login", limit, d.Web.Login)
		site.GET("/register", d.Web.RegisterForm)
		site.POST("/register", limit, d.Web.Register)
		site.GET("/logout", d.Web.Logout)
		site.POST("/logout", d.Web.Logout)

		// Gateway pages are reached by redirect and carry the order id.
		site.GET("/mockpay", d.Web.MockPay)
		site.GET("/bankpay", d.Web.BankPay)
		site.GET("/payment/callback", d.Web.PaymentCallback)
		site.GET("/orders/:id/result", d.Web.OrderResult)
	}

	shopper := site.Group("/")
	shopper.Use(middleware.RequireUser(d.Store))
	{
		shopper.POST("/cart/add", d.Web.AddToCart)
		shopper.GET("/cart/:restaurantId", d.Web.ShowCart)
		shopper.POST("/cart/update", d.Web.UpdateCart)
		shopper.POST("/cart/remove", d.Web.RemoveFromCart)

		shopper.GET("/checkout/:restaurantId", d.Web.CheckoutForm)
		shopper.POST("/checkout/:restaurantId", limit, d.Web.CheckoutSubmit)

		shopper.GET("/orders", d.Web.ListOrders)
	}

	// ── JSON API ──────────────────────────────────────────────────
	public := r.Group("/api")
	public.Use(middleware.CORS(d.CORSOrigins))
	{
		public.POST("/auth/register", limit, d.API.Register)
		public.POST("/auth/login", limit, d.API.Login)

		public.GET("/restaurants", d.API.ListRestaurants)
		public.GET("/restaurants/:id", d.API.GetRestaurant)

		public.GET("/state-machine", d.API.GetStateMachineInfo)

		// Preflight requests are answered by the CORS middleware.
		public.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	}

	auth := public.Group("")
	auth.Use(middleware.AuthRequired(d.JWTSecret))
	{
		auth.GET("/profile", d.API.GetProfile)

		auth.GET("/cart/:restaurantId", d.API.GetCart)
		auth.POST("/cart/items", d.API.AddCartItem)
		auth.PATCH("/cart/items", d.API.UpdateCartItem)
		auth.DELETE("/cart/items", d.API.RemoveCartItem)

		auth.POST("/checkout/:restaurantId", limit, d.API.Checkout)

		auth.GET("/orders", d.API.GetMyOrders)
		auth.GET("/orders/:id", d.API.GetOrderDetail)
		auth.POST("/orders/:id/payment", d.API.ReportPayment)
	}
}
