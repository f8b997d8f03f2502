package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/fx"
	"go.uber.org/zap"

	config "github.com/phillip/lets-hang-go/config"
	controllers "github.com/phillip/lets-hang-go/controllers"
	"github.com/phillip/lets-hang-go/gateway"
	"github.com/phillip/lets-hang-go/logger"
	middleware "github.com/phillip/lets-hang-go/middleware"
	"github.com/phillip/lets-hang-go/notify"
	"github.com/phillip/lets-hang-go/services/auth"
	"github.com/phillip/lets-hang-go/services/events"
	"github.com/phillip/lets-hang-go/services/payouts"
	"github.com/phillip/lets-hang-go/utils"
)

var Module = fx.Module("routes",
	fx.Provide(
		utils.NewImageStore,
		func(s *events.Service) controllers.EventService { return s },
		func(s *auth.Service) controllers.AuthService { return s },
		func(s *auth.Service) middleware.Authenticator { return s },
		func(l *payouts.Ledger) controllers.PayoutLedger { return l },
		func(g *gateway.Razorpay) controllers.PaymentGateway { return g },
		func(s *utils.ImageStore) controllers.ImageStore { return s },
		NewRouter,
	),
)

type Deps struct {
	fx.In

	Config        *config.Config
	Log           *zap.Logger
	Events        controllers.EventService
	Auth          controllers.AuthService
	Authenticator middleware.Authenticator
	Ledger        controllers.PayoutLedger
	Gateway       controllers.PaymentGateway
	Images        controllers.ImageStore
	Dispatcher    notify.Dispatcher
	Mongo         *mongo.Client
	Redis         *redis.Client
}

// NewRouter builds the gin engine with every API route mounted.
func NewRouter(d Deps) http.Handler {
	if d.Config.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), logger.Gin(d.Log), cors.New(corsConfig(d.Config)))
	SetupRoutes(r, d)
	return r
}

func corsConfig(cfg *config.Config) cors.Config {
	origins := []string{"http://localhost:5173", "http://localhost:3000"}
	for _, o := range strings.Split(cfg.FrontendURL, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "If-None-Match"},
		ExposeHeaders:    []string{"ETag", "Last-Modified"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

func SetupRoutes(r *gin.Engine, d Deps) {
	api := r.Group("/api")

	// health
	api.GET("/health", controllers.Health())
	api.GET("/health/ready", controllers.Ready(d.Mongo, d.Redis))

	protected := middleware.AuthMiddleware(d.Authenticator)
	limiter := middleware.RateLimit(d.Redis, "auth", d.Config.RateLimit.Requests, d.Config.RateLimit.Window)

	// auth
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signup", limiter, controllers.Signup(d.Auth))
		authGroup.POST("/verify-otp", limiter, controllers.VerifyOTP(d.Auth))
		authGroup.POST("/resend-otp", limiter, controllers.ResendOTP(d.Auth))
		authGroup.POST("/signin", limiter, controllers.Signin(d.Auth))
		authGroup.GET("/me", protected, controllers.Me())
		authGroup.PUT("/profile", protected, controllers.UpdateProfile(d.Auth))
	}

	// events
	eventsGroup := api.Group("/events")
	{
		eventsGroup.GET("", controllers.ListEvents(d.Events))
		eventsGroup.GET("/:id", controllers.GetEvent(d.Events))
		eventsGroup.POST("", protected, controllers.CreateEvent(d.Events))
		eventsGroup.PUT("/:id", protected, controllers.UpdateEvent(d.Events, d.Images))
		eventsGroup.PATCH("/:id/status", protected, controllers.SetEventStatus(d.Events))
		eventsGroup.GET("/user/hosted", protected, controllers.HostedEvents(d.Events))
		eventsGroup.GET("/user/attending", protected, controllers.AttendingEvents(d.Events))

		eventsGroup.POST("/:id/join", protected, controllers.JoinEvent(d.Events))
		eventsGroup.POST("/:id/request", protected, controllers.RequestToJoin(d.Events))
		eventsGroup.POST("/:id/cancel", protected, controllers.CancelAttendance(d.Events))
		eventsGroup.GET("/:id/status", protected, controllers.EventStatus(d.Events))
		eventsGroup.POST("/:id/requests/:userId/approve", protected, controllers.ApproveRequest(d.Events))
		eventsGroup.POST("/:id/requests/:userId/reject", protected, controllers.RejectRequest(d.Events))

		eventsGroup.POST("/:id/complete", protected, controllers.CompleteEvent(d.Events))
		eventsGroup.POST("/:id/payout", protected, controllers.RequestPayout(d.Events))
		eventsGroup.GET("/:id/payout", protected, controllers.EventPayout(d.Events, d.Ledger))
	}

	payoutsGroup := api.Group("/payouts")
	payoutsGroup.Use(protected)
	{
		payoutsGroup.GET("", controllers.ListPayouts(d.Ledger))
		payoutsGroup.POST("/:id/trigger", middleware.AdminOnly(d.Config), controllers.TriggerPayout(d.Ledger))
	}

	payment := api.Group("/payment")
	{
		payment.GET("/config", controllers.PaymentConfig(d.Gateway))
		payment.POST("/create-order", protected, controllers.CreateOrder(d.Gateway))
		payment.POST("/verify", protected, controllers.VerifyPayment(d.Gateway))
		payment.POST("/refund", protected, controllers.RefundPayment(d.Gateway))
		payment.POST("/send-ticket", protected, controllers.SendTicket(d.Dispatcher))
	}

	api.POST("/uploads/image", protected, controllers.UploadImage(d.Images))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Route not found"})
	})
}
