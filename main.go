package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/ton-paylink/config"
	"github.com/yourusername/ton-paylink/handlers"
	"github.com/yourusername/ton-paylink/invoices"
	"github.com/yourusername/ton-paylink/middleware"
	"github.com/yourusername/ton-paylink/pricing"
	"github.com/yourusername/ton-paylink/store"
	"github.com/yourusername/ton-paylink/wallet"
)

type app struct {
	cfg       *config.Config
	log       *logrus.Entry
	prices    pricing.PriceClientInterface
	creator   *invoices.Creator
	dashboard *invoices.Dashboard
}

func newApp(cfg *config.Config, log *logrus.Entry, kv store.KV, prices pricing.PriceClientInterface, signer wallet.Signer) (*app, error) {
	fallback, err := decimal.NewFromString(cfg.FallbackRate)
	if err != nil {
		return nil, fmt.Errorf("invalid fallback rate %q: %w", cfg.FallbackRate, err)
	}
	links := invoices.LinkBuilder{
		Scheme:             cfg.LinkScheme,
		ReferenceMaxLength: cfg.ReferenceMaxLength,
		FallbackRate:       fallback,
	}

	invoiceStore := store.NewInvoiceStore(kv, cfg.StorageKeyPrefix, cfg.Testnet, log)
	creator, err := invoices.NewCreator(prices, signer, invoiceStore, links, invoices.WorkflowConfig{
		DescriptionMaxLength: cfg.DescriptionMaxLength,
		MemoMaxBytes:         cfg.MemoMaxBytes,
		SignAmountTON:        cfg.SignAmountTON,
		SignValidity:         cfg.SignValidity,
		Testnet:              cfg.Testnet,
	}, log)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:       cfg,
		log:       log,
		prices:    prices,
		creator:   creator,
		dashboard: invoices.NewDashboard(invoiceStore, links, cfg.Testnet, log),
	}, nil
}

func (a *app) router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if a.cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(middleware.RequestLogger(a.log))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "ton-paylink-api",
		})
	})

	api := router.Group("/api/v1")
	{
		authHandler := handlers.NewAuthHandler(a.cfg)
		api.POST("/wallet/connect", authHandler.Connect)
		api.POST("/wallet/refresh", authHandler.Refresh)

		priceHandler := handlers.NewPriceHandler(a.prices, a.cfg.FiatCurrency, a.log)
		api.GET("/price", priceHandler.GetPrice)

		invoiceHandler := handlers.NewInvoiceHandler(a.creator, a.dashboard, a.log)
		secured := api.Group("/invoices", middleware.JwtAuthMiddleware(a.cfg), middleware.RequireWallet())
		secured.POST("", invoiceHandler.CreateInvoice)
		secured.GET("", invoiceHandler.ListInvoices)
		secured.GET("/export.csv", invoiceHandler.ExportCSV)
		secured.GET("/creation", invoiceHandler.CreationState)
		secured.GET("/:id", invoiceHandler.GetInvoice)
		secured.DELETE("/:id", invoiceHandler.DeleteInvoice)
		secured.GET("/:id/payment", invoiceHandler.PaymentDetails)
		secured.GET("/:id/qr.png", invoiceHandler.PaymentQR)
		secured.GET("/:id/pdf", invoiceHandler.ExportPDF)
	}

	return router
}

func newLogger(cfg *config.Config) *logrus.Entry {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithError(err).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return logrus.NewEntry(log).WithField("service", "ton-paylink-api")
}

// newSigner prefers a wallet app behind the bridge; a configured seed switches to headless signing.
func newSigner(ctx context.Context, cfg *config.Config, log *logrus.Entry) (wallet.Signer, error) {
	if cfg.WalletSeed == "" {
		log.WithField("bridge", cfg.BridgeURL).Info("signing through wallet bridge")
		return wallet.NewBridgeSigner(cfg.BridgeURL, log), nil
	}
	seed, err := wallet.NewSeedSigner(ctx, cfg.LiteConfigURL, cfg.WalletSeed, cfg.Testnet, log)
	if err != nil {
		return nil, err
	}
	log.WithField("wallet", seed.Address()).Warn("headless signing enabled, only this wallet can create invoices")
	return seed, nil
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := newLogger(cfg)

	// sentry init needs to happen before the gin middlewares are added
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:          cfg.SentryDSN,
			IgnoreErrors: []string{"401"},
		}); err != nil {
			log.Errorf("sentry init error: %v", err)
		}
	}

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	signer, err := newSigner(context.Background(), cfg, log)
	if err != nil {
		log.Fatalf("Failed to set up wallet signer: %v", err)
	}

	prices := pricing.NewClient(cfg.PriceURL, cfg.PriceField, cfg.PriceTimeout, log)
	a, err := newApp(cfg, log, store.NewGormKV(db), prices, signer)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	log.Infof("Starting TON PayLink API server on port %s", cfg.Port)
	if err := a.router().Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
