// README: Entry point; loads config, wires services and runs the HTTP server until SIGINT/SIGTERM.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"errandhub/internal/config"
	httptransport "errandhub/internal/http"
	"errandhub/internal/http/handlers"
	"errandhub/internal/infra"
	"errandhub/internal/maps"
	"errandhub/internal/modules/lifecycle"
	"errandhub/internal/modules/location"
	"errandhub/internal/modules/matching"
	"errandhub/internal/modules/payment"
	"errandhub/internal/modules/rating"
	"errandhub/internal/modules/request"
	"errandhub/internal/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log, err := infra.NewLogger(cfg.Log)
	if err != nil {
		logrus.WithError(err).Fatal("logger init")
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("errandhub-api stopped")
	}
}

func run(cfg config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := infra.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		return err
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, app)
	if err != nil {
		return err
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	var notifier notify.Notifier = notify.LogNotifier{Log: log}
	if cfg.Notify.Enabled {
		fcm, err := infra.NewMessaging(ctx, app)
		if err != nil {
			return err
		}
		notifier = notify.Multi{notifier, notify.NewFCMNotifier(fcm, log)}
	}

	var geocoder handlers.Geocoder
	if cfg.Maps.APIKey != "" {
		g, err := maps.NewGeocoder(cfg.Maps.APIKey, "us")
		if err != nil {
			return err
		}
		geocoder = g
	} else {
		log.Info("EH_MAPS_API_KEY not set; pickup_address lookups disabled")
	}

	zones, err := cfg.RestrictedZones()
	if err != nil {
		return err
	}
	area := location.NewServiceArea(zones, cfg.ServiceArea.PopulationThreshold)
	tracker := location.NewTracker(location.NewStore(redisClient))

	requestStore := request.NewStore(dbPool)
	requestSvc := request.NewService(requestStore, area, request.WithLogger(log))
	paymentSvc := payment.NewService(requestStore, payment.DeferredGateway{}, notifier, log)
	controller := lifecycle.NewController(requestStore,
		lifecycle.WithNotifier(notifier),
		lifecycle.WithPayments(paymentSvc),
		lifecycle.WithLogger(log),
	)
	matchingSvc := matching.NewService(requestStore, area, tracker, cfg.Matching, log)
	ratingSvc := rating.NewService(rating.NewStore(dbPool), requestStore, log)

	server := httptransport.NewServer(cfg.HTTP.Addr, cfg.HTTP.ShutdownTimeout, httptransport.ServerDeps{
		Requests:       requestSvc,
		Lifecycle:      controller,
		Matching:       matchingSvc,
		Payments:       paymentSvc,
		Ratings:        ratingSvc,
		Tracker:        tracker,
		Area:           area,
		Geocoder:       geocoder,
		Verifier:       verifier,
		Log:            log,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	})

	log.WithFields(logrus.Fields{
		"env":            cfg.Env,
		"restricted":     len(zones),
		"radius_miles":   cfg.Matching.RadiusMiles,
		"notify_enabled": cfg.Notify.Enabled,
	}).Info("errandhub-api starting")

	return server.Run(ctx)
}
