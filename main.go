package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"rendellc/tryfi2mqtt/mqtt"
	"rendellc/tryfi2mqtt/poller"
	"rendellc/tryfi2mqtt/tryfi"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func topicName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

func main() {
	_ = godotenv.Load()

	broker := flag.String("broker", envOr("MQTT_BROKER", "tcp://localhost:1883"), "Broker URL with port")
	mqttClientID := flag.String("client-id", "tryfi2mqtt_client", "ID of MQTT client")
	topicRoot := flag.String("topic-root", "tryfi", "Root of all published topics")
	tryfiUser := flag.String("tryfi-user", os.Getenv("TRYFI_USERNAME"), "TryFi account email")
	tryfiPwd := flag.String("tryfi-password", os.Getenv("TRYFI_PASSWORD"), "TryFi account password")
	pollSeconds := flag.Int("poll-interval", 10, "Seconds between refresh cycles (1-3600)")
	lowBattery := flag.Int("low-battery", poller.DefaultLowBatteryThreshold, "Battery percent below which a low battery event fires")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")

	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	if *tryfiUser == "" || *tryfiPwd == "" {
		log.Fatal().Msg("tryfi credentials missing: set -tryfi-user/-tryfi-password or TRYFI_USERNAME/TRYFI_PASSWORD")
	}
	if err := tryfi.VerifyCatalog(); err != nil {
		log.Fatal().Err(err).Msg("query catalog is inconsistent")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Msg("creating tryfi api client")
	client := tryfi.NewClient(*tryfiUser, *tryfiPwd, log)
	if err := client.Login(ctx); err != nil {
		log.Fatal().Err(err).Msg("cannot log in to tryfi")
	}

	household, err := tryfi.NewHousehold(ctx, client, log)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot fetch household from tryfi")
	}
	log.Info().
		Int("pets", len(household.Pets())).
		Int("bases", len(household.Bases())).
		Str("user", household.CurrentUser().Email()).
		Msg("household loaded")

	mqttClient := mqtt.NewClient(*broker, *mqttClientID, *topicRoot, log)
	if err := mqttClient.Connect(); err != nil {
		log.Fatal().Err(err).Msg("cannot connect to mqtt broker")
	}
	defer mqttClient.Disconnect()
	log.Info().Str("broker", *broker).Msg("connected to broker")

	pub := func(topic string, value any) {
		if err := mqttClient.Publish(topic, value, true); err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("unable to publish value")
		}
	}

	pubEvent := func(topic string, value any) {
		if err := mqttClient.Publish(topic, value, false); err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("unable to publish event")
		}
	}

	publishAll := func() {
		for _, pet := range household.Pets() {
			prefix := "pet/" + topicName(pet.Name())
			pub(prefix+"/activity", pet.ActivityType())
			pub(prefix+"/area", pet.AreaName())
			pub(prefix+"/latitude", pet.Latitude())
			pub(prefix+"/longitude", pet.Longitude())
			if place, ok := pet.PlaceName(); ok {
				pub(prefix+"/place", place)
			}
			pub(prefix+"/lost", pet.IsLost())
			daily := pet.StepStats(tryfi.PeriodDaily)
			pub(prefix+"/steps", daily.Steps)
			pub(prefix+"/step_goal", daily.Goal)
			pub(prefix+"/distance", daily.Distance)
			sleep := pet.SleepStats(tryfi.PeriodDaily)
			pub(prefix+"/sleep", sleep.SleepSeconds)
			pub(prefix+"/nap", sleep.NapSeconds)

			if dev := pet.Device(); dev != nil {
				pub(prefix+"/battery", dev.BatteryPercent())
				pub(prefix+"/charging", dev.IsCharging())
				pub(prefix+"/led", dev.LedOn())
				pub(prefix+"/connection", dev.ConnectionState().Type)
			}
		}
		for _, base := range household.Bases() {
			prefix := "base/" + topicName(base.Name())
			pub(prefix+"/online", base.Online())
			pub(prefix+"/online_quality", base.OnlineQuality())
			pub(prefix+"/network", base.NetworkName())
		}
	}

	publishAll()

	callbacks := poller.Callbacks{
		Refreshed: func() {
			publishAll()
			if err := mqttClient.SetAvailability(true); err != nil {
				log.Warn().Err(err).Msg("unable to publish availability")
			}
		},
		RefreshFailed: func(err error) {
			// consumers treat offline as "entities unavailable"
			if aerr := mqttClient.SetAvailability(false); aerr != nil {
				log.Warn().Err(aerr).Msg("unable to publish availability")
			}
		},
		LocationChanged: func(ev poller.LocationChanged) {
			pubEvent("event/location_changed", ev)
		},
		LowBattery: func(ev poller.LowBattery) {
			pubEvent("event/low_battery", ev)
		},
		LostModeChanged: func(ev poller.LostModeChanged) {
			pubEvent("event/lost_mode_changed", ev)
		},
		ConnectionChanged: func(ev poller.ConnectionChanged) {
			pubEvent("event/connection_state_changed", ev)
		},
	}

	cfg := poller.Config{
		Interval:            time.Duration(*pollSeconds) * time.Second,
		LowBatteryThreshold: *lowBattery,
	}
	p := poller.New(household, cfg, callbacks, log)
	if err := p.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("refresh loop failed")
	}
	fmt.Fprintln(os.Stderr, "shutting down")
}
