package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nandanugg/gird/config"
)

const metersPerDegreeLat = 111_320.0

type fixMessage struct {
	DeviceID  string   `json:"device_id"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Timestamp int64    `json:"timestamp"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

type options struct {
	broker   string
	device   string
	lat      float64
	lon      float64
	accuracy float64
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Load()
	opts := &options{}

	root := &cobra.Command{
		Use:   "publisher",
		Short: "Publish simulated position fixes over MQTT",
	}
	root.PersistentFlags().StringVar(&opts.broker, "broker", cfg.MQTTBroker, "MQTT broker URL")
	root.PersistentFlags().StringVar(&opts.device, "device", cfg.DeviceID, "device id the fixes belong to")
	root.PersistentFlags().Float64Var(&opts.lat, "lat", 40.7128, "latitude")
	root.PersistentFlags().Float64Var(&opts.lon, "lon", -74.0060, "longitude")
	root.PersistentFlags().Float64Var(&opts.accuracy, "accuracy", 0, "reported accuracy in meters, 0 to omit")

	root.AddCommand(newOnceCmd(opts), newWalkCmd(opts))
	return root
}

func newOnceCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Publish a single fix at --lat/--lon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := zap.NewExample()
			client, err := connect(opts.broker)
			if err != nil {
				return err
			}
			defer client.Disconnect(250)

			return publish(client, logger, opts, opts.lat, opts.lon)
		},
	}
}

func newWalkCmd(opts *options) *cobra.Command {
	var (
		distance float64
		steps    int
		interval time.Duration
		loops    int
	)

	cmd := &cobra.Command{
		Use:   "walk",
		Short: "Walk north from --lat/--lon and back, crossing any fence centred there",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if steps <= 0 || distance <= 0 {
				return fmt.Errorf("steps and distance must be positive")
			}
			logger := zap.NewExample()
			client, err := connect(opts.broker)
			if err != nil {
				return err
			}
			defer client.Disconnect(250)

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for loop := 0; loops <= 0 || loop < loops; loop++ {
				for i := 0; i <= 2*steps; i++ {
					offset := distance * float64(steps-int(math.Abs(float64(steps-i)))) / float64(steps)
					lat := opts.lat + offset/metersPerDegreeLat
					if err := publish(client, logger, opts, lat, opts.lon); err != nil {
						return err
					}
					select {
					case <-ticker.C:
					case <-cmd.Context().Done():
						return nil
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&distance, "distance", 300, "furthest point of the walk in meters")
	cmd.Flags().IntVar(&steps, "steps", 10, "fixes between the start and the furthest point")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "delay between fixes")
	cmd.Flags().IntVar(&loops, "loops", 1, "round trips to make, 0 for forever")
	return cmd
}

func connect(broker string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(fmt.Sprintf("gird-publisher-%d", time.Now().UnixNano()))

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return client, nil
}

func publish(client mqtt.Client, logger *zap.Logger, opts *options, lat, lon float64) error {
	msg := fixMessage{
		DeviceID:  opts.device,
		Latitude:  lat,
		Longitude: lon,
		Timestamp: time.Now().UnixMilli(),
	}
	if opts.accuracy > 0 {
		acc := opts.accuracy
		msg.Accuracy = &acc
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode fix: %w", err)
	}
	topic := fmt.Sprintf("/gird/device/%s/fix", opts.device)

	token := client.Publish(topic, 1, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	logger.Info("published", zap.String("topic", topic), zap.Float64("lat", lat), zap.Float64("lon", lon))
	return nil
}
