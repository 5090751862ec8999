package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/ukydev/fleet-analytics/internal/ingest"
)

func newIngestCmd(a *app) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Apply live MQTT telemetry to vehicles until interrupted",
		Long: `ingest subscribes to MQTT_TOPIC on MQTT_BROKER and updates the last
position and battery level of the vehicle named by each message, matched on
registration. Invalid messages are logged and dropped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			database, err := a.database(ctx)
			if err != nil {
				return err
			}
			sub := &ingest.Subscriber{
				Client: ingest.NewClient(a.cfg.MQTTBroker, a.cfg.MQTTClientID, a.log),
				Topic:  a.cfg.MQTTTopic,
				Handler: &ingest.Handler{
					Store:   a.vehicles(database),
					Log:     a.log,
					Timeout: timeout,
				},
				Log: a.log.WithField("broker", a.cfg.MQTTBroker),
			}
			return sub.Run(ctx)
		},
	}
	cmd.Flags().DurationVar(&timeout, "write-timeout", 5*time.Second, "timeout of each telemetry update")
	return cmd
}
