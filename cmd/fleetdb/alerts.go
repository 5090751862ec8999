package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ukydev/fleet-analytics/internal/db"
	"github.com/ukydev/fleet-analytics/internal/report"
)

func newAlertsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Vehicle alert queries",
	}
	cmd.AddCommand(newLowBatteryCmd(a))
	return cmd
}

func newLowBatteryCmd(a *app) *cobra.Command {
	var (
		maxBattery   int32
		minIncidents int
	)
	cmd := &cobra.Command{
		Use:   "low-battery",
		Short: "Vehicles with a low battery and many incidents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			database, err := a.database(ctx)
			if err != nil {
				return err
			}
			vehicles, err := a.vehicles(database).FindLowBatteryAndManyIncidents(ctx, maxBattery, minIncidents)
			if err != nil {
				return err
			}
			label := fmt.Sprintf("Vehicles with battery < %d%% and more than %d incidents", maxBattery, minIncidents)
			return report.Print(cmd.OutOrStdout(), label, vehicles)
		},
	}
	cmd.Flags().Int32Var(&maxBattery, "max-battery", db.LowBatteryThreshold, "battery percentage strictly below which a vehicle matches")
	cmd.Flags().IntVar(&minIncidents, "min-incidents", db.ManyIncidents, "incident count strictly above which a vehicle matches")
	return cmd
}
