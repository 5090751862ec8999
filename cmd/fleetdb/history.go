package main

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ukydev/fleet-analytics/internal/history"
	"github.com/ukydev/fleet-analytics/internal/report"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Load and query the telemetry history collection",
	}
	cmd.AddCommand(newHistoryLoadCmd(a), newHistoryExplainCmd(a), newHistoryEnergyCmd(a))
	return cmd
}

func newHistoryLoadCmd(a *app) *cobra.Command {
	var (
		total, batch, concurrency int
		seed                      int64
	)
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Insert generated telemetry samples",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			database, err := a.database(ctx)
			if err != nil {
				return err
			}
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			l := &history.Loader{
				Collection:  database.Collection(a.cfg.HistoryCollection),
				Generator:   history.NewGenerator(seed, nil),
				Concurrency: concurrency,
				Log:         a.log.WithField("collection", a.cfg.HistoryCollection),
			}
			start := time.Now()
			n, err := l.Load(ctx, total, batch)
			a.log.WithFields(log.Fields{"inserted": n, "elapsed": time.Since(start).Round(time.Millisecond)}).Info("Load finished")
			return err
		},
	}
	cmd.Flags().IntVar(&total, "total", 100_000, "number of samples to insert")
	cmd.Flags().IntVar(&batch, "batch", 1_000, "samples per InsertMany")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "concurrent InsertMany calls")
	cmd.Flags().Int64Var(&seed, "seed", 0, "generator seed, random when 0")
	return cmd
}

func newHistoryExplainCmd(a *app) *cobra.Command {
	var (
		vehicleID   string
		days        int
		createIndex bool
	)
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Show the query plan of the recent-telemetry query",
		Long: `explain prints the winning plan of a find on the telemetry history,
newest first and limited to 100 documents, for one vehicle and for all
vehicles. With --create-index it also builds the {vehicleId:1, timestamp:-1}
index and explains both queries again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			database, err := a.database(ctx)
			if err != nil {
				return err
			}
			store := history.NewStore(database, a.cfg.HistoryCollection)
			if vehicleID == "" {
				if vehicleID, err = store.SampleVehicleID(ctx); err != nil {
					return err
				}
			}
			since := time.Now().AddDate(0, 0, -days)

			explainAll := func(phase string) error {
				for _, q := range []struct {
					label   string
					vehicle string
				}{{"vehicleId + timestamp", vehicleID}, {"timestamp only", ""}} {
					plan, err := store.Explain(ctx, history.RecentFilter(q.vehicle, since))
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): %v\n", phase, q.label, history.PlanStages(plan))
				}
				return nil
			}

			if err := explainAll("before"); err != nil {
				return err
			}
			if !createIndex {
				return nil
			}
			names, err := store.EnsureIndex(ctx)
			if err != nil {
				return err
			}
			a.log.WithField("indexes", names).Info("Created telemetry history index")
			return explainAll("after")
		},
	}
	cmd.Flags().StringVar(&vehicleID, "vehicle", "", "vehicleId to query, a stored one when empty")
	cmd.Flags().IntVar(&days, "days", 30, "look-back window in days")
	cmd.Flags().BoolVar(&createIndex, "create-index", false, "create the compound index and explain again")
	return cmd
}

func newHistoryEnergyCmd(a *app) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "energy",
		Short: "Total and average energy consumed per city",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			database, err := a.database(ctx)
			if err != nil {
				return err
			}
			rows, err := history.NewStore(database, a.cfg.HistoryCollection).EnergyByCity(ctx, time.Now().AddDate(0, 0, -days))
			if err != nil {
				return err
			}
			return report.Print(cmd.OutOrStdout(), fmt.Sprintf("Energy per city (last %d days)", days), rows)
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "look-back window in days")
	return cmd
}
