package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ukydev/fleet-analytics/internal/db"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newEvidenceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evidence",
		Short: "Store and fetch incident evidence files in GridFS",
	}
	cmd.AddCommand(newEvidenceUploadCmd(a), newEvidenceDownloadCmd(a))
	return cmd
}

func parseIncidentRef(vehicle, index string) (primitive.ObjectID, int, error) {
	id, err := primitive.ObjectIDFromHex(vehicle)
	if err != nil {
		return primitive.NilObjectID, 0, usageErr("invalid vehicle id %q: %v", vehicle, err)
	}
	i, err := strconv.Atoi(index)
	if err != nil || i < 0 {
		return primitive.NilObjectID, 0, usageErr("invalid incident index %q", index)
	}
	return id, i, nil
}

func newEvidenceUploadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <vehicle-id> <incident-index> <file>",
		Short: "Upload a file and attach it to an incident",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			vehicleID, index, err := parseIncidentRef(args[0], args[1])
			if err != nil {
				return err
			}
			f, err := os.Open(args[2])
			if err != nil {
				return err
			}
			defer f.Close()

			ctx := cmd.Context()
			database, err := a.database(ctx)
			if err != nil {
				return err
			}
			store, err := db.NewEvidenceStore(database, a.vehicles(database))
			if err != nil {
				return err
			}
			fileID, err := store.Upload(ctx, vehicleID, index, filepath.Base(args[2]), f)
			if err != nil {
				return err
			}
			a.log.WithFields(log.Fields{"vehicle_id": vehicleID.Hex(), "incident": index, "file_id": fileID.Hex()}).Info("Uploaded evidence")
			fmt.Fprintln(cmd.OutOrStdout(), fileID.Hex())
			return nil
		},
	}
}

func newEvidenceDownloadCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "download <vehicle-id> <incident-index>",
		Short: "Download the evidence attached to an incident",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			vehicleID, index, err := parseIncidentRef(args[0], args[1])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			database, err := a.database(ctx)
			if err != nil {
				return err
			}
			store, err := db.NewEvidenceStore(database, a.vehicles(database))
			if err != nil {
				return err
			}

			tmp, err := os.CreateTemp(dir, ".evidence-*")
			if err != nil {
				return err
			}
			defer os.Remove(tmp.Name())
			defer tmp.Close()

			name, err := store.Download(ctx, vehicleID, index, tmp)
			if err != nil {
				return err
			}
			if err := tmp.Close(); err != nil {
				return err
			}
			path := evidencePath(dir, name, time.Now())
			if err := os.Rename(tmp.Name(), path); err != nil {
				return err
			}
			a.log.WithFields(log.Fields{"vehicle_id": vehicleID.Hex(), "incident": index, "path": path}).Info("Downloaded evidence")
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "directory the evidence is written to")
	return cmd
}

// evidencePath places name in dir. An existing file is never replaced: the
// name gets a millisecond timestamp suffix instead.
func evidencePath(dir, name string, now time.Time) string {
	path := filepath.Join(dir, filepath.Base(name))
	if _, err := os.Lstat(path); err != nil {
		return path
	}
	return fmt.Sprintf("%s_%d", path, now.UnixMilli())
}
