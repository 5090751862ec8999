package db

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ukydev/fleet-analytics/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNoIncidents   = errors.New("vehicle has no incidents")
	ErrIncidentIndex = errors.New("incident index out of range")
	ErrNoEvidence    = errors.New("no evidence attached to incident")
)

// EvidenceBucket is the part of *gridfs.Bucket used for incident evidence.
type EvidenceBucket interface {
	UploadFromStream(filename string, source io.Reader, opts ...*options.UploadOptions) (primitive.ObjectID, error)
	DownloadToStream(fileID interface{}, stream io.Writer) (int64, error)
	Find(filter interface{}, opts ...*options.GridFSFindOptions) (*mongo.Cursor, error)
	Delete(fileID interface{}) error
}

// EvidenceTarget resolves vehicles and records attached evidence.
type EvidenceTarget interface {
	FindVehicleByID(ctx context.Context, id primitive.ObjectID) (*models.Vehicle, error)
	AttachEvidence(ctx context.Context, id primitive.ObjectID, index int, fileID primitive.ObjectID) error
}

// EvidenceStore keeps incident evidence files in GridFS and links them from
// incidents.<i>.evidenceId.
type EvidenceStore struct {
	Bucket   EvidenceBucket
	Vehicles EvidenceTarget
}

// NewEvidenceStore uses the default fs bucket of database.
func NewEvidenceStore(database *mongo.Database, vehicles EvidenceTarget) (*EvidenceStore, error) {
	bucket, err := gridfs.NewBucket(database)
	if err != nil {
		return nil, fmt.Errorf("open gridfs bucket: %w", err)
	}
	return &EvidenceStore{Bucket: bucket, Vehicles: vehicles}, nil
}

// Upload stores content as filename and attaches it to the index-th incident
// of the vehicle. The file is removed again when it cannot be attached.
func (s *EvidenceStore) Upload(ctx context.Context, vehicleID primitive.ObjectID, index int, filename string, content io.Reader) (primitive.ObjectID, error) {
	if _, err := s.incident(ctx, vehicleID, index); err != nil {
		return primitive.NilObjectID, err
	}

	fileID, err := s.Bucket.UploadFromStream(filename, content)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("upload %s: %w", filename, Classify(err))
	}
	if err := s.Vehicles.AttachEvidence(ctx, vehicleID, index, fileID); err != nil {
		err = fmt.Errorf("attach evidence %s: %w", fileID.Hex(), err)
		if delErr := s.Bucket.Delete(fileID); delErr != nil {
			err = errors.Join(err, fmt.Errorf("delete orphaned evidence %s: %w", fileID.Hex(), Classify(delErr)))
		}
		return primitive.NilObjectID, err
	}
	return fileID, nil
}

// Download writes the evidence of the index-th incident to w and returns the
// stored filename.
func (s *EvidenceStore) Download(ctx context.Context, vehicleID primitive.ObjectID, index int, w io.Writer) (string, error) {
	incident, err := s.incident(ctx, vehicleID, index)
	if err != nil {
		return "", err
	}
	if incident.EvidenceID == nil {
		return "", fmt.Errorf("%w: incident %d of %s", ErrNoEvidence, index, vehicleID.Hex())
	}
	fileID := *incident.EvidenceID

	filename := fmt.Sprintf("evidence_%s_%d", vehicleID.Hex(), index)
	if name, err := s.filename(ctx, fileID); err == nil && name != "" {
		filename = name
	}

	if _, err := s.Bucket.DownloadToStream(fileID, w); err != nil {
		return "", fmt.Errorf("download %s: %w", fileID.Hex(), Classify(err))
	}
	return filename, nil
}

func (s *EvidenceStore) incident(ctx context.Context, vehicleID primitive.ObjectID, index int) (*models.Incident, error) {
	vehicle, err := s.Vehicles.FindVehicleByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if len(vehicle.Incidents) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoIncidents, vehicleID.Hex())
	}
	if index < 0 || index >= len(vehicle.Incidents) {
		return nil, fmt.Errorf("%w: %d of %d", ErrIncidentIndex, index, len(vehicle.Incidents))
	}
	return &vehicle.Incidents[index], nil
}

func (s *EvidenceStore) filename(ctx context.Context, fileID primitive.ObjectID) (string, error) {
	cursor, err := s.Bucket.Find(bson.M{"_id": fileID})
	if err != nil {
		return "", err
	}
	defer cursor.Close(ctx)

	var file struct {
		Filename string `bson:"filename"`
	}
	if !cursor.Next(ctx) {
		return "", cursor.Err()
	}
	if err := cursor.Decode(&file); err != nil {
		return "", err
	}
	return file.Filename, nil
}
