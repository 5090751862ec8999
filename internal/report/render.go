package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// Separator is printed after the rows of each report.
const Separator = "----------------------------------------"

// Options selects the report arguments used by Run.
type Options struct {
	IncidentType string
	TopOwners    int
}

// DefaultOptions returns the engine incident type and the top three owners.
func DefaultOptions() Options {
	return Options{IncidentType: EngineIncidentType, TopOwners: TopOwnerCount}
}

// Print writes label, one indented JSON document per row and the separator.
func Print[T any](w io.Writer, label string, rows []T) error {
	if _, err := fmt.Fprintln(w, label); err != nil {
		return err
	}
	for _, row := range rows {
		data, err := json.MarshalIndent(row, "", "  ")
		if err != nil {
			return fmt.Errorf("encode %s row: %w", label, err)
		}
		if _, err := fmt.Fprintln(w, string(data)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, Separator)
	return err
}

// Run executes the three reports in order and prints them to w. The first
// failing report aborts the run; reports already printed stay printed.
func Run(ctx context.Context, r Reporter, w io.Writer, opts Options) error {
	if opts.IncidentType == "" {
		opts.IncidentType = EngineIncidentType
	}
	if opts.TopOwners <= 0 {
		opts.TopOwners = TopOwnerCount
	}

	batteries, err := r.BatteryAverageByBrand(ctx)
	if err != nil {
		return err
	}
	if err := Print(w, "1) Battery average per brand", batteries); err != nil {
		return err
	}

	alerts, err := r.MaintenanceAlerts(ctx, opts.IncidentType)
	if err != nil {
		return err
	}
	if err := Print(w, fmt.Sprintf("2) Maintenance alerts (incidents.type == %q)", opts.IncidentType), alerts); err != nil {
		return err
	}

	owners, err := r.TopOwners(ctx, opts.TopOwners)
	if err != nil {
		return err
	}
	if err := Print(w, fmt.Sprintf("3) Top %d owners by vehicle count", opts.TopOwners), owners); err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, "Script complete.")
	return err
}
