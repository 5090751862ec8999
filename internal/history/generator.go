// Package history generates, loads and queries the telemetry_history
// collection.
package history

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/ukydev/fleet-analytics/internal/models"
)

// City is a named point samples are scattered around.
type City struct {
	Name string
	Lat  float64
	Lon  float64
}

// Cities used by the generator
var Cities = []City{
	{Name: "Paris", Lat: 48.8566, Lon: 2.3522},
	{Name: "Lyon", Lat: 45.7640, Lon: 4.8357},
	{Name: "Marseille", Lat: 43.2965, Lon: 5.3698},
	{Name: "Toulouse", Lat: 43.6047, Lon: 1.4442},
	{Name: "Nice", Lat: 43.7102, Lon: 7.2620},
	{Name: "Nantes", Lat: 47.2184, Lon: -1.5536},
	{Name: "Strasbourg", Lat: 48.5734, Lon: 7.7521},
	{Name: "Bordeaux", Lat: 44.8378, Lon: -0.5792},
	{Name: "Lille", Lat: 50.6292, Lon: 3.0573},
	{Name: "Rennes", Lat: 48.1173, Lon: -1.6778},
}

const (
	// DefaultVehicles is the number of distinct vehicle ids in generated data.
	DefaultVehicles = 200
	// Window bounds how far back generated timestamps go.
	Window = 90 * 24 * time.Hour
	// JitterMeters is the maximum distance of a sample from its city center.
	JitterMeters = 5000

	maxSpeedKmh  = 130
	minEnergyKWh = 0.1
	maxEnergyKWh = 10
)

// Generator produces random telemetry samples. It is not safe for
// concurrent use.
type Generator struct {
	rand     *rand.Rand
	now      func() time.Time
	vehicles []string
}

// NewGenerator returns a generator seeded with seed. Equal seeds and clocks
// produce equal samples.
func NewGenerator(seed int64, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	vehicles := make([]string, DefaultVehicles)
	for i := range vehicles {
		vehicles[i] = VehicleID(i + 1)
	}
	return &Generator{rand: rand.New(rand.NewSource(seed)), now: now, vehicles: vehicles}
}

// VehicleID formats the n-th generated vehicle id, e.g. VEH-0001.
func VehicleID(n int) string {
	return fmt.Sprintf("VEH-%04d", n)
}

// Sample returns one random sample.
func (g *Generator) Sample() models.TelemetrySample {
	now := g.now()
	city := Cities[g.rand.Intn(len(Cities))]
	lat, lon := g.jitter(city.Lat, city.Lon, JitterMeters)
	offset := time.Duration(g.rand.Int63n(int64(Window)))

	return models.TelemetrySample{
		VehicleID: g.vehicles[g.rand.Intn(len(g.vehicles))],
		Timestamp: now.Add(-offset),
		Location: models.SampleLocation{
			City:   city.Name,
			Coords: []float64{lon, lat},
		},
		EnergyConsumed: round(minEnergyKWh+g.rand.Float64()*(maxEnergyKWh-minEnergyKWh), 3),
		Speed:          round(g.rand.Float64()*maxSpeedKmh, 2),
		CreatedAt:      now,
	}
}

// Batch returns n samples.
func (g *Generator) Batch(n int) []models.TelemetrySample {
	out := make([]models.TelemetrySample, n)
	for i := range out {
		out[i] = g.Sample()
	}
	return out
}

func (g *Generator) jitter(lat, lon, meters float64) (float64, float64) {
	latMetersPerDeg := 111320.0
	lonMetersPerDeg := 111320.0 * math.Cos(lat*math.Pi/180)
	dLat := (g.rand.Float64()*2 - 1) * (meters / latMetersPerDeg)
	dLon := (g.rand.Float64()*2 - 1) * (meters / lonMetersPerDeg)
	return lat + dLat, lon + dLon
}

func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
