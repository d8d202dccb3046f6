package sandbox

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/mrsinham/medbrain/internal/client"
	"github.com/mrsinham/medbrain/internal/util"
)

// cities anchors seeded records around real places.
var cities = []client.Location{
	{Lat: 12.9716, Lng: 77.5946},
	{Lat: 19.0760, Lng: 72.8777},
	{Lat: 40.7128, Lng: -74.0060},
	{Lat: 51.5074, Lng: -0.1278},
	{Lat: 48.8566, Lng: 2.3522},
}

// seedRecords generates n records, one every few days back from now, oldest first.
func seedRecords(rng *rand.Rand, n int, now time.Time) []client.Record {
	recs := make([]client.Record, 0, n)
	for i := n - 1; i >= 0; i-- {
		created := now.Add(-time.Duration(i*3+1) * 24 * time.Hour).UTC().Truncate(time.Second)

		city := cities[rng.IntN(len(cities))]
		loc := client.Location{
			Lat: city.Lat + (rng.Float64()-0.5)/50,
			Lng: city.Lng + (rng.Float64()-0.5)/50,
		}

		var meds []client.Medicine
		for range 1 + rng.IntN(3) {
			name, dosage, timing, duration := util.GenerateMedicine(rng)
			meds = append(meds, client.Medicine{
				Name:     name,
				Dosage:   dosage,
				Duration: timing + ", " + duration,
			})
		}

		recs = append(recs, client.Record{
			ID:           fmt.Sprintf("seed%020d", n-i),
			DoctorName:   util.GenerateDoctorName(rng),
			HospitalName: util.GenerateHospitalName(rng),
			Date:         created.Format("2006-01-02"),
			Location:     &loc,
			Medicines:    meds,
			CreatedAt:    created,
		})
	}
	return recs
}
