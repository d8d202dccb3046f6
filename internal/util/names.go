package util

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// Package-level default RNG to avoid allocations when rng is nil
var defaultRNG = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))

var (
	// DoctorFirstNames is the list of first names used for seeded doctors
	DoctorFirstNames = []string{
		"James", "Robert", "Michael", "David", "Thomas", "Daniel", "Matthew", "Andrew",
		"Mary", "Patricia", "Jennifer", "Linda", "Elizabeth", "Sarah", "Emily", "Laura",
		"Priya", "Arjun", "Ananya", "Rohan", "Kavya", "Vikram", "Meera", "Aditya",
		"Lucas", "Hugo", "Louis", "Camille", "Chloé", "Léa", "Manon", "Inès",
	}

	// DoctorLastNames is the list of last names used for seeded doctors
	DoctorLastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Garcia", "Miller", "Wilson", "Taylor",
		"Sharma", "Patel", "Gupta", "Reddy", "Iyer", "Nair", "Mehta", "Kapoor",
		"Martin", "Bernard", "Dubois", "Moreau", "Laurent", "Girard", "Mercier", "Blanc",
	}

	// HospitalPrefixes and HospitalSuffixes compose seeded hospital names
	HospitalPrefixes = []string{
		"City", "General", "St. Mary's", "Riverside", "Apollo", "Fortis", "Lakeside", "Mercy",
		"Northside", "Sunrise", "Green Valley", "Metro",
	}
	HospitalSuffixes = []string{
		"Hospital", "Medical Center", "Clinic", "Health Centre", "Multispeciality Hospital",
	}

	// Medicines is the list of medicines used for seeded prescriptions
	Medicines = []struct {
		Name   string
		Dosage string
	}{
		{"Paracetamol", "500mg"}, {"Amoxicillin", "250mg"}, {"Ibuprofen", "400mg"},
		{"Cetirizine", "10mg"}, {"Metformin", "500mg"}, {"Omeprazole", "20mg"},
		{"Azithromycin", "500mg"}, {"Atorvastatin", "10mg"}, {"Amlodipine", "5mg"},
		{"Salbutamol", "100mcg"}, {"Pantoprazole", "40mg"}, {"Vitamin D3", "1000IU"},
	}

	// Timings is the list of dosage schedules used for seeded prescriptions
	Timings = []string{
		"once daily", "twice daily", "after meals", "before breakfast", "at bedtime", "every 8 hours",
	}
)

// GenerateDoctorName returns a random "Dr. First Last".
// If rng is nil, uses shared default RNG.
func GenerateDoctorName(rng *rand.Rand) string {
	if rng == nil {
		rng = defaultRNG
	}
	first := DoctorFirstNames[rng.IntN(len(DoctorFirstNames))]
	last := DoctorLastNames[rng.IntN(len(DoctorLastNames))]
	return fmt.Sprintf("Dr. %s %s", first, last)
}

// GenerateHospitalName returns a random hospital name.
// If rng is nil, uses shared default RNG.
func GenerateHospitalName(rng *rand.Rand) string {
	if rng == nil {
		rng = defaultRNG
	}
	prefix := HospitalPrefixes[rng.IntN(len(HospitalPrefixes))]
	suffix := HospitalSuffixes[rng.IntN(len(HospitalSuffixes))]
	return prefix + " " + suffix
}

// GenerateMedicine returns a random medicine with its dosage, a timing and a duration.
// If rng is nil, uses shared default RNG.
func GenerateMedicine(rng *rand.Rand) (name, dosage, timing, duration string) {
	if rng == nil {
		rng = defaultRNG
	}
	m := Medicines[rng.IntN(len(Medicines))]
	timing = Timings[rng.IntN(len(Timings))]
	duration = fmt.Sprintf("%d days", 3+rng.IntN(12))
	return m.Name, m.Dosage, timing, duration
}
