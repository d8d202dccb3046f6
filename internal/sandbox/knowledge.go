package sandbox

import (
	"strings"
)

// condition is a disease and the symptoms that point to it.
type condition struct {
	Disease  string
	Symptoms []string
}

var conditions = []condition{
	{Disease: "Influenza", Symptoms: []string{"fever", "chills", "body ache", "muscle pain", "fatigue", "headache"}},
	{Disease: "Common Cold", Symptoms: []string{"runny nose", "sneezing", "sore throat", "cough", "congestion"}},
	{Disease: "Migraine", Symptoms: []string{"headache", "nausea", "light sensitivity", "aura", "dizziness"}},
	{Disease: "Gastroenteritis", Symptoms: []string{"diarrhea", "vomiting", "nausea", "stomach pain", "abdominal pain"}},
	{Disease: "Allergic Rhinitis", Symptoms: []string{"sneezing", "itchy eyes", "runny nose", "watery eyes"}},
	{Disease: "Dengue", Symptoms: []string{"high fever", "joint pain", "rash", "pain behind eyes", "bleeding gums"}},
	{Disease: "Hypertension", Symptoms: []string{"chest pain", "blurred vision", "shortness of breath", "nosebleed"}},
	{Disease: "Diabetes", Symptoms: []string{"thirst", "frequent urination", "weight loss", "blurred vision", "hunger"}},
}

// fallbackDisease is predicted when no symptom matches.
const fallbackDisease = "Common Cold"

// Predict scores every condition by the number of matching symptoms and
// returns the best one. Ties go to the condition listed first.
func Predict(symptoms ...string) string {
	best, bestScore := fallbackDisease, 0
	for _, c := range conditions {
		score := 0
		for _, s := range symptoms {
			s = strings.ToLower(strings.TrimSpace(s))
			if s == "" {
				continue
			}
			for _, known := range c.Symptoms {
				if strings.Contains(s, known) || strings.Contains(known, s) {
					score++
					break
				}
			}
		}
		if score > bestScore {
			best, bestScore = c.Disease, score
		}
	}
	return best
}

// topics maps question keywords to canned answers.
var topics = []struct {
	Keywords []string
	Answer   string
}{
	{[]string{"fever", "temperature"}, "A fever is usually the body fighting an infection. Rest, drink fluids and see a doctor if it stays above 39°C or lasts more than three days."},
	{[]string{"headache", "migraine"}, "Most headaches ease with rest, water and over-the-counter pain relief. Sudden, severe or persistent headaches need medical attention."},
	{[]string{"cough", "cold", "throat"}, "Colds usually clear within a week or two. Warm fluids and rest help; see a doctor if you have trouble breathing or a high fever."},
	{[]string{"diet", "nutrition", "eat"}, "A balanced diet has plenty of vegetables, fruit, whole grains and lean protein, with limited sugar and salt."},
	{[]string{"sleep", "insomnia"}, "Adults need seven to nine hours of sleep. A regular schedule and avoiding screens before bed help."},
	{[]string{"exercise", "workout", "activity"}, "Aim for at least 150 minutes of moderate activity each week, plus muscle strengthening twice a week."},
	{[]string{"blood pressure", "hypertension"}, "Normal blood pressure is below 120/80 mmHg. Reducing salt, exercising and managing stress help keep it in range."},
}

// defaultAnswer is given when no topic matches.
const defaultAnswer = "I can share general health information about symptoms, diet, sleep and exercise. For a diagnosis, please consult a doctor."

// Answer returns the canned answer whose keywords best match question.
func Answer(question string) string {
	q := strings.ToLower(question)
	for _, t := range topics {
		for _, k := range t.Keywords {
			if strings.Contains(q, k) {
				return t.Answer
			}
		}
	}
	return defaultAnswer
}
