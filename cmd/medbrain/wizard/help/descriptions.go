package help

// HelpText contains information about a field
type HelpText struct {
	Title       string
	Description string
	Details     string
}

// Lookup returns the help of a field, preferring the flow-specific text.
func Lookup(flow, field string) (HelpText, bool) {
	if t, ok := Texts[flow+"."+field]; ok {
		return t, true
	}
	t, ok := Texts[field]
	return t, ok
}

// Texts contains help information for the fields of every flow.
// Keys are "<flow>.<field>" or a bare field key shared by several flows.
var Texts = map[string]HelpText{
	"author": {
		Title:       "DOCTOR NAME",
		Description: "Name of the doctor who wrote the prescription.",
		Details:     "As printed on the prescription, e.g. Dr. Anita Rao",
	},
	"organization": {
		Title:       "HOSPITAL NAME",
		Description: "Hospital or clinic where the prescription was issued.",
	},
	"prescription.date": {
		Title:       "DATE",
		Description: "Date written on the prescription.",
		Details:     "Format: YYYY-MM-DD (e.g., 2024-03-18)",
	},
	"location": {
		Title:       "LOCATION",
		Description: "Where the prescription was written.",
		Details: `Filled from your current position when it can be found.
Otherwise type it as latitude,longitude (e.g., 12.9716,77.5946)`,
	},
	"document": {
		Title:       "ATTACHMENT",
		Description: "Path to a photo or scan of the prescription.",
		Details: `PNG, JPEG, GIF, WebP, BMP and TIFF images are accepted, and DICOM files.
Large images are scaled down before upload. Leave empty to skip.`,
	},
	"items.name": {
		Title:       "MEDICINE NAME",
		Description: "Name of the prescribed medicine.",
	},
	"items.dosage": {
		Title:       "DOSAGE",
		Description: "Amount per intake.",
		Details:     "e.g., 500mg, 2 tablets, 5ml",
	},
	"items.duration": {
		Title:       "DURATION",
		Description: "How long and how often the medicine is taken.",
		Details:     "e.g., twice daily, 7 days",
	},

	"quiz.age": {
		Title:       "AGE",
		Description: "Your age in years.",
	},
	"quiz.gender": {
		Title:       "GENDER",
		Description: "Male or Female.",
	},
	"country": {
		Title:       "COUNTRY",
		Description: "Country you live in.",
	},
	"symptom1": {
		Title:       "FIRST SYMPTOM",
		Description: "Your main symptom.",
		Details:     "One symptom per question, e.g. fever, headache, cough",
	},
	"symptom2": {
		Title:       "SECOND SYMPTOM",
		Description: "Another symptom you have.",
	},
	"symptom3": {
		Title:       "THIRD SYMPTOM",
		Description: "A third symptom you have.",
	},

	"fullName": {
		Title:       "FULL NAME",
		Description: "Your name as it appears on your records.",
	},
	"email": {
		Title:       "EMAIL",
		Description: "Address used to sign in.",
	},
	"mobile": {
		Title:       "MOBILE",
		Description: "Mobile phone number.",
	},
	"profile.gender": {
		Title:       "GENDER",
		Description: "Gender recorded on your profile.",
	},
	"profile.age": {
		Title:       "AGE",
		Description: "Age in years.",
	},
	"dateOfBirth": {
		Title:       "DATE OF BIRTH",
		Description: "Format: YYYY-MM-DD",
	},
	"height": {
		Title:       "HEIGHT",
		Description: "Height in centimetres.",
	},
	"weight": {
		Title:       "WEIGHT",
		Description: "Weight in kilograms.",
	},
	"bloodType": {
		Title:       "BLOOD TYPE",
		Description: "ABO group and Rh factor.",
		Details:     "A+, A-, B+, B-, AB+, AB-, O+ or O-",
	},
	"emergencyContactName": {
		Title:       "EMERGENCY CONTACT",
		Description: "Person to call in an emergency.",
	},
	"chronicDiseases": {
		Title:       "CHRONIC DISEASES",
		Description: "Long-term conditions, comma separated.",
	},
	"allergies": {
		Title:       "ALLERGIES",
		Description: "Known allergies to medicines, food or other substances.",
	},
	"currentMedications": {
		Title:       "CURRENT MEDICATIONS",
		Description: "Medicines you take regularly.",
	},
	"smokingStatus": {
		Title:       "SMOKING",
		Description: "Never, former or current smoker.",
	},
}
