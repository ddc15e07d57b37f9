package model

// Appointment statuses.
const (
	AppointmentScheduled = "scheduled"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
	AppointmentNoShow    = "no-show"
)

// Treatment statuses.
const (
	TreatmentPlanned    = "planned"
	TreatmentInProgress = "in-progress"
	TreatmentCompleted  = "completed"
)

var (
	AppointmentStatuses = []string{AppointmentScheduled, AppointmentCompleted, AppointmentCancelled, AppointmentNoShow}
	TreatmentStatuses   = []string{TreatmentPlanned, TreatmentInProgress, TreatmentCompleted}
	DurationChoices     = []int{15, 30, 45, 60, 90, 120}
	Genders             = []string{"Male", "Female", "Other"}
	BloodGroups         = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

	Procedures = []string{
		"Consultation",
		"Cleaning",
		"Scaling",
		"Filling (Composite)",
		"Filling (Amalgam)",
		"Root Canal",
		"Crown",
		"Bridge",
		"Extraction",
		"Implant",
		"Teeth Whitening",
		"Orthodontics",
		"Dentures",
		"X-Ray",
		"Other",
	}

	InventoryCategories = []string{"Consumables", "Materials", "Medication", "Imaging", "Instruments", "Equipment", "Other"}
	InventoryUnits      = []string{"pcs", "box", "roll", "syringe", "bottle", "sheet", "set", "pack"}
)

// Vocabulary is everything a form needs to render its selection inputs.
type Vocabulary struct {
	AppointmentStatuses []string `json:"appointment_statuses"`
	TreatmentStatuses   []string `json:"treatment_statuses"`
	Durations           []int    `json:"durations"`
	Genders             []string `json:"genders"`
	BloodGroups         []string `json:"blood_groups"`
	Procedures          []string `json:"procedures"`
	Categories          []string `json:"inventory_categories"`
	Units               []string `json:"inventory_units"`
}

func NewVocabulary() Vocabulary {
	return Vocabulary{
		AppointmentStatuses: AppointmentStatuses,
		TreatmentStatuses:   TreatmentStatuses,
		Durations:           DurationChoices,
		Genders:             Genders,
		BloodGroups:         BloodGroups,
		Procedures:          Procedures,
		Categories:          InventoryCategories,
		Units:               InventoryUnits,
	}
}
