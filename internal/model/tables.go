package model

// Remote table names.
const (
	TablePatients          = "patients"
	TableAppointments      = "appointments"
	TableTreatments        = "treatments"
	TablePrescriptions     = "prescriptions"
	TablePrescriptionItems = "prescription_items"
	TableInventory         = "inventory"
)

// Tables lists every table the clinic owns, parents before dependents.
var Tables = []string{
	TablePatients,
	TableAppointments,
	TableTreatments,
	TablePrescriptions,
	TablePrescriptionItems,
	TableInventory,
}

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"
