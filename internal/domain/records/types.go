package records

type Kind string

const (
	KindMedicalVisit Kind = "MEDICAL_VISIT"
	KindVaccination  Kind = "VACCINATION"
)

func (k Kind) Valid() bool {
	return k == KindMedicalVisit || k == KindVaccination
}

type Status string

const (
	StatusActive Status = "active"
	StatusVoided Status = "voided"
)
