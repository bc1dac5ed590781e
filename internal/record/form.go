package record

import "github.com/joseph-ayodele/claims-extractor/constants"

type Date struct {
	Day   string `json:"day"`
	Month string `json:"month"`
	Year  string `json:"year"`
}

type Address struct {
	Street      string `json:"street"`
	HouseNumber string `json:"houseNumber"`
	Entrance    string `json:"entrance"`
	Apartment   string `json:"apartment"`
	City        string `json:"city"`
	PostalCode  string `json:"postalCode"`
	POBox       string `json:"poBox"`
}

type MedicalInstitution struct {
	HealthFundMember string `json:"healthFundMember"`
	NatureOfAccident string `json:"natureOfAccident"`
	MedicalDiagnoses string `json:"medicalDiagnoses"`
}

// Form is the fixed output shape. Field order matches the rendered JSON.
type Form struct {
	LastName                 string             `json:"lastName"`
	FirstName                string             `json:"firstName"`
	IDNumber                 string             `json:"idNumber"`
	Gender                   string             `json:"gender"`
	DateOfBirth              Date               `json:"dateOfBirth"`
	Address                  Address            `json:"address"`
	LandlinePhone            string             `json:"landlinePhone"`
	MobilePhone              string             `json:"mobilePhone"`
	JobType                  string             `json:"jobType"`
	DateOfInjury             Date               `json:"dateOfInjury"`
	TimeOfInjury             string             `json:"timeOfInjury"`
	AccidentLocation         string             `json:"accidentLocation"`
	AccidentAddress          string             `json:"accidentAddress"`
	AccidentDescription      string             `json:"accidentDescription"`
	InjuredBodyPart          string             `json:"injuredBodyPart"`
	Signature                string             `json:"signature"`
	FormFillingDate          Date               `json:"formFillingDate"`
	FormReceiptDateAtClinic  Date               `json:"formReceiptDateAtClinic"`
	MedicalInstitutionFields MedicalInstitution `json:"medicalInstitutionFields"`
}

// String renders a date as DD/MM/YYYY, or "" when no part is set.
func (d Date) String() string {
	if d.Day == "" && d.Month == "" && d.Year == "" {
		return ""
	}
	return d.Day + "/" + d.Month + "/" + d.Year
}

// ToForm reads a record into the fixed shape. Missing or malformed values
// become "", so it is total even on unvalidated input.
func ToForm(r Record) Form {
	date := func(key string) Date {
		m := r.Nested(key)
		return Date{
			Day:   scalarString(m[constants.DateDay]),
			Month: scalarString(m[constants.DateMonth]),
			Year:  scalarString(m[constants.DateYear]),
		}
	}
	addr := r.Nested(constants.FieldAddress)
	med := r.Nested(constants.FieldMedicalInstitution)

	return Form{
		LastName:      r.String(constants.FieldLastName),
		FirstName:     r.String(constants.FieldFirstName),
		IDNumber:      r.String(constants.FieldIDNumber),
		Gender:        r.String(constants.FieldGender),
		DateOfBirth:   date(constants.FieldDateOfBirth),
		LandlinePhone: r.String(constants.FieldLandlinePhone),
		MobilePhone:   r.String(constants.FieldMobilePhone),
		JobType:       r.String(constants.FieldJobType),
		Address: Address{
			Street:      scalarString(addr["street"]),
			HouseNumber: scalarString(addr["houseNumber"]),
			Entrance:    scalarString(addr["entrance"]),
			Apartment:   scalarString(addr["apartment"]),
			City:        scalarString(addr["city"]),
			PostalCode:  scalarString(addr["postalCode"]),
			POBox:       scalarString(addr["poBox"]),
		},
		DateOfInjury:            date(constants.FieldDateOfInjury),
		TimeOfInjury:            r.String(constants.FieldTimeOfInjury),
		AccidentLocation:        r.String(constants.FieldAccidentLocation),
		AccidentAddress:         r.String(constants.FieldAccidentAddress),
		AccidentDescription:     r.String(constants.FieldAccidentDescription),
		InjuredBodyPart:         r.String(constants.FieldInjuredBodyPart),
		Signature:               r.String(constants.FieldSignature),
		FormFillingDate:         date(constants.FieldFormFillingDate),
		FormReceiptDateAtClinic: date(constants.FieldFormReceiptDateAtClinic),
		MedicalInstitutionFields: MedicalInstitution{
			HealthFundMember: scalarString(med[constants.FieldHealthFundMember]),
			NatureOfAccident: scalarString(med[constants.FieldNatureOfAccident]),
			MedicalDiagnoses: scalarString(med[constants.FieldMedicalDiagnoses]),
		},
	}
}
