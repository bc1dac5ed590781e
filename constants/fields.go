package constants

// Top-level keys of the claim-form record, in output order.
const (
	FieldLastName                = "lastName"
	FieldFirstName               = "firstName"
	FieldIDNumber                = "idNumber"
	FieldGender                  = "gender"
	FieldDateOfBirth             = "dateOfBirth"
	FieldAddress                 = "address"
	FieldLandlinePhone           = "landlinePhone"
	FieldMobilePhone             = "mobilePhone"
	FieldJobType                 = "jobType"
	FieldDateOfInjury            = "dateOfInjury"
	FieldTimeOfInjury            = "timeOfInjury"
	FieldAccidentLocation        = "accidentLocation"
	FieldAccidentAddress         = "accidentAddress"
	FieldAccidentDescription     = "accidentDescription"
	FieldInjuredBodyPart         = "injuredBodyPart"
	FieldSignature               = "signature"
	FieldFormFillingDate         = "formFillingDate"
	FieldFormReceiptDateAtClinic = "formReceiptDateAtClinic"
	FieldMedicalInstitution      = "medicalInstitutionFields"

	FieldHealthFundMember  = "healthFundMember"
	FieldNatureOfAccident  = "natureOfAccident"
	FieldMedicalDiagnoses  = "medicalDiagnoses"
	FieldPhoneNumberLegacy = "phoneNumber"
)

// Date sub-keys.
const (
	DateDay   = "day"
	DateMonth = "month"
	DateYear  = "year"
)

// RecordFields lists every top-level key in output order.
var RecordFields = []string{
	FieldLastName, FieldFirstName, FieldIDNumber, FieldGender,
	FieldDateOfBirth, FieldAddress,
	FieldLandlinePhone, FieldMobilePhone, FieldJobType,
	FieldDateOfInjury, FieldTimeOfInjury,
	FieldAccidentLocation, FieldAccidentAddress, FieldAccidentDescription,
	FieldInjuredBodyPart, FieldSignature,
	FieldFormFillingDate, FieldFormReceiptDateAtClinic,
	FieldMedicalInstitution,
}

// DateFields are the composite {day, month, year} keys.
var DateFields = []string{
	FieldDateOfBirth, FieldDateOfInjury, FieldFormFillingDate, FieldFormReceiptDateAtClinic,
}

// DateParts in canonical order.
var DateParts = []string{DateDay, DateMonth, DateYear}

// AddressParts in canonical order.
var AddressParts = []string{
	"street", "houseNumber", "entrance", "apartment", "city", "postalCode", "poBox",
}

// MedicalInstitutionParts in canonical order.
var MedicalInstitutionParts = []string{
	FieldHealthFundMember, FieldNatureOfAccident, FieldMedicalDiagnoses,
}

// GenderTokens are the recognized gender values (Hebrew and English).
var GenderTokens = []string{"זכר", "נקבה", "male", "female"}

// IsComposite reports whether key holds a nested object.
func IsComposite(key string) bool {
	switch key {
	case FieldAddress, FieldMedicalInstitution:
		return true
	}
	for _, d := range DateFields {
		if d == key {
			return true
		}
	}
	return false
}
