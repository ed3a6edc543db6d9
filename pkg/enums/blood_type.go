package enums

import "fmt"

// BloodType is one of the eight ABO/Rh blood groups.
type BloodType string

const (
	BloodTypeAPositive  BloodType = "A+"
	BloodTypeANegative  BloodType = "A-"
	BloodTypeBPositive  BloodType = "B+"
	BloodTypeBNegative  BloodType = "B-"
	BloodTypeABPositive BloodType = "AB+"
	BloodTypeABNegative BloodType = "AB-"
	BloodTypeOPositive  BloodType = "O+"
	BloodTypeONegative  BloodType = "O-"
)

var allBloodTypes = []BloodType{
	BloodTypeAPositive,
	BloodTypeANegative,
	BloodTypeBPositive,
	BloodTypeBNegative,
	BloodTypeABPositive,
	BloodTypeABNegative,
	BloodTypeOPositive,
	BloodTypeONegative,
}

// compatibleDonorsByRecipient maps a recipient blood type to the set of
// donor types whose blood the recipient can receive.
var compatibleDonorsByRecipient = map[BloodType][]BloodType{
	BloodTypeAPositive:  {BloodTypeAPositive, BloodTypeANegative, BloodTypeOPositive, BloodTypeONegative},
	BloodTypeANegative:  {BloodTypeANegative, BloodTypeONegative},
	BloodTypeBPositive:  {BloodTypeBPositive, BloodTypeBNegative, BloodTypeOPositive, BloodTypeONegative},
	BloodTypeBNegative:  {BloodTypeBNegative, BloodTypeONegative},
	BloodTypeABPositive: {BloodTypeAPositive, BloodTypeANegative, BloodTypeBPositive, BloodTypeBNegative, BloodTypeABPositive, BloodTypeABNegative, BloodTypeOPositive, BloodTypeONegative},
	BloodTypeABNegative: {BloodTypeANegative, BloodTypeBNegative, BloodTypeABNegative, BloodTypeONegative},
	BloodTypeOPositive:  {BloodTypeOPositive, BloodTypeONegative},
	BloodTypeONegative:  {BloodTypeONegative},
}

func AllBloodTypes() []BloodType {
	out := make([]BloodType, len(allBloodTypes))
	copy(out, allBloodTypes)
	return out
}

func (b BloodType) IsValid() bool {
	_, ok := compatibleDonorsByRecipient[b]
	return ok
}

func (b BloodType) String() string {
	return string(b)
}

// CompatibleDonors returns the donor blood types a recipient of type b
// can receive from. Unknown types get an empty slice.
func (b BloodType) CompatibleDonors() []BloodType {
	donors, ok := compatibleDonorsByRecipient[b]
	if !ok {
		return nil
	}
	out := make([]BloodType, len(donors))
	copy(out, donors)
	return out
}

// CompatibleRecipients returns the recipient blood types a donor of
// type b can give to. Unknown types get an empty slice.
func (b BloodType) CompatibleRecipients() []BloodType {
	if !b.IsValid() {
		return nil
	}
	out := make([]BloodType, 0, len(allBloodTypes))
	for _, recipient := range allBloodTypes {
		if b.CanDonateTo(recipient) {
			out = append(out, recipient)
		}
	}
	return out
}

// CanDonateTo reports whether blood of type b can be given to a
// recipient of the given type.
func (b BloodType) CanDonateTo(recipient BloodType) bool {
	for _, donor := range compatibleDonorsByRecipient[recipient] {
		if donor == b {
			return true
		}
	}
	return false
}

func ParseBloodType(value string) (BloodType, error) {
	candidate := BloodType(value)
	if !candidate.IsValid() {
		return "", fmt.Errorf("invalid blood type %q", value)
	}
	return candidate, nil
}
