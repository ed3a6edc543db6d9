package enums

import "fmt"

// UserMode controls whether a user participates as a donor, a seeker,
// or both.
type UserMode string

const (
	UserModeDonor  UserMode = "donor"
	UserModeSeeker UserMode = "seeker"
	UserModeBoth   UserMode = "both"
)

func (m UserMode) IsValid() bool {
	switch m {
	case UserModeDonor, UserModeSeeker, UserModeBoth:
		return true
	}
	return false
}

func (m UserMode) String() string {
	return string(m)
}

// CanDonate reports whether a user in this mode is a fan-out candidate.
func (m UserMode) CanDonate() bool {
	return m == UserModeDonor || m == UserModeBoth
}

func ParseUserMode(value string) (UserMode, error) {
	candidate := UserMode(value)
	if !candidate.IsValid() {
		return "", fmt.Errorf("invalid user mode %q", value)
	}
	return candidate, nil
}
