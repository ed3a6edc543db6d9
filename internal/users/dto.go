package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/qanlink/qanlink-backend/pkg/db/models"
	"github.com/qanlink/qanlink-backend/pkg/enums"
	"github.com/qanlink/qanlink-backend/pkg/types"
)

// Profile is the full view a user gets of their own account.
type Profile struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Email       *string          `json:"email,omitempty"`
	Phone       *string          `json:"phone,omitempty"`
	BloodType   *enums.BloodType `json:"bloodType,omitempty"`
	Mode        enums.UserMode   `json:"mode"`
	Location    *types.Point     `json:"location,omitempty"`
	City        *string          `json:"city,omitempty"`
	Region      *string          `json:"region,omitempty"`
	IsAvailable bool             `json:"isAvailable"`
	HasPushToken bool            `json:"hasPushToken"`
	Preferences Preferences      `json:"preferences"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// Preferences reports the effective notification toggles.
type Preferences struct {
	MatchingRequests bool `json:"matchingRequests"`
	Eligibility      bool `json:"eligibility"`
	RequestAccepted  bool `json:"requestAccepted"`
}

// DonorView is the privacy-safe projection shown in donor search.
// Contact details are never part of it.
type DonorView struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	BloodType   *enums.BloodType `json:"bloodType,omitempty"`
	City        *string          `json:"city,omitempty"`
	Region      *string          `json:"region,omitempty"`
	IsAvailable bool             `json:"isAvailable"`
	DistanceKM  *float64         `json:"distanceKm,omitempty"`
}

func toProfile(user *models.User) *Profile {
	return &Profile{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		Phone:        user.Phone,
		BloodType:    user.BloodType,
		Mode:         user.Mode,
		Location:     user.Location,
		City:         user.City,
		Region:       user.Region,
		IsAvailable:  user.IsAvailable.Effective(true),
		HasPushToken: user.PushToken != nil && *user.PushToken != "",
		Preferences: Preferences{
			MatchingRequests: user.NotifyMatchingRequests.Effective(true),
			Eligibility:      user.NotifyEligibility.Effective(true),
			RequestAccepted:  user.NotifyRequestAccepted.Effective(true),
		},
		CreatedAt: user.CreatedAt,
	}
}

func toDonorView(user models.User, distanceKM *float64) DonorView {
	return DonorView{
		ID:          user.ID,
		Name:        user.Name,
		BloodType:   user.BloodType,
		City:        user.City,
		Region:      user.Region,
		IsAvailable: user.IsAvailable.Effective(true),
		DistanceKM:  distanceKM,
	}
}
