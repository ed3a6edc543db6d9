package centers

import (
	"github.com/google/uuid"

	"github.com/qanlink/qanlink-backend/pkg/db/models"
	"github.com/qanlink/qanlink-backend/pkg/types"
)

// defaultCenters returns the Azerbaijan donation centers seeded into an
// empty deployment.
func defaultCenters() []models.Center {
	return []models.Center{
		{
			ID:       uuid.New(),
			Name:     "Central Blood Bank of Azerbaijan",
			Address:  "14 Yusif Safarov Street",
			City:     "Baku",
			Phone:    strPtr("+994 12 493 0712"),
			Hours:    strPtr("Mon-Fri 9:00-17:00, Sat 9:00-14:00"),
			Location: types.Point{Lat: 40.4093, Lng: 49.8671},
		},
		{
			ID:       uuid.New(),
			Name:     "Republican Blood Transfusion Station",
			Address:  "3 Bakikhanov Street",
			City:     "Baku",
			Hours:    strPtr("Mon-Fri 8:00-18:00"),
			Location: types.Point{Lat: 40.3897, Lng: 49.8274},
		},
		{
			ID:       uuid.New(),
			Name:     "Ganja Regional Blood Bank",
			Address:  "24 Javad Khan Street",
			City:     "Ganja",
			Hours:    strPtr("Mon-Fri 9:00-17:00"),
			Location: types.Point{Lat: 40.6828, Lng: 46.3606},
		},
		{
			ID:       uuid.New(),
			Name:     "Sumqayit Blood Center",
			Address:  "12 Nizami Street",
			City:     "Sumqayit",
			Hours:    strPtr("Mon-Fri 9:00-16:00"),
			Location: types.Point{Lat: 40.5897, Lng: 49.6686},
		},
		{
			ID:       uuid.New(),
			Name:     "Lankaran Regional Blood Station",
			Address:  "Hospital Complex",
			City:     "Lankaran",
			Hours:    strPtr("Mon-Fri 9:00-15:00"),
			Location: types.Point{Lat: 38.754, Lng: 48.851},
		},
	}
}

func strPtr(value string) *string {
	return &value
}
