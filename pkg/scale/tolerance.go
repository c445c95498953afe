package scale

import (
	"context"

	"github.com/niktheblak/helvetic/pkg/measurement"
)

// UpdateTolerance centers the weight band of the measured user on the new
// weight so that the device can tell the user apart on the next sync. Guest
// measurements leave the users untouched. It reports the updated user and
// whether one was found.
func UpdateTolerance(ctx context.Context, users measurement.UserDirectory, m measurement.Measurement) (measurement.User, bool, error) {
	if m.IsGuest {
		return measurement.User{}, false, nil
	}
	grams := WeightGrams(m.Weight)
	var (
		updated measurement.User
		found   bool
	)
	err := users.UpdateUsers(ctx, func(us []measurement.User) ([]measurement.User, error) {
		i := measurement.IndexOfUser(us, m.UserID)
		if i < 0 {
			return us, nil
		}
		us[i].MinTolerance = measurement.IntPointer(grams - ToleranceGrams)
		us[i].MaxTolerance = measurement.IntPointer(grams + ToleranceGrams)
		updated = us[i]
		found = true
		return us, nil
	})
	if err != nil {
		return measurement.User{}, false, err
	}
	return updated, found, nil
}
