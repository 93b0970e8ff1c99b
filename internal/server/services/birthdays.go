package services

import (
	"time"

	"github.com/dmitrijs2005/addressbook/internal/common"
	"github.com/dmitrijs2005/addressbook/internal/server/models"
)

const birthdayWindowDays = 6

// UpcomingBirthdays keeps the contacts whose next birthday falls between
// today and six days later, inclusive. Only the calendar date of today is
// used. Around New Year (today in Dec 26-31, birthday in Jan 1-6) the
// birthday is projected onto the next year. Feb 29 maps to Mar 1 in non-leap
// years. Contacts with an unparsable birthday are skipped. Input order is
// preserved.
func UpcomingBirthdays(contacts []models.Contact, today time.Time) []models.Contact {
	y, m, d := today.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	result := make([]models.Contact, 0)
	for _, c := range contacts {
		bday, err := time.Parse(common.BirthdayLayout, c.Birthday)
		if err != nil {
			continue
		}

		year := y
		if m == time.December && d >= 26 && bday.Month() == time.January && bday.Day() <= 6 {
			year++
		}
		projected := time.Date(year, bday.Month(), bday.Day(), 0, 0, 0, 0, time.UTC)

		delta := int(projected.Sub(day).Hours() / 24)
		if delta >= 0 && delta <= birthdayWindowDays {
			result = append(result, c)
		}
	}
	return result
}
