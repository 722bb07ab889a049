// Package slots generates the fixed slot grid for a court and reconciles it
// against existing bookings.
package slots

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// All slot boundaries are computed in a single named zone and converted to UTC
// instants immediately. Never do manual hour arithmetic on display strings.
const ZoneName = "Europe/Paris"

var zone *time.Location

func init() {
	loc, err := time.LoadLocation(ZoneName)
	if err != nil {
		panic("load zone " + ZoneName + ": " + err.Error())
	}
	zone = loc
}

// Zone returns the booking zone used for slot generation.
func Zone() *time.Location {
	return zone
}

// Slot is one bookable interval on a court. Never persisted; regenerated per
// request.
type Slot struct {
	Key     string    `json:"slot_id"`
	Index   int       `json:"slot_index"`
	ClubID  int64     `json:"club_id"`
	CourtID int64     `json:"court_id"`
	Start   time.Time `json:"start_at"`
	End     time.Time `json:"end_at"`
	Label   string    `json:"label"`
}

// Key derives the deterministic slot identifier for a (club, court, interval)
// tuple. Two independently generated slots for the same inputs always produce
// the same key, so reconciliation can match bookings without a round trip.
func Key(clubID, courtID int64, start, end time.Time) string {
	composite := fmt.Sprintf("%d:%d:%d:%d", clubID, courtID, start.UTC().Unix(), end.UTC().Unix())
	sum := sha256.Sum256([]byte(composite))
	return hex.EncodeToString(sum[:16])
}

// Generate produces the ordered slot grid for one court on one day. Slots run
// from day@openHour to day@closeHour in the booking zone, each slotMinutes
// long; a trailing interval shorter than slotMinutes is dropped, not
// truncated (9-23 at 90 minutes yields 9 slots, the 22:30-23:00 remainder is
// never emitted). Start/End on the returned slots are UTC instants.
func Generate(clubID, courtID int64, day time.Time, openHour, closeHour, slotMinutes int) ([]Slot, error) {
	if openHour < 0 || closeHour > 24 || openHour >= closeHour {
		return nil, fmt.Errorf("invalid hours: open=%d close=%d", openHour, closeHour)
	}
	if slotMinutes <= 0 {
		return nil, fmt.Errorf("invalid slot duration: %d minutes", slotMinutes)
	}

	opening := time.Date(day.Year(), day.Month(), day.Day(), openHour, 0, 0, 0, zone)
	closing := time.Date(day.Year(), day.Month(), day.Day(), closeHour, 0, 0, 0, zone)
	duration := time.Duration(slotMinutes) * time.Minute

	var result []Slot
	index := 1
	for cursor := opening; !cursor.Add(duration).After(closing); cursor = cursor.Add(duration) {
		start := cursor
		end := cursor.Add(duration)
		result = append(result, Slot{
			Key:     Key(clubID, courtID, start, end),
			Index:   index,
			ClubID:  clubID,
			CourtID: courtID,
			Start:   start.UTC(),
			End:     end.UTC(),
			Label:   fmt.Sprintf("%s - %s", start.Format("15:04"), end.Format("15:04")),
		})
		index++
	}
	return result, nil
}

// ParseDay parses a YYYY-MM-DD date in the booking zone.
func ParseDay(raw string) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", raw, zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD")
	}
	return day, nil
}
