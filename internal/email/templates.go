package email

import (
	"fmt"
	"strings"
	"time"
)

type Message struct {
	Subject string
	Body    string
}

type BookingDetails struct {
	ClubName  string
	CourtName string
	Date      string
	TimeRange string
	Price     string
}

type CancellationDetails struct {
	ClubName  string
	CourtName string
	Date      string
	TimeRange string
}

func FormatDateTimeRange(start, end time.Time, zone *time.Location) (string, string) {
	local := start.In(zone)
	date := local.Format("Monday, Jan 2, 2006")
	timeRange := fmt.Sprintf("%s - %s", local.Format("15:04"), end.In(zone).Format("15:04"))
	return date, timeRange
}

func BuildBookingConfirmation(details BookingDetails) Message {
	clubName := strings.TrimSpace(details.ClubName)
	if clubName == "" {
		clubName = "your club"
	}
	courtName := strings.TrimSpace(details.CourtName)
	if courtName == "" {
		courtName = "TBD"
	}

	subject := fmt.Sprintf("Court Booking Confirmed - %s", clubName)

	lines := []string{
		"Your padel court booking is confirmed.",
		"",
		fmt.Sprintf("Club: %s", clubName),
		fmt.Sprintf("Court: %s", courtName),
		fmt.Sprintf("Date: %s", strings.TrimSpace(details.Date)),
		fmt.Sprintf("Time: %s", strings.TrimSpace(details.TimeRange)),
	}
	if price := strings.TrimSpace(details.Price); price != "" {
		lines = append(lines, fmt.Sprintf("Price: %s", price))
	}
	lines = append(lines, "", "You can cancel from your bookings page up until the slot starts.")

	return Message{
		Subject: subject,
		Body:    strings.Join(lines, "\n"),
	}
}

func BuildBookingCancellation(details CancellationDetails) Message {
	clubName := strings.TrimSpace(details.ClubName)
	if clubName == "" {
		clubName = "your club"
	}
	courtName := strings.TrimSpace(details.CourtName)
	if courtName == "" {
		courtName = "TBD"
	}
	date := strings.TrimSpace(details.Date)
	if date == "" {
		date = "TBD"
	}
	timeRange := strings.TrimSpace(details.TimeRange)
	if timeRange == "" {
		timeRange = "TBD"
	}

	subject := fmt.Sprintf("Booking Cancelled - %s", clubName)

	lines := []string{
		"Your padel court booking has been cancelled.",
		"",
		fmt.Sprintf("Club: %s", clubName),
		fmt.Sprintf("Court: %s", courtName),
		fmt.Sprintf("Date: %s", date),
		fmt.Sprintf("Time: %s", timeRange),
		"",
		"The slot is available again for other players.",
	}

	return Message{
		Subject: subject,
		Body:    strings.Join(lines, "\n"),
	}
}

func BuildStaffBookingAlert(details BookingDetails, playerName string) Message {
	clubName := strings.TrimSpace(details.ClubName)
	if clubName == "" {
		clubName = "your club"
	}
	player := strings.TrimSpace(playerName)
	if player == "" {
		player = "A player"
	}

	subject := fmt.Sprintf("New Booking - %s", clubName)

	lines := []string{
		fmt.Sprintf("%s booked a court.", player),
		"",
		fmt.Sprintf("Court: %s", strings.TrimSpace(details.CourtName)),
		fmt.Sprintf("Date: %s", strings.TrimSpace(details.Date)),
		fmt.Sprintf("Time: %s", strings.TrimSpace(details.TimeRange)),
	}

	return Message{
		Subject: subject,
		Body:    strings.Join(lines, "\n"),
	}
}
