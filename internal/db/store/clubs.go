package store

import (
	"context"
	"strings"
)

const clubColumns = "id, name, city, opening_hour, closing_hour, active, created_at"

func scanClub(row interface{ Scan(...any) error }) (Club, error) {
	var c Club
	err := row.Scan(&c.ID, &c.Name, &c.City, &c.OpeningHour, &c.ClosingHour, &c.Active, &c.CreatedAt)
	return c, err
}

func (q *Queries) GetClubByID(ctx context.Context, id int64) (Club, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+clubColumns+" FROM clubs WHERE id = ?", id)
	return scanClub(row)
}

// ListClubs returns active clubs, optionally filtered by city (case
// insensitive exact match).
func (q *Queries) ListClubs(ctx context.Context, city string) ([]Club, error) {
	query := "SELECT " + clubColumns + " FROM clubs WHERE active = 1"
	args := []any{}
	if strings.TrimSpace(city) != "" {
		query += " AND LOWER(city) = LOWER(?)"
		args = append(args, strings.TrimSpace(city))
	}
	query += " ORDER BY name"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clubs []Club
	for rows.Next() {
		club, err := scanClub(rows)
		if err != nil {
			return nil, err
		}
		clubs = append(clubs, club)
	}
	return clubs, rows.Err()
}

type CreateClubParams struct {
	Name        string
	City        string
	OpeningHour int64
	ClosingHour int64
}

func (q *Queries) CreateClub(ctx context.Context, arg CreateClubParams) (Club, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO clubs (name, city, opening_hour, closing_hour)
		 VALUES (?, ?, ?, ?)
		 RETURNING `+clubColumns,
		arg.Name, arg.City, arg.OpeningHour, arg.ClosingHour)
	return scanClub(row)
}

type UpdateClubHoursParams struct {
	ID          int64
	OpeningHour int64
	ClosingHour int64
}

func (q *Queries) UpdateClubHours(ctx context.Context, arg UpdateClubHoursParams) (Club, error) {
	row := q.db.QueryRowContext(ctx,
		`UPDATE clubs SET opening_hour = ?, closing_hour = ?
		 WHERE id = ?
		 RETURNING `+clubColumns,
		arg.OpeningHour, arg.ClosingHour, arg.ID)
	return scanClub(row)
}
