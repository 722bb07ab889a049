package store

import "context"

const courtColumns = "id, club_id, name, price_cents, active, created_at"

func scanCourt(row interface{ Scan(...any) error }) (Court, error) {
	var c Court
	err := row.Scan(&c.ID, &c.ClubID, &c.Name, &c.PriceCents, &c.Active, &c.CreatedAt)
	return c, err
}

func (q *Queries) GetCourtByID(ctx context.Context, id int64) (Court, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+courtColumns+" FROM courts WHERE id = ?", id)
	return scanCourt(row)
}

func (q *Queries) ListCourtsByClub(ctx context.Context, clubID int64) ([]Court, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT "+courtColumns+" FROM courts WHERE club_id = ? ORDER BY name", clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courts []Court
	for rows.Next() {
		court, err := scanCourt(rows)
		if err != nil {
			return nil, err
		}
		courts = append(courts, court)
	}
	return courts, rows.Err()
}

// ListActiveCourtsByClub returns the courts a planning view iterates over.
func (q *Queries) ListActiveCourtsByClub(ctx context.Context, clubID int64) ([]Court, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT "+courtColumns+" FROM courts WHERE club_id = ? AND active = 1 ORDER BY name", clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courts []Court
	for rows.Next() {
		court, err := scanCourt(rows)
		if err != nil {
			return nil, err
		}
		courts = append(courts, court)
	}
	return courts, rows.Err()
}

type CreateCourtParams struct {
	ClubID     int64
	Name       string
	PriceCents int64
}

func (q *Queries) CreateCourt(ctx context.Context, arg CreateCourtParams) (Court, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO courts (club_id, name, price_cents)
		 VALUES (?, ?, ?)
		 RETURNING `+courtColumns,
		arg.ClubID, arg.Name, arg.PriceCents)
	return scanCourt(row)
}

type UpdateCourtParams struct {
	ID         int64
	Name       string
	PriceCents int64
	Active     bool
}

func (q *Queries) UpdateCourt(ctx context.Context, arg UpdateCourtParams) (Court, error) {
	row := q.db.QueryRowContext(ctx,
		`UPDATE courts SET name = ?, price_cents = ?, active = ?
		 WHERE id = ?
		 RETURNING `+courtColumns,
		arg.Name, arg.PriceCents, arg.Active, arg.ID)
	return scanCourt(row)
}
