package store

import "context"

type AddClubStaffParams struct {
	ClubID int64
	UserID int64
	Email  string
	Role   string
}

func (q *Queries) AddClubStaff(ctx context.Context, arg AddClubStaffParams) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO club_staff (club_id, user_id, email, role)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (club_id, user_id) DO UPDATE SET email = excluded.email, role = excluded.role`,
		arg.ClubID, arg.UserID, arg.Email, arg.Role)
	return err
}

type IsClubStaffParams struct {
	ClubID int64
	UserID int64
}

func (q *Queries) IsClubStaff(ctx context.Context, arg IsClubStaffParams) (bool, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM club_staff WHERE club_id = ? AND user_id = ?",
		arg.ClubID, arg.UserID).Scan(&count)
	return count > 0, err
}

// ListClubStaffEmails returns the addresses booking alerts fan out to.
func (q *Queries) ListClubStaffEmails(ctx context.Context, clubID int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT email FROM club_staff WHERE club_id = ? AND email != '' ORDER BY email", clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}
