package store

import (
	"context"
	"database/sql"
	"time"
)

const inviteColumns = "id, club_id, token, email, expires_at, used_at, used_by, created_at"

func scanInvite(row interface{ Scan(...any) error }) (ClubInvite, error) {
	var i ClubInvite
	err := row.Scan(&i.ID, &i.ClubID, &i.Token, &i.Email, &i.ExpiresAt, &i.UsedAt, &i.UsedBy, &i.CreatedAt)
	return i, err
}

type CreateClubInviteParams struct {
	ClubID    int64
	Token     string
	Email     sql.NullString
	ExpiresAt time.Time
}

func (q *Queries) CreateClubInvite(ctx context.Context, arg CreateClubInviteParams) (ClubInvite, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO club_invites (club_id, token, email, expires_at)
		 VALUES (?, ?, ?, ?)
		 RETURNING `+inviteColumns,
		arg.ClubID, arg.Token, arg.Email, arg.ExpiresAt.UTC())
	return scanInvite(row)
}

func (q *Queries) GetClubInviteByToken(ctx context.Context, token string) (ClubInvite, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+inviteColumns+" FROM club_invites WHERE token = ?", token)
	return scanInvite(row)
}

type RedeemClubInviteParams struct {
	Token  string
	UsedBy int64
	Now    time.Time
}

// RedeemClubInvite marks an invite used. The WHERE guard makes redemption
// one-shot: an already-used or expired token matches zero rows and the caller
// sees sql.ErrNoRows.
func (q *Queries) RedeemClubInvite(ctx context.Context, arg RedeemClubInviteParams) (ClubInvite, error) {
	row := q.db.QueryRowContext(ctx,
		`UPDATE club_invites
		 SET used_at = ?, used_by = ?
		 WHERE token = ? AND used_at IS NULL AND expires_at > ?
		 RETURNING `+inviteColumns,
		arg.Now.UTC(), arg.UsedBy, arg.Token, arg.Now.UTC())
	return scanInvite(row)
}
