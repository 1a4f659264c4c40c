package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/oauth2"

	"trainer-scheduler/internal/scheduling"
)

// Booking is a row of the local bookings ledger.
type Booking struct {
	EventID      string    `json:"eventId"`
	TrainerEmail string    `json:"trainerEmail"`
	ServiceID    string    `json:"serviceId"`
	ClientName   string    `json:"clientName"`
	ClientEmail  string    `json:"clientEmail"`
	ClientPhone  string    `json:"clientPhone,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	StartAt      time.Time `json:"startAt"`
	EndAt        time.Time `json:"endAt"`
	HTMLLink     string    `json:"htmlLink,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Postgres is the credential store and bookings ledger backed by pgx.
type Postgres struct {
	DB *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	return &Postgres{DB: pool}, nil
}

func (p *Postgres) Close() {
	if p != nil && p.DB != nil {
		p.DB.Close()
	}
}

func (p *Postgres) Get(ctx context.Context, email string) (*oauth2.Token, error) {
	q := `SELECT token FROM trainer_credentials WHERE trainer_email=$1`
	var raw []byte
	err := p.DB.QueryRow(ctx, q, normalizeEmail(email)).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("decode token for %s: %w", email, err)
	}
	return &tok, nil
}

func (p *Postgres) Set(ctx context.Context, email string, tok *oauth2.Token) error {
	if tok == nil {
		return errors.New("nil token")
	}
	raw, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	q := `INSERT INTO trainer_credentials (trainer_email, token, updated_at)
          VALUES ($1, $2, now())
          ON CONFLICT (trainer_email) DO UPDATE SET token=EXCLUDED.token, updated_at=now()`
	_, err = p.DB.Exec(ctx, q, normalizeEmail(email), raw)
	return err
}

func (p *Postgres) Has(ctx context.Context, email string) (bool, error) {
	q := `SELECT EXISTS (SELECT 1 FROM trainer_credentials WHERE trainer_email=$1)`
	var ok bool
	err := p.DB.QueryRow(ctx, q, normalizeEmail(email)).Scan(&ok)
	return ok, err
}

// RecordBooking stores a created booking. Re-recording the same event is a no-op.
func (p *Postgres) RecordBooking(ctx context.Context, req scheduling.BookingRequest, r scheduling.Receipt) error {
	q := `INSERT INTO bookings
		(event_id, trainer_email, service_id, client_name, client_email, client_phone, notes, start_at, end_at, html_link, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (event_id) DO NOTHING`
	_, err := p.DB.Exec(ctx, q,
		r.EventID,
		normalizeEmail(req.TrainerEmail),
		req.Service.ID,
		req.ClientName,
		req.ClientEmail,
		req.ClientPhone,
		req.Notes,
		r.StartTime.UTC(),
		r.EndTime.UTC(),
		r.HTMLLink,
	)
	return err
}

// ListBookings returns a trainer's ledger ordered by start, optionally limited to [from, to).
func (p *Postgres) ListBookings(ctx context.Context, trainerEmail string, from, to time.Time, filtered bool) ([]Booking, error) {
	var (
		rows pgx.Rows
		err  error
	)

	if filtered {
		q := `SELECT event_id,trainer_email,service_id,client_name,client_email,client_phone,notes,start_at,end_at,html_link,created_at
              FROM bookings
              WHERE trainer_email=$1 AND start_at >= $2 AND start_at < $3
              ORDER BY start_at`
		rows, err = p.DB.Query(ctx, q, normalizeEmail(trainerEmail), from, to)
	} else {
		q := `SELECT event_id,trainer_email,service_id,client_name,client_email,client_phone,notes,start_at,end_at,html_link,created_at
              FROM bookings
              WHERE trainer_email=$1
              ORDER BY start_at`
		rows, err = p.DB.Query(ctx, q, normalizeEmail(trainerEmail))
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Booking{}
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.EventID, &b.TrainerEmail, &b.ServiceID, &b.ClientName, &b.ClientEmail,
			&b.ClientPhone, &b.Notes, &b.StartAt, &b.EndAt, &b.HTMLLink, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Ping reports whether the database is reachable.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.DB.Ping(ctx)
}
