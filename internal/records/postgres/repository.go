package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"coinshelter/internal/core"
	"coinshelter/internal/records"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Repository struct {
	db *sql.DB
}

func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	r := &Repository{db: db}
	if err := r.runMigrations(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return r, nil
}

func (r *Repository) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrationsFS)
	return goose.UpContext(ctx, r.db, "migrations")
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const coinColumns = `id, owner_id, name, material, price_cents, image, description,
	mint, country, year, weight, diameter, pieces, purchased_at, certificate, created_at`

func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]core.CoinRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+coinColumns+` FROM coins WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []core.CoinRecord
	for rows.Next() {
		rec, err := scanCoin(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *Repository) Get(ctx context.Context, id string) (core.CoinRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+coinColumns+` FROM coins WHERE id = $1`, id)
	rec, err := scanCoin(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.CoinRecord{}, records.ErrNotFound
		}
		return core.CoinRecord{}, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *Repository) Insert(ctx context.Context, ownerID string, draft core.CoinDraft) (core.CoinRecord, error) {
	if err := draft.Validate(); err != nil {
		return core.CoinRecord{}, err
	}

	rec := core.CoinRecord{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		CreatedAt: time.Now().UTC(),
	}
	rec.ApplyDraft(draft)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO coins (`+coinColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		rec.ID, rec.OwnerID, rec.Name, string(rec.Material),
		nullCents(rec.Price), rec.Image, rec.Description,
		rec.Mint, rec.Country, nullInt(rec.Year), nullFloat(rec.Weight),
		nullFloat(rec.Diameter), nullInt(rec.Pieces), nullDate(rec.PurchasedAt),
		rec.Certificate, rec.CreatedAt)
	if err != nil {
		return core.CoinRecord{}, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *Repository) Update(ctx context.Context, ownerID, id string, draft core.CoinDraft) (core.CoinRecord, error) {
	if err := draft.Validate(); err != nil {
		return core.CoinRecord{}, err
	}

	// Owner scoping: a foreign owner's id matches zero rows.
	res, err := r.db.ExecContext(ctx,
		`UPDATE coins SET name = $1, material = $2, price_cents = $3, image = $4,
		 description = $5, mint = $6, country = $7, year = $8, weight = $9,
		 diameter = $10, pieces = $11, purchased_at = $12, certificate = $13
		 WHERE id = $14 AND owner_id = $15`,
		draft.Name, string(draft.Material), nullCents(draft.Price), draft.Image,
		draft.Description, draft.Mint, draft.Country, nullInt(draft.Year),
		nullFloat(draft.Weight), nullFloat(draft.Diameter), nullInt(draft.Pieces),
		nullDate(draft.PurchasedAt), draft.Certificate, id, ownerID)
	if err != nil {
		return core.CoinRecord{}, fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.CoinRecord{}, fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return core.CoinRecord{}, records.ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM coins WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return records.ErrNotFound
	}
	return nil
}

func (r *Repository) CreateUser(ctx context.Context, user records.User) (records.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, salt, verifier, confirmed, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, strings.ToLower(user.Email), user.Name, user.Salt, user.Verifier,
		user.Confirmed, user.CreatedAt)
	if err != nil {
		// 23505 is the unique_violation SQLSTATE.
		if strings.Contains(err.Error(), "23505") || strings.Contains(err.Error(), "duplicate key") {
			return records.User{}, records.ErrDuplicateEmail
		}
		return records.User{}, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (records.User, error) {
	var user records.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, salt, verifier, confirmed, created_at
		 FROM users WHERE email = $1`, strings.ToLower(email)).
		Scan(&user.ID, &user.Email, &user.Name, &user.Salt, &user.Verifier,
			&user.Confirmed, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return records.User{}, records.ErrNotFound
		}
		return records.User{}, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *Repository) ConfirmUser(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET confirmed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return records.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCoin(s scanner) (core.CoinRecord, error) {
	var (
		rec         core.CoinRecord
		material    string
		priceCents  sql.NullInt64
		year        sql.NullInt64
		weight      sql.NullFloat64
		diameter    sql.NullFloat64
		pieces      sql.NullInt64
		purchasedAt sql.NullTime
	)
	err := s.Scan(&rec.ID, &rec.OwnerID, &rec.Name, &material, &priceCents,
		&rec.Image, &rec.Description, &rec.Mint, &rec.Country, &year,
		&weight, &diameter, &pieces, &purchasedAt, &rec.Certificate, &rec.CreatedAt)
	if err != nil {
		return core.CoinRecord{}, err
	}

	rec.Material = core.Material(material)
	if priceCents.Valid {
		rec.Price = &core.Money{Cents: priceCents.Int64}
	}
	if year.Valid {
		v := int(year.Int64)
		rec.Year = &v
	}
	if weight.Valid {
		v := weight.Float64
		rec.Weight = &v
	}
	if diameter.Valid {
		v := diameter.Float64
		rec.Diameter = &v
	}
	if pieces.Valid {
		v := int(pieces.Int64)
		rec.Pieces = &v
	}
	if purchasedAt.Valid {
		t := purchasedAt.Time
		rec.PurchasedAt = core.NewDate(t.Year(), int(t.Month()), t.Day())
	}
	return rec, nil
}

func nullCents(m *core.Money) sql.NullInt64 {
	if m == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: m.Cents, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullDate(d core.Date) sql.NullTime {
	if d.IsEmpty() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: d.Time, Valid: true}
}
