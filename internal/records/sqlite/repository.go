package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"coinshelter/internal/core"
	"coinshelter/internal/records"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
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
		`SELECT `+coinColumns+` FROM coins WHERE owner_id = ? ORDER BY created_at DESC, rowid DESC`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("list coins: %w", err)
	}
	defer rows.Close()

	var out []core.CoinRecord
	for rows.Next() {
		rec, err := scanCoin(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coin: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coins: %w", err)
	}
	return out, nil
}

func (r *Repository) Get(ctx context.Context, id string) (core.CoinRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+coinColumns+` FROM coins WHERE id = ?`, id)
	rec, err := scanCoin(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.CoinRecord{}, records.ErrNotFound
		}
		return core.CoinRecord{}, fmt.Errorf("get coin: %w", err)
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
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OwnerID, rec.Name, string(rec.Material),
		nullCents(rec.Price), rec.Image, rec.Description,
		rec.Mint, rec.Country, nullInt(rec.Year), nullFloat(rec.Weight),
		nullFloat(rec.Diameter), nullInt(rec.Pieces), nullDate(rec.PurchasedAt),
		rec.Certificate, rec.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return core.CoinRecord{}, fmt.Errorf("insert coin: %w", err)
	}

	slog.InfoContext(ctx, "Coin saved", "id", rec.ID, "name", rec.Name,
		"material", rec.Material, "price_cents", rec.PriceCents())
	return rec, nil
}

func (r *Repository) Update(ctx context.Context, ownerID, id string, draft core.CoinDraft) (core.CoinRecord, error) {
	if err := draft.Validate(); err != nil {
		return core.CoinRecord{}, err
	}

	// Owner scoping: a foreign owner's id matches zero rows.
	res, err := r.db.ExecContext(ctx,
		`UPDATE coins SET name = ?, material = ?, price_cents = ?, image = ?,
		 description = ?, mint = ?, country = ?, year = ?, weight = ?,
		 diameter = ?, pieces = ?, purchased_at = ?, certificate = ?
		 WHERE id = ? AND owner_id = ?`,
		draft.Name, string(draft.Material), nullCents(draft.Price), draft.Image,
		draft.Description, draft.Mint, draft.Country, nullInt(draft.Year),
		nullFloat(draft.Weight), nullFloat(draft.Diameter), nullInt(draft.Pieces),
		nullDate(draft.PurchasedAt), draft.Certificate, id, ownerID)
	if err != nil {
		return core.CoinRecord{}, fmt.Errorf("update coin: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.CoinRecord{}, fmt.Errorf("update coin rows affected: %w", err)
	}
	if affected == 0 {
		return core.CoinRecord{}, records.ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM coins WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete coin: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete coin rows affected: %w", err)
	}
	if affected == 0 {
		return records.ErrNotFound
	}
	slog.InfoContext(ctx, "Coin deleted", "id", id)
	return nil
}

func (r *Repository) CreateUser(ctx context.Context, user records.User) (records.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, salt, verifier, confirmed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, strings.ToLower(user.Email), user.Name, user.Salt, user.Verifier,
		user.Confirmed, user.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return records.User{}, records.ErrDuplicateEmail
		}
		return records.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (records.User, error) {
	var user records.User
	var createdAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, salt, verifier, confirmed, created_at
		 FROM users WHERE email = ?`, strings.ToLower(email)).
		Scan(&user.ID, &user.Email, &user.Name, &user.Salt, &user.Verifier,
			&user.Confirmed, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return records.User{}, records.ErrNotFound
		}
		return records.User{}, fmt.Errorf("get user: %w", err)
	}
	user.CreatedAt = parseTime(createdAt)
	return user, nil
}

func (r *Repository) ConfirmUser(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET confirmed = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("confirm user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("confirm user rows affected: %w", err)
	}
	if affected == 0 {
		return records.ErrNotFound
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
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
		purchasedAt sql.NullString
		createdAt   string
	)
	err := s.Scan(&rec.ID, &rec.OwnerID, &rec.Name, &material, &priceCents,
		&rec.Image, &rec.Description, &rec.Mint, &rec.Country, &year,
		&weight, &diameter, &pieces, &purchasedAt, &rec.Certificate, &createdAt)
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
		// Malformed stored dates degrade to absent rather than failing the read.
		if d, err := core.ParseDate(purchasedAt.String); err == nil {
			rec.PurchasedAt = d
		}
	}
	rec.CreatedAt = parseTime(createdAt)
	return rec, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
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

func nullDate(d core.Date) sql.NullString {
	if d.IsEmpty() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.ISO(), Valid: true}
}
