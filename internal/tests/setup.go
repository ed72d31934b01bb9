package tests

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
)

const (
	// MigrationDir is the path to migrations relative to the module root.
	MigrationDir = "internal/db/migrations"
	// MigrationDirFromInternalTests is used when go test ./... runs from internal/tests.
	MigrationDirFromInternalTests = "../../internal/db/migrations"
)

// ResolveMigrationDir returns the first existing migrations directory, or
// empty string if none exists.
func ResolveMigrationDir() string {
	for _, dir := range []string{MigrationDir, MigrationDirFromInternalTests} {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			abs, _ := filepath.Abs(dir)
			return abs
		}
	}
	return ""
}

// RunMigrations runs goose Up using the resolved migration directory.
func RunMigrations(db *sql.DB) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	dir := ResolveMigrationDir()
	if dir == "" {
		return fmt.Errorf("migrations directory not found (tried %q, %q); run tests from the module root", MigrationDir, MigrationDirFromInternalTests)
	}
	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// TruncateElectionTables truncates all election tables for a clean test state.
func TruncateElectionTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		TRUNCATE TABLE vote_records, ballot_tokens, verification_challenges,
		               candidates, positions, voters
		RESTART IDENTITY CASCADE
	`)
	if err != nil {
		return fmt.Errorf("truncate election tables: %w", err)
	}
	return nil
}

// SeedVoter inserts an eligible voter and returns its id.
func SeedVoter(ctx context.Context, db *sql.DB, regNo, email, phone string, eligible bool) (uuid.UUID, error) {
	var emailPtr, phonePtr *string
	if email != "" {
		emailPtr = &email
	}
	if phone != "" {
		phonePtr = &phone
	}

	var id uuid.UUID
	err := db.QueryRowContext(ctx, `
		INSERT INTO voters (reg_no, email, phone, eligible)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, regNo, emailPtr, phonePtr, eligible).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("seed voter: %w", err)
	}
	return id, nil
}

// SeedPosition inserts a position and returns its id.
func SeedPosition(ctx context.Context, db *sql.DB, name string, seatCount, ordinal int) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.QueryRowContext(ctx, `
		INSERT INTO positions (name, seat_count, ordinal)
		VALUES ($1, $2, $3)
		RETURNING id
	`, name, seatCount, ordinal).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("seed position: %w", err)
	}
	return id, nil
}

// SeedApprovedCandidate inserts an already-approved candidate and returns its id.
func SeedApprovedCandidate(ctx context.Context, db *sql.DB, positionID uuid.UUID, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.QueryRowContext(ctx, `
		INSERT INTO candidates (position_id, name, voter_reg_no, photo_key, manifesto_key, status, decided_at)
		VALUES ($1, $2, $3, $4, $5, 'APPROVED', now())
		RETURNING id
	`, positionID, name, "SEED/"+name, "photos/seed-"+name+".png", "manifestos/seed-"+name+".pdf").Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("seed candidate: %w", err)
	}
	return id, nil
}

// ExpireChallenge backdates a challenge so it is past expiry.
func ExpireChallenge(ctx context.Context, db *sql.DB, challengeID uuid.UUID) error {
	_, err := db.ExecContext(ctx, `
		UPDATE verification_challenges SET expires_at = now() - interval '1 minute' WHERE id = $1
	`, challengeID)
	return err
}

// ExpireTokensForVoter backdates all of a voter's ballot tokens.
func ExpireTokensForVoter(ctx context.Context, db *sql.DB, voterID uuid.UUID) error {
	_, err := db.ExecContext(ctx, `
		UPDATE ballot_tokens SET expires_at = now() - interval '1 minute' WHERE voter_id = $1
	`, voterID)
	return err
}

// CountVoteRecords returns the number of vote records for a voter.
func CountVoteRecords(ctx context.Context, db *sql.DB, voterID uuid.UUID) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vote_records WHERE voter_id = $1`, voterID).Scan(&count)
	return count, err
}

// CountTokensWithStatus returns how many of the voter's tokens hold the status.
func CountTokensWithStatus(ctx context.Context, db *sql.DB, voterID uuid.UUID, status string) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ballot_tokens WHERE voter_id = $1 AND status = $2
	`, voterID, status).Scan(&count)
	return count, err
}

// WaitCtx returns a context with a sane test deadline.
func WaitCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
