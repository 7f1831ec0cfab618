package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/longgate/internal/model"
)

// PostgresAccountRepository реализует login.AccountRepository для PostgreSQL.
type PostgresAccountRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAccountRepository создаёт новый PostgreSQL repository.
func NewPostgresAccountRepository(pool *pgxpool.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{pool: pool}
}

// GetByUsername возвращает аккаунт по имени.
// Возвращает nil, nil если аккаунт не найден.
func (r *PostgresAccountRepository) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	username = strings.ToLower(username)
	var acc model.Account
	var id int32
	var authority int16
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, password, salt, flag, authority_id, created_at
		 FROM account WHERE username = $1`, username,
	).Scan(&id, &acc.Username, &acc.PasswordHash, &acc.Salt, &acc.Flag, &authority, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying account %q: %w", username, err)
	}
	acc.ID = uint32(id)
	acc.AuthorityID = uint16(authority)
	return &acc, nil
}

// CreateAccount создаёт аккаунт и возвращает его id.
// password - открытый пароль, в базу пишется HashPassword(password, salt).
func (r *PostgresAccountRepository) CreateAccount(ctx context.Context, username, password, salt string, authorityID uint16) (uint32, error) {
	username = strings.ToLower(username)
	var id int32
	err := r.pool.QueryRow(ctx,
		`INSERT INTO account (username, password, salt, authority_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		username, HashPassword(password, salt), salt, int16(authorityID),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("creating account %q: %w", username, err)
	}
	return uint32(id), nil
}

// SetFlag обновляет флаг статуса (0 - активен, иначе заблокирован).
func (r *PostgresAccountRepository) SetFlag(ctx context.Context, accountID uint32, flag int16) error {
	tag, err := r.pool.Exec(ctx, `UPDATE account SET flag = $1 WHERE id = $2`, flag, int32(accountID))
	if err != nil {
		return fmt.Errorf("updating flag for account %d: %w", accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("updating flag: account %d not found", accountID)
	}
	return nil
}

// PostgresVipRepository реализует login.VipRepository.
type PostgresVipRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresVipRepository создаёт новый repository VIP уровней.
func NewPostgresVipRepository(pool *pgxpool.Pool) *PostgresVipRepository {
	return &PostgresVipRepository{pool: pool}
}

// GetAccountVip возвращает действующий VIP аккаунта.
// Возвращает nil, nil если записи нет или срок истёк.
func (r *PostgresVipRepository) GetAccountVip(ctx context.Context, accountID uint32) (*model.VipInfo, error) {
	var level int16
	vip := model.VipInfo{AccountID: accountID}
	err := r.pool.QueryRow(ctx,
		`SELECT vip_level, expires_at FROM account_vip
		 WHERE account_id = $1 AND expires_at > now()`, int32(accountID),
	).Scan(&level, &vip.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying vip for account %d: %w", accountID, err)
	}
	vip.VipLevel = byte(level)
	return &vip, nil
}

// SetAccountVip создаёт или продлевает VIP (upsert).
func (r *PostgresVipRepository) SetAccountVip(ctx context.Context, accountID uint32, level byte, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO account_vip (account_id, vip_level, expires_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (account_id) DO UPDATE SET vip_level = EXCLUDED.vip_level, expires_at = EXCLUDED.expires_at`,
		int32(accountID), int16(level), expiresAt,
	)
	if err != nil {
		return fmt.Errorf("setting vip for account %d: %w", accountID, err)
	}
	return nil
}

// PostgresLoginRecordRepository реализует login.LoginRecordRepository.
type PostgresLoginRecordRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresLoginRecordRepository создаёт repository журнала входов.
func NewPostgresLoginRecordRepository(pool *pgxpool.Pool) *PostgresLoginRecordRepository {
	return &PostgresLoginRecordRepository{pool: pool}
}

// Record пишет одну запись журнала входов.
func (r *PostgresLoginRecordRepository) Record(ctx context.Context, rec model.LoginRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO login_record (account_id, ip_address, device_id, mac, success, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		int32(rec.AccountID), rec.IPAddress, rec.DeviceID, rec.MAC, rec.Success, createdAt,
	)
	if err != nil {
		return fmt.Errorf("recording login for account %d: %w", rec.AccountID, err)
	}
	return nil
}

// ListByAccount возвращает последние limit записей аккаунта, новые первыми.
func (r *PostgresLoginRecordRepository) ListByAccount(ctx context.Context, accountID uint32, limit int) ([]model.LoginRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT account_id, ip_address, device_id, mac, success, created_at
		 FROM login_record WHERE account_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT $2`, int32(accountID), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying login records for account %d: %w", accountID, err)
	}
	defer rows.Close()

	var records []model.LoginRecord
	for rows.Next() {
		var rec model.LoginRecord
		var id int32
		if err := rows.Scan(&id, &rec.IPAddress, &rec.DeviceID, &rec.MAC, &rec.Success, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning login record: %w", err)
		}
		rec.AccountID = uint32(id)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating login records: %w", err)
	}
	return records, nil
}
