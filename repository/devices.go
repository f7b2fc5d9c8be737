package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/tomasagata/extra-api-sub001/contract"
	"github.com/tomasagata/extra-api-sub001/model"
)

type DeviceRepoMysql struct {
	db *sql.DB
}

func NewDeviceRepoMysql(db *sql.DB) *DeviceRepoMysql {
	return &DeviceRepoMysql{db: db}
}

func (d *DeviceRepoMysql) Find(ctx context.Context, ownerID int64) ([]model.Device, error) {
	statement := "SELECT id, owner_id, token, platform, created_at FROM devices WHERE owner_id = ? ORDER BY id"
	rows, err := d.db.QueryContext(ctx, statement, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	devices := []model.Device{}
	for rows.Next() {
		var device model.Device
		err := rows.Scan(&device.ID, &device.OwnerID, &device.Token, &device.Platform, &device.CreatedAt)
		if err != nil {
			return nil, err
		}
		devices = append(devices, device)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return devices, nil
}

// Register refreshes the platform when the owner re-registers a token. A token
// held by another user is ErrDuplicate.
func (d *DeviceRepoMysql) Register(ctx context.Context, device *model.Device) (*model.Device, error) {
	registered := *device
	err := withTx(ctx, d.db, func(ctx context.Context, tx *sql.Tx) error {
		var ownerID int64
		err := tx.QueryRowContext(ctx, "SELECT id, owner_id, created_at FROM devices WHERE token = ? FOR UPDATE", device.Token).
			Scan(&registered.ID, &ownerID, &registered.CreatedAt)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			registered.CreatedAt = time.Now().UTC().Truncate(time.Second)
			statement := "INSERT INTO devices(owner_id, token, platform, created_at) VALUES(?, ?, ?, ?)"
			result, err := tx.ExecContext(ctx, statement, device.OwnerID, device.Token, string(device.Platform), registered.CreatedAt)
			if err != nil {
				return err
			}
			registered.ID, err = result.LastInsertId()
			return err
		case err != nil:
			return err
		case ownerID != device.OwnerID:
			return contract.ErrDuplicate
		}
		_, err = tx.ExecContext(ctx, "UPDATE devices SET platform = ? WHERE id = ?", string(device.Platform), registered.ID)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return &registered, nil
}

func (d *DeviceRepoMysql) Unregister(ctx context.Context, ownerID int64, token string) error {
	result, err := d.db.ExecContext(ctx, "DELETE FROM devices WHERE token = ? AND owner_id = ?", token, ownerID)
	if err != nil {
		return mapError(err)
	}
	return expectOne(result)
}
