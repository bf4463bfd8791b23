package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/annel0/bubble-world/internal/guid"
)

// MariaPlacementRepo реализует PlacementRepo для MariaDB/MySQL.
// Таблица object_placements.
type MariaPlacementRepo struct {
	db *sql.DB
}

// NewMariaPlacementRepo подключается к базе и создаёт таблицу при необходимости.
//
// Параметры:
//
//	dsn - строка подключения (user:pass@tcp(host:port)/dbname)
func NewMariaPlacementRepo(dsn string) (*MariaPlacementRepo, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	repo := &MariaPlacementRepo{db: db}
	if err := repo.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать таблицу: %w", err)
	}
	return repo, nil
}

func (r *MariaPlacementRepo) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS object_placements (
			guid       BIGINT UNSIGNED PRIMARY KEY,
			map_id     INT UNSIGNED    NOT NULL,
			x          DOUBLE          NOT NULL,
			y          DOUBLE          NOT NULL,
			updated_at TIMESTAMP       DEFAULT CURRENT_TIMESTAMP
			           ON UPDATE       CURRENT_TIMESTAMP,
			INDEX idx_map_id (map_id)
		) ENGINE=InnoDB
	`

	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("ошибка создания таблицы object_placements: %w", err)
	}
	return nil
}

const upsertPlacementQuery = `
	INSERT INTO object_placements (guid, map_id, x, y)
	VALUES (?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		map_id = VALUES(map_id),
		x = VALUES(x),
		y = VALUES(y),
		updated_at = CURRENT_TIMESTAMP
`

// Save сохраняет размещение (INSERT ... ON DUPLICATE KEY UPDATE)
func (r *MariaPlacementRepo) Save(ctx context.Context, id guid.GUID, p Placement) error {
	if err := validatePlacement(id, p); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx, upsertPlacementQuery, uint64(id), p.MapID, p.X, p.Y)
	if err != nil {
		return fmt.Errorf("ошибка сохранения размещения %s: %w", id, err)
	}
	return nil
}

// Load загружает размещение
func (r *MariaPlacementRepo) Load(ctx context.Context, id guid.GUID) (Placement, bool, error) {
	if id.IsEmpty() {
		return Placement{}, false, fmt.Errorf("недействительный GUID: %s", id)
	}

	query := `SELECT map_id, x, y FROM object_placements WHERE guid = ?`

	var p Placement
	err := r.db.QueryRowContext(ctx, query, uint64(id)).Scan(&p.MapID, &p.X, &p.Y)
	if errors.Is(err, sql.ErrNoRows) {
		return Placement{}, false, nil
	}
	if err != nil {
		return Placement{}, false, fmt.Errorf("ошибка загрузки размещения %s: %w", id, err)
	}
	return p, true, nil
}

// Delete удаляет размещение
func (r *MariaPlacementRepo) Delete(ctx context.Context, id guid.GUID) error {
	if id.IsEmpty() {
		return fmt.Errorf("недействительный GUID: %s", id)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM object_placements WHERE guid = ?`, uint64(id))
	if err != nil {
		return fmt.Errorf("ошибка удаления размещения %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения количества затронутых строк: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrPlacementNotFound, id)
	}
	return nil
}

// BatchSave сохраняет размещения в одной транзакции
func (r *MariaPlacementRepo) BatchSave(ctx context.Context, placements map[guid.GUID]Placement) error {
	if len(placements) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback() // Откат в случае ошибки

	stmt, err := tx.PrepareContext(ctx, upsertPlacementQuery)
	if err != nil {
		return fmt.Errorf("ошибка подготовки запроса: %w", err)
	}
	defer stmt.Close()

	for id, p := range placements {
		if err := validatePlacement(id, p); err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, uint64(id), p.MapID, p.X, p.Y); err != nil {
			return fmt.Errorf("ошибка сохранения размещения %s в batch: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// Close закрывает соединение с базой данных
func (r *MariaPlacementRepo) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
