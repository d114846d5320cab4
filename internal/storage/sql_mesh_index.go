package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/annel0/voxelmesh/internal/logging"
	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// SQLMeshIndex реализует MeshIndex поверх database/sql.
// Поддерживаются драйверы "sqlite" (файл) и "mysql" (MariaDB/MySQL).
// Оба диалекта понимают REPLACE INTO и плейсхолдеры "?".
type SQLMeshIndex struct {
	db     *sql.DB
	driver string
}

// OpenMeshIndex открывает индекс и создаёт таблицу, если её нет.
//
// Параметры:
//
//	driver - "sqlite" или "mysql"
//	dsn    - путь к файлу для sqlite, user:pass@tcp(host:port)/dbname для mysql
func OpenMeshIndex(driver, dsn string) (*SQLMeshIndex, error) {
	if dsn == "" {
		return nil, fmt.Errorf("пустой DSN индекса")
	}

	switch driver {
	case "sqlite":
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("не удалось создать каталог индекса: %w", err)
			}
		}
	case "mysql":
	default:
		return nil, fmt.Errorf("неизвестный драйвер индекса: %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть индекс %s: %w", driver, err)
	}

	if driver == "sqlite" {
		// SQLite допускает одного писателя
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с индексом: %w", err)
	}

	idx := &SQLMeshIndex{db: db, driver: driver}
	if err := idx.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать таблицу: %w", err)
	}

	logging.GetStorageLogger().Info("📇 Mesh index opened (%s)", driver)
	return idx, nil
}

// createTable создает таблицу chunk_meshes, если она не существует.
func (r *SQLMeshIndex) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS chunk_meshes (
			chunk_key  VARCHAR(64) PRIMARY KEY,
			digest     CHAR(64)    NOT NULL,
			quads      INT         NOT NULL,
			triangles  INT         NOT NULL,
			vertices   INT         NOT NULL,
			degenerate INT         NOT NULL DEFAULT 0,
			updated_at BIGINT      NOT NULL
		)
	`
	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("ошибка создания таблицы chunk_meshes: %w", err)
	}
	return nil
}

// Record сохраняет запись; updated_at хранится как unix-миллисекунды.
func (r *SQLMeshIndex) Record(ctx context.Context, rec MeshRecord) error {
	if rec.ChunkKey == "" {
		return fmt.Errorf("пустой ключ чанка")
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		REPLACE INTO chunk_meshes (chunk_key, digest, quads, triangles, vertices, degenerate, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ChunkKey, rec.Digest, rec.Quads, rec.Triangles, rec.Vertices, rec.Degenerate, rec.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("ошибка записи индекса %s: %w", rec.ChunkKey, err)
	}
	return nil
}

func (r *SQLMeshIndex) Get(ctx context.Context, chunkKey string) (MeshRecord, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT chunk_key, digest, quads, triangles, vertices, degenerate, updated_at
		FROM chunk_meshes WHERE chunk_key = ?`, chunkKey)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return MeshRecord{}, false, nil
	}
	if err != nil {
		return MeshRecord{}, false, fmt.Errorf("ошибка чтения индекса %s: %w", chunkKey, err)
	}
	return rec, true, nil
}

func (r *SQLMeshIndex) List(ctx context.Context) ([]MeshRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT chunk_key, digest, quads, triangles, vertices, degenerate, updated_at
		FROM chunk_meshes ORDER BY chunk_key`)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения индекса: %w", err)
	}
	defer rows.Close()

	var out []MeshRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLMeshIndex) Delete(ctx context.Context, chunkKey string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM chunk_meshes WHERE chunk_key = ?`, chunkKey); err != nil {
		return fmt.Errorf("ошибка удаления из индекса %s: %w", chunkKey, err)
	}
	return nil
}

func (r *SQLMeshIndex) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (MeshRecord, error) {
	var (
		rec     MeshRecord
		updated int64
	)
	if err := s.Scan(&rec.ChunkKey, &rec.Digest, &rec.Quads, &rec.Triangles, &rec.Vertices, &rec.Degenerate, &updated); err != nil {
		return MeshRecord{}, err
	}
	rec.UpdatedAt = time.UnixMilli(updated)
	return rec, nil
}
