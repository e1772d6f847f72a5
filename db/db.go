package db

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dkovalev/touchcal/logging"
	"github.com/dkovalev/touchcal/model"

	_ "github.com/mattn/go-sqlite3"
)

var dbCtx = logging.PackageCtx("db")

type Storage interface {
	Store(event *model.TouchEvent) error
	GatherCounts() ([]model.EventCount, error)
	Close()
}

type SQLiteStorage struct {
	db *sql.DB
}

func NewStorage(db *sql.DB) SQLiteStorage {
	return SQLiteStorage{db}
}

func InitDbStorage(db *sql.DB) error {
	sqlStmt := `
	create table if not exists touch_events(type int, touch_count int, x int, y int, value int, ts datetime);`

	_, err := db.Exec(sqlStmt)
	if err != nil {
		slog.ErrorContext(dbCtx, "creating touch_events table", "error", err)

		return err
	}

	sqlStmt = ` create index if not exists touch_events_tsix on touch_events (ts ASC);`

	_, err = db.Exec(sqlStmt)
	if err != nil {
		slog.ErrorContext(dbCtx, "creating timestamp index", "error", err)

		return err
	}

	return nil
}

func ConnectDB(path string) (Storage, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	err = InitDbStorage(db)
	if err != nil {
		return nil, err
	}

	return &SQLiteStorage{db}, nil
}

func (s *SQLiteStorage) Store(event *model.TouchEvent) error {
	_, err := s.db.Exec(`insert into touch_events(type, touch_count, x, y, value, ts)
	    values(?, ?, ?, ?, ?, datetime('now', 'subsec'))`,
		int(event.Type), event.TouchCount, event.X, event.Y, event.Value)
	if err != nil {
		return err
	}

	return nil
}

func (s *SQLiteStorage) GatherCounts() ([]model.EventCount, error) {
	rows, err := s.db.Query(
		`select type, count(*) as cnt
        from touch_events
        group by type
        order by type`)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	result := make([]model.EventCount, 0)

	for rows.Next() {
		var typ, count int

		err = rows.Scan(&typ, &count)
		if err != nil {
			return nil, err
		}

		result = append(result, model.EventCount{Type: model.EventType(typ), Count: count})
	}

	return result, rows.Err()
}

func (s *SQLiteStorage) Close() {
	s.db.Close()
}
