package data

import (
	"database/sql"
	"dbconsole/internal/core"
	"errors"
)

type ServerRepo struct {
	db *sql.DB
}

func NewServerRepo(db *sql.DB) *ServerRepo {
	return &ServerRepo{db: db}
}

const serverColumns = `id, name, driver, dsn_enc, bookmark_db, bookmark_table, is_active`

func (r *ServerRepo) Create(s *core.Server) error {
	res, err := r.db.Exec(`INSERT INTO servers (name, driver, dsn_enc, bookmark_db, bookmark_table, is_active) VALUES (?, ?, ?, ?, ?, ?)`,
		s.Name, s.Driver, s.DSNEnc, s.BookmarkDB, s.BookmarkTable, s.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

func (r *ServerRepo) GetAll() ([]core.Server, error) {
	rows, err := r.db.Query(`SELECT ` + serverColumns + ` FROM servers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	servers := []core.Server{}
	for rows.Next() {
		var s core.Server
		// SQLite stores booleans as integers (0 or 1)
		var isActive int
		if err := rows.Scan(&s.ID, &s.Name, &s.Driver, &s.DSNEnc, &s.BookmarkDB, &s.BookmarkTable, &isActive); err != nil {
			return nil, err
		}
		s.IsActive = isActive == 1
		servers = append(servers, s)
	}
	return servers, rows.Err()
}

// GetByID returns core.ErrServerNotFound for an unknown id.
func (r *ServerRepo) GetByID(id int64) (*core.Server, error) {
	var s core.Server
	var isActive int
	err := r.db.QueryRow(`SELECT `+serverColumns+` FROM servers WHERE id = ?`, id).
		Scan(&s.ID, &s.Name, &s.Driver, &s.DSNEnc, &s.BookmarkDB, &s.BookmarkTable, &isActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrServerNotFound
	}
	if err != nil {
		return nil, err
	}
	s.IsActive = isActive == 1
	return &s, nil
}

func (r *ServerRepo) Update(s *core.Server) error {
	_, err := r.db.Exec(`UPDATE servers SET name=?, driver=?, dsn_enc=?, bookmark_db=?, bookmark_table=?, is_active=? WHERE id=?`,
		s.Name, s.Driver, s.DSNEnc, s.BookmarkDB, s.BookmarkTable, s.IsActive, s.ID)
	return err
}

func (r *ServerRepo) Delete(id int64) error {
	_, err := r.db.Exec(`DELETE FROM servers WHERE id=?`, id)
	return err
}
