package store

import (
	"database/sql"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	getStoreByIDQuery = `
		SELECT store_id, owner_id, store_name, store_desc, created_at, updated_at
		FROM stores
		WHERE store_id = $1
	`
	getStoreByOwnerQuery = `
		SELECT store_id, owner_id, store_name, store_desc, created_at, updated_at
		FROM stores
		WHERE owner_id = $1
	`
	insertStoreQuery = `
		INSERT INTO stores (owner_id, store_name, store_desc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING store_id
	`
	updateStoreQuery = `
		UPDATE stores
		SET store_name = $2, store_desc = $3, updated_at = $4
		WHERE store_id = $1
		RETURNING store_id, owner_id, store_name, store_desc, created_at, updated_at
	`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByID(id int) (Store, error) {
	return scanStore(r.db.QueryRow(getStoreByIDQuery, id))
}

func (r *PostgresRepository) GetByOwner(ownerID int) (Store, error) {
	return scanStore(r.db.QueryRow(getStoreByOwnerQuery, ownerID))
}

func (r *PostgresRepository) Create(st Store) (Store, error) {
	if _, err := r.GetByOwner(st.OwnerID); err == nil {
		return Store{}, ErrStoreExists
	} else if err != ErrNotFound {
		return Store{}, err
	}

	err := r.db.QueryRow(insertStoreQuery,
		st.OwnerID, st.Name, st.Description, st.CreatedAt, st.UpdatedAt,
	).Scan(&st.ID)
	if err != nil {
		return Store{}, err
	}
	return st, nil
}

func (r *PostgresRepository) Update(id int, st Store) (Store, error) {
	return scanStore(r.db.QueryRow(updateStoreQuery, id, st.Name, st.Description, st.UpdatedAt))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStore(row rowScanner) (Store, error) {
	var st Store
	err := row.Scan(&st.ID, &st.OwnerID, &st.Name, &st.Description, &st.CreatedAt, &st.UpdatedAt)
	if err == sql.ErrNoRows {
		return Store{}, ErrNotFound
	}
	if err != nil {
		return Store{}, err
	}
	return st, nil
}
