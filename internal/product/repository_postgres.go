package product

import (
	"database/sql"
)

type PostgresRepository struct {
	db *sql.DB
}

const productColumns = `product_id, store_id, product_name, product_desc, original_price, sale_price, discount_percentage, stock, animal_type, product_type, created_at, updated_at`

const (
	listProductsQuery = `
		SELECT ` + productColumns + `
		FROM products
		ORDER BY product_id
	`
	getProductByIDQuery = `
		SELECT ` + productColumns + `
		FROM products
		WHERE product_id = $1
	`
	listProductsByStoreQuery = `
		SELECT ` + productColumns + `
		FROM products
		WHERE store_id = $1
		ORDER BY product_id
	`
	insertProductQuery = `
		INSERT INTO products (store_id, product_name, product_desc, original_price, sale_price, discount_percentage, stock, animal_type, product_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING product_id
	`
	updateProductQuery = `
		UPDATE products
		SET product_name = $2,
			product_desc = $3,
			original_price = $4,
			sale_price = $5,
			discount_percentage = $6,
			stock = $7,
			animal_type = $8,
			product_type = $9,
			updated_at = $10
		WHERE product_id = $1
		RETURNING ` + productColumns + `
	`
	deleteProductQuery = `DELETE FROM products WHERE product_id = $1`

	// The WHERE guard keeps stock from ever going negative; a violating
	// delta simply matches no row.
	adjustStockQuery = `
		UPDATE products
		SET stock = stock + $2
		WHERE product_id = $1 AND stock + $2 >= 0
		RETURNING ` + productColumns + `
	`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List() []Product {
	rows, err := r.db.Query(listProductsQuery)
	if err != nil {
		return []Product{}
	}
	defer rows.Close()

	return collectProducts(rows)
}

func (r *PostgresRepository) GetByID(id int) (Product, error) {
	return scanProduct(r.db.QueryRow(getProductByIDQuery, id))
}

func (r *PostgresRepository) ListByStore(storeID int) ([]Product, error) {
	rows, err := r.db.Query(listProductsByStoreQuery, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectProducts(rows), nil
}

func (r *PostgresRepository) Create(p Product) (Product, error) {
	err := r.db.QueryRow(insertProductQuery,
		p.StoreID, p.Name, p.Description, p.OriginalPrice, p.SalePrice, p.DiscountPercentage,
		p.Stock, p.AnimalType, p.ProductType, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *PostgresRepository) Update(id int, p Product) (Product, error) {
	return scanProduct(r.db.QueryRow(updateProductQuery,
		id, p.Name, p.Description, p.OriginalPrice, p.SalePrice, p.DiscountPercentage,
		p.Stock, p.AnimalType, p.ProductType, p.UpdatedAt,
	))
}

func (r *PostgresRepository) Delete(id int) error {
	res, err := r.db.Exec(deleteProductQuery, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) AdjustStock(id int, delta int) (Product, error) {
	p, err := scanProduct(r.db.QueryRow(adjustStockQuery, id, delta))
	if err == ErrNotFound {
		// distinguish a missing row from a rejected delta
		if _, getErr := r.GetByID(id); getErr == nil {
			return Product{}, ErrInsufficientStock
		}
		return Product{}, ErrNotFound
	}
	return p, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.StoreID, &p.Name, &p.Description, &p.OriginalPrice, &p.SalePrice,
		&p.DiscountPercentage, &p.Stock, &p.AnimalType, &p.ProductType, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func collectProducts(rows *sql.Rows) []Product {
	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			continue
		}
		products = append(products, p)
	}
	return products
}
