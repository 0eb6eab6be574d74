package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fragmede/shopterm/internal/api"
)

// GetProduct retrieves a cached product. Returns (product, isFresh, error).
// isFresh indicates whether the product is within its TTL.
// Returns nil product on cache miss.
func (d *DB) GetProduct(id int, ttl time.Duration) (*api.Product, bool, error) {
	var data string
	var fetchedAt int64
	err := d.db.QueryRow(`SELECT data, fetched_at FROM products WHERE id = ?`, id).Scan(&data, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var p api.Product
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, false, fmt.Errorf("decoding cached product %d: %w", id, err)
	}
	isFresh := time.Since(time.Unix(fetchedAt, 0)) < ttl
	return &p, isFresh, nil
}

// PutProduct stores a product in the cache.
func (d *DB) PutProduct(p *api.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = d.db.Exec(`INSERT OR REPLACE INTO products (id, data, fetched_at) VALUES (?, ?, ?)`,
		p.ID, string(data), time.Now().Unix())
	return err
}

// GetProductList retrieves a cached catalog page for a query key.
// Returns (page, isFresh, error). page is nil on cache miss.
func (d *DB) GetProductList(key string, ttl time.Duration) (*api.Page[api.Product], bool, error) {
	var data string
	var fetchedAt int64
	err := d.db.QueryRow(`SELECT data, fetched_at FROM product_lists WHERE query_key = ?`, key).Scan(&data, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var page api.Page[api.Product]
	if err := json.Unmarshal([]byte(data), &page); err != nil {
		return nil, false, err
	}
	isFresh := time.Since(time.Unix(fetchedAt, 0)) < ttl
	return &page, isFresh, nil
}

// PutProductList stores a catalog page and its products.
func (d *DB) PutProductList(key string, page *api.Page[api.Product]) error {
	data, err := json.Marshal(page)
	if err != nil {
		return err
	}

	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	if _, err := tx.Exec(`INSERT OR REPLACE INTO product_lists (query_key, data, fetched_at) VALUES (?, ?, ?)`,
		key, string(data), now); err != nil {
		return err
	}
	for i := range page.Results {
		p := &page.Results[i]
		pd, err := json.Marshal(p)
		if err != nil {
			return err
		}
		// List entries are summaries; keep a fuller detail record if present.
		if _, err := tx.Exec(`INSERT OR IGNORE INTO products (id, data, fetched_at) VALUES (?, ?, ?)`,
			p.ID, string(pd), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetCategories returns the cached category list in server order.
func (d *DB) GetCategories(ttl time.Duration) ([]api.Category, bool, error) {
	rows, err := d.db.Query(`SELECT data, fetched_at FROM categories ORDER BY position`)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var result []api.Category
	oldest := int64(0)
	for rows.Next() {
		var data string
		var fetchedAt int64
		if err := rows.Scan(&data, &fetchedAt); err != nil {
			return nil, false, err
		}
		var c api.Category
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			continue
		}
		if oldest == 0 || fetchedAt < oldest {
			oldest = fetchedAt
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	if len(result) == 0 {
		return nil, false, nil
	}
	isFresh := time.Since(time.Unix(oldest, 0)) < ttl
	return result, isFresh, nil
}

// PutCategories replaces the cached category list.
func (d *DB) PutCategories(cats []api.Category) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM categories`); err != nil {
		return err
	}
	now := time.Now().Unix()
	for i, c := range cats {
		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO categories (id, data, position, fetched_at) VALUES (?, ?, ?, ?)`,
			c.ID, string(data), i, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}
