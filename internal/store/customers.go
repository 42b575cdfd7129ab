package store

import (
	"context"

	"ecom-service/internal/models"
)

func (q *Queries) CreateCustomer(ctx context.Context, c *models.Customer) error {
	query := `
		INSERT INTO customers (name, mobile, email, password_hash, role, google_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *`

	return q.get(ctx, c, query, c.Name, c.Mobile, c.Email, c.PasswordHash, c.Role, c.GoogleID)
}

func (q *Queries) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	var c models.Customer
	if err := q.get(ctx, &c, "SELECT * FROM customers WHERE customer_id = $1", id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (q *Queries) GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var c models.Customer
	if err := q.get(ctx, &c, "SELECT * FROM customers WHERE email = $1", email); err != nil {
		return nil, err
	}
	return &c, nil
}

func (q *Queries) GetCustomerByGoogleID(ctx context.Context, googleID string) (*models.Customer, error) {
	var c models.Customer
	if err := q.get(ctx, &c, "SELECT * FROM customers WHERE google_id = $1", googleID); err != nil {
		return nil, err
	}
	return &c, nil
}

// CustomerConflicts reports which of email and mobile are already registered
func (q *Queries) CustomerConflicts(ctx context.Context, email, mobile string) (emailTaken, mobileTaken bool, err error) {
	var row struct {
		Email  bool `db:"email_taken"`
		Mobile bool `db:"mobile_taken"`
	}
	err = q.get(ctx, &row, `
		SELECT EXISTS(SELECT 1 FROM customers WHERE email = $1) AS email_taken,
		       EXISTS(SELECT 1 FROM customers WHERE mobile = $2) AS mobile_taken`,
		email, mobile)
	return row.Email, row.Mobile, err
}

func (q *Queries) LinkGoogleID(ctx context.Context, customerID int64, googleID string) error {
	return q.exec(ctx, "UPDATE customers SET google_id = $1 WHERE customer_id = $2", googleID, customerID)
}

// Offline customers

func (q *Queries) CreateOfflineCustomer(ctx context.Context, c *models.OfflineCustomer) error {
	return q.get(ctx, c, `
		INSERT INTO offline_customers (name, mobile, email, age, gender)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *`,
		c.Name, c.Mobile, c.Email, c.Age, c.Gender)
}

func (q *Queries) GetOfflineCustomer(ctx context.Context, id int64) (*models.OfflineCustomer, error) {
	var c models.OfflineCustomer
	if err := q.get(ctx, &c, "SELECT * FROM offline_customers WHERE customer_id = $1", id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (q *Queries) ListOfflineCustomers(ctx context.Context) ([]models.OfflineCustomer, error) {
	var out []models.OfflineCustomer
	err := q.sel(ctx, &out, "SELECT * FROM offline_customers ORDER BY customer_id DESC")
	return out, err
}

func (q *Queries) UpdateOfflineCustomer(ctx context.Context, c *models.OfflineCustomer) error {
	return q.get(ctx, c, `
		UPDATE offline_customers SET name = $1, mobile = $2, email = $3, age = $4, gender = $5
		WHERE customer_id = $6
		RETURNING *`,
		c.Name, c.Mobile, c.Email, c.Age, c.Gender, c.ID)
}

func (q *Queries) DeleteOfflineCustomer(ctx context.Context, id int64) error {
	return q.exec(ctx, "DELETE FROM offline_customers WHERE customer_id = $1", id)
}
