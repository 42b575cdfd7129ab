package store

import (
	"context"

	"ecom-service/internal/models"
)

const addressSelect = `
	SELECT a.*, s.name AS state_name
	FROM addresses a
	LEFT JOIN states s ON s.state_id = a.state_id`

func (q *Queries) CreateAddress(ctx context.Context, a *models.Address) error {
	query := `
		INSERT INTO addresses (customer_id, offline_customer_id, name, mobile, pincode, locality,
		                       address_line, city, state_id, landmark, alternate_phone, address_type,
		                       latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING *`

	return q.get(ctx, a, query,
		a.CustomerID, a.OfflineCustomerID, a.Name, a.Mobile, a.Pincode, a.Locality,
		a.AddressLine, a.City, a.StateID, a.Landmark, a.AlternatePhone, a.AddressType,
		a.Latitude, a.Longitude)
}

func (q *Queries) GetAddress(ctx context.Context, id int64) (*models.Address, error) {
	var a models.Address
	if err := q.get(ctx, &a, addressSelect+" WHERE a.address_id = $1", id); err != nil {
		return nil, err
	}
	return &a, nil
}

func (q *Queries) ListAddressesByCustomer(ctx context.Context, customerID int64) ([]models.Address, error) {
	out := []models.Address{}
	err := q.sel(ctx, &out, addressSelect+" WHERE a.customer_id = $1 ORDER BY a.address_id", customerID)
	return out, err
}

func (q *Queries) ListAddressesByOfflineCustomers(ctx context.Context, ids []int64) ([]models.Address, error) {
	out := []models.Address{}
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := q.in(addressSelect+" WHERE a.offline_customer_id IN (?) ORDER BY a.address_id", ids)
	if err != nil {
		return nil, err
	}
	err = q.sel(ctx, &out, query, args...)
	return out, err
}

func (q *Queries) UpdateAddress(ctx context.Context, a *models.Address) error {
	query := `
		UPDATE addresses
		SET name = $1, mobile = $2, pincode = $3, locality = $4, address_line = $5, city = $6,
		    state_id = $7, landmark = $8, alternate_phone = $9, address_type = $10,
		    latitude = $11, longitude = $12, updated_at = NOW()
		WHERE address_id = $13
		RETURNING *`

	return q.get(ctx, a, query,
		a.Name, a.Mobile, a.Pincode, a.Locality, a.AddressLine, a.City,
		a.StateID, a.Landmark, a.AlternatePhone, a.AddressType,
		a.Latitude, a.Longitude, a.ID)
}

func (q *Queries) DeleteAddress(ctx context.Context, id int64) error {
	return q.exec(ctx, "DELETE FROM addresses WHERE address_id = $1", id)
}
