package service

import (
	"context"
	"errors"
	"strings"

	"ecom-service/internal/models"
	"ecom-service/internal/store"
	"ecom-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CustomerService manages offline customers and customer addresses
type CustomerService struct {
	store  *store.Store
	logger *zap.Logger
}

func NewCustomerService(store *store.Store) *CustomerService {
	return &CustomerService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// AddressInput is the writable part of an address
type AddressInput struct {
	Name           string              `json:"name"`
	Mobile         string              `json:"mobile"`
	Pincode        string              `json:"pincode"`
	Locality       string              `json:"locality"`
	AddressLine    string              `json:"address_line"`
	City           string              `json:"city"`
	StateID        int64               `json:"state_id"`
	Landmark       *string             `json:"landmark"`
	AlternatePhone *string             `json:"alternate_phone"`
	AddressType    string              `json:"address_type"`
	Latitude       decimal.NullDecimal `json:"latitude"`
	Longitude      decimal.NullDecimal `json:"longitude"`
}

func (in *AddressInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Mobile = strings.TrimSpace(in.Mobile)
	in.Pincode = strings.TrimSpace(in.Pincode)
	in.Locality = strings.TrimSpace(in.Locality)
	in.AddressLine = strings.TrimSpace(in.AddressLine)
	in.City = strings.TrimSpace(in.City)

	var missing []string
	for _, f := range []struct {
		name  string
		empty bool
	}{
		{"name", in.Name == ""},
		{"mobile", in.Mobile == ""},
		{"pincode", in.Pincode == ""},
		{"locality", in.Locality == ""},
		{"address_line", in.AddressLine == ""},
		{"city", in.City == ""},
		{"state_id", in.StateID == 0},
	} {
		if f.empty {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return Invalid("missing required address fields: %s", strings.Join(missing, ", "))
	}

	switch strings.ToLower(strings.TrimSpace(in.AddressType)) {
	case "", "home":
		in.AddressType = models.AddressHome
	case "work":
		in.AddressType = models.AddressWork
	default:
		return Invalid("address_type must be %s or %s", models.AddressHome, models.AddressWork)
	}
	return nil
}

func (in *AddressInput) apply(a *models.Address) {
	a.Name = in.Name
	a.Mobile = in.Mobile
	a.Pincode = in.Pincode
	a.Locality = in.Locality
	a.AddressLine = in.AddressLine
	a.City = in.City
	a.StateID = in.StateID
	a.Landmark = in.Landmark
	a.AlternatePhone = in.AlternatePhone
	a.AddressType = in.AddressType
	a.Latitude = in.Latitude
	a.Longitude = in.Longitude
}

func checkState(ctx context.Context, q *store.Queries, stateID int64) error {
	ok, err := q.StateExists(ctx, stateID)
	if err != nil {
		return err
	}
	if !ok {
		return Invalid("state %d does not exist", stateID)
	}
	return nil
}

// OfflineCustomerInput creates or updates a walk-in customer. Address is
// only read on create.
type OfflineCustomerInput struct {
	Name    string        `json:"name"`
	Mobile  string        `json:"mobile"`
	Email   *string       `json:"email"`
	Age     *int          `json:"age"`
	Gender  *string       `json:"gender"`
	Address *AddressInput `json:"address"`
}

func (in *OfflineCustomerInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Mobile = strings.TrimSpace(in.Mobile)
	if in.Name == "" || in.Mobile == "" {
		return Invalid("name and mobile are required")
	}
	if in.Age != nil && (*in.Age < 0 || *in.Age > 150) {
		return Invalid("age must be between 0 and 150")
	}
	if in.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*in.Email))
		in.Email = &e
		if e == "" {
			in.Email = nil
		}
	}
	return nil
}

func (s *CustomerService) CreateOfflineCustomer(ctx context.Context, in OfflineCustomerInput) (*models.OfflineCustomerView, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.Address != nil {
		if err := in.Address.validate(); err != nil {
			return nil, err
		}
	}

	view := &models.OfflineCustomerView{Addresses: []models.Address{}}
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		c := &models.OfflineCustomer{Name: in.Name, Mobile: in.Mobile, Email: in.Email, Age: in.Age, Gender: in.Gender}
		if err := q.CreateOfflineCustomer(ctx, c); err != nil {
			return storeErr(err, "offline customer")
		}
		view.OfflineCustomer = *c

		if in.Address == nil {
			return nil
		}
		if err := checkState(ctx, q, in.Address.StateID); err != nil {
			return err
		}
		a := &models.Address{OfflineCustomerID: &c.ID}
		in.Address.apply(a)
		if err := q.CreateAddress(ctx, a); err != nil {
			return storeErr(err, "address")
		}
		view.Addresses = append(view.Addresses, *a)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Offline customer created", zap.Int64("offline_customer_id", view.ID))
	return view, nil
}

func (s *CustomerService) ListOfflineCustomers(ctx context.Context) ([]models.OfflineCustomerView, error) {
	customers, err := s.store.ListOfflineCustomers(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(customers))
	for i, c := range customers {
		ids[i] = c.ID
	}
	addresses, err := s.store.ListAddressesByOfflineCustomers(ctx, ids)
	if err != nil {
		return nil, err
	}
	return groupOfflineAddresses(customers, addresses), nil
}

func groupOfflineAddresses(customers []models.OfflineCustomer, addresses []models.Address) []models.OfflineCustomerView {
	byCustomer := make(map[int64][]models.Address)
	for _, a := range addresses {
		if a.OfflineCustomerID != nil {
			byCustomer[*a.OfflineCustomerID] = append(byCustomer[*a.OfflineCustomerID], a)
		}
	}
	out := make([]models.OfflineCustomerView, 0, len(customers))
	for _, c := range customers {
		out = append(out, models.OfflineCustomerView{OfflineCustomer: c, Addresses: orEmpty(byCustomer[c.ID])})
	}
	return out
}

func (s *CustomerService) GetOfflineCustomer(ctx context.Context, id int64) (*models.OfflineCustomerView, error) {
	c, err := s.store.GetOfflineCustomer(ctx, id)
	if err != nil {
		return nil, storeErr(err, "offline customer")
	}
	addresses, err := s.store.ListAddressesByOfflineCustomers(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	return &models.OfflineCustomerView{OfflineCustomer: *c, Addresses: addresses}, nil
}

func (s *CustomerService) UpdateOfflineCustomer(ctx context.Context, id int64, in OfflineCustomerInput) (*models.OfflineCustomer, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	c := &models.OfflineCustomer{ID: id, Name: in.Name, Mobile: in.Mobile, Email: in.Email, Age: in.Age, Gender: in.Gender}
	if err := s.store.UpdateOfflineCustomer(ctx, c); err != nil {
		return nil, storeErr(err, "offline customer")
	}
	return c, nil
}

// DeleteOfflineCustomer removes the customer with its addresses and orders
func (s *CustomerService) DeleteOfflineCustomer(ctx context.Context, id int64) error {
	if err := s.store.DeleteOfflineCustomer(ctx, id); err != nil {
		return storeErr(err, "offline customer")
	}
	s.logger.Info("Offline customer deleted", zap.Int64("offline_customer_id", id))
	return nil
}

func (s *CustomerService) AddOfflineAddress(ctx context.Context, offlineCustomerID int64, in AddressInput) (*models.Address, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	a := &models.Address{OfflineCustomerID: &offlineCustomerID}
	in.apply(a)
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		if _, err := q.GetOfflineCustomer(ctx, offlineCustomerID); err != nil {
			return storeErr(err, "offline customer")
		}
		if err := checkState(ctx, q, in.StateID); err != nil {
			return err
		}
		return storeErr(q.CreateAddress(ctx, a), "address")
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *CustomerService) ListOfflineAddresses(ctx context.Context, offlineCustomerID int64) ([]models.Address, error) {
	if _, err := s.store.GetOfflineCustomer(ctx, offlineCustomerID); err != nil {
		return nil, storeErr(err, "offline customer")
	}
	return s.store.ListAddressesByOfflineCustomers(ctx, []int64{offlineCustomerID})
}

func (s *CustomerService) ListAddresses(ctx context.Context, customerID int64) ([]models.Address, error) {
	return s.store.ListAddressesByCustomer(ctx, customerID)
}

func (s *CustomerService) AddAddress(ctx context.Context, customerID int64, in AddressInput) (*models.Address, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := checkState(ctx, s.store.Queries, in.StateID); err != nil {
		return nil, err
	}
	a := &models.Address{CustomerID: &customerID}
	in.apply(a)
	if err := s.store.CreateAddress(ctx, a); err != nil {
		return nil, storeErr(err, "address")
	}
	return a, nil
}

// ownAddress loads an address of the customer. Someone else's address is
// reported as missing.
func ownAddress(ctx context.Context, q *store.Queries, customerID, addressID int64) (*models.Address, error) {
	a, err := q.GetAddress(ctx, addressID)
	if err != nil {
		return nil, storeErr(err, "address")
	}
	if a.CustomerID == nil || *a.CustomerID != customerID {
		return nil, NotFound("address not found")
	}
	return a, nil
}

func (s *CustomerService) UpdateAddress(ctx context.Context, customerID, addressID int64, in AddressInput) (*models.Address, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var out *models.Address
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		a, err := ownAddress(ctx, q, customerID, addressID)
		if err != nil {
			return err
		}
		if err := checkState(ctx, q, in.StateID); err != nil {
			return err
		}
		in.apply(a)
		if err := q.UpdateAddress(ctx, a); err != nil {
			return storeErr(err, "address")
		}
		out = a
		return nil
	})
	return out, err
}

func (s *CustomerService) DeleteAddress(ctx context.Context, customerID, addressID int64) error {
	if _, err := ownAddress(ctx, s.store.Queries, customerID, addressID); err != nil {
		return err
	}
	err := s.store.DeleteAddress(ctx, addressID)
	if errors.Is(err, store.ErrReferenced) {
		return Conflict("address is used by existing orders")
	}
	return storeErr(err, "address")
}
