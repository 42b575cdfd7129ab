package service

import (
	"testing"

	"ecom-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAddress() AddressInput {
	return AddressInput{
		Name:        " Asha ",
		Mobile:      "9876543210",
		Pincode:     "560001",
		Locality:    "MG Road",
		AddressLine: "12 Residency Lane",
		City:        "Bengaluru",
		StateID:     29,
	}
}

func TestAddressInputValidate(t *testing.T) {
	in := validAddress()
	require.NoError(t, in.validate())
	assert.Equal(t, "Asha", in.Name)
	assert.Equal(t, models.AddressHome, in.AddressType)

	in = validAddress()
	in.AddressType = "WORK"
	require.NoError(t, in.validate())
	assert.Equal(t, models.AddressWork, in.AddressType)

	in = validAddress()
	in.AddressType = "office"
	assert.True(t, IsKind(in.validate(), KindInvalid))
}

func TestAddressInputListsMissingFields(t *testing.T) {
	in := AddressInput{Name: "Asha", City: "Pune"}
	err := in.validate()
	se, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindInvalid, se.Kind)
	assert.Contains(t, se.Message, "mobile")
	assert.Contains(t, se.Message, "state_id")
	assert.NotContains(t, se.Message, "city")
}

func TestAddressInputApply(t *testing.T) {
	in := validAddress()
	require.NoError(t, in.validate())

	owner := int64(3)
	a := &models.Address{ID: 7, CustomerID: &owner}
	in.apply(a)
	assert.Equal(t, int64(7), a.ID)
	assert.Equal(t, &owner, a.CustomerID)
	assert.Equal(t, "Bengaluru", a.City)
	assert.Equal(t, int64(29), a.StateID)
}

func TestOfflineCustomerInputValidate(t *testing.T) {
	blank := "  "
	in := OfflineCustomerInput{Name: "Ravi", Mobile: "9000000000", Email: &blank}
	require.NoError(t, in.validate())
	assert.Nil(t, in.Email)

	age := 151
	in = OfflineCustomerInput{Name: "Ravi", Mobile: "9000000000", Age: &age}
	assert.True(t, IsKind(in.validate(), KindInvalid))

	in = OfflineCustomerInput{Name: "Ravi"}
	assert.True(t, IsKind(in.validate(), KindInvalid))
}

func TestGroupOfflineAddresses(t *testing.T) {
	one, two := int64(1), int64(2)
	customers := []models.OfflineCustomer{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}, {ID: 3, Name: "C"}}
	addresses := []models.Address{
		{ID: 10, OfflineCustomerID: &one},
		{ID: 11, OfflineCustomerID: &two},
		{ID: 12, OfflineCustomerID: &one},
	}

	views := groupOfflineAddresses(customers, addresses)

	require.Len(t, views, 3)
	assert.Len(t, views[0].Addresses, 2)
	assert.Len(t, views[1].Addresses, 1)
	assert.NotNil(t, views[2].Addresses)
	assert.Empty(t, views[2].Addresses)
}
