package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propsignal/tenant-assistant/internal/model"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+1 (555) 010-0100", "+15550100100"},
		{"whatsapp:+15551000", "+15551000"},
		{"15551000@c.us", "15551000"},
		{"  +15551000  ", "+15551000"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizePhone(tc.in), "input %q", tc.in)
	}
}

func TestRegisterAndFindTenant(t *testing.T) {
	dir := New(nil)

	tenant, err := dir.RegisterTenant(context.Background(), &model.RegisterTenantRequest{
		Name:  "Dana Smith",
		Phone: "whatsapp:+1 555 100 0000",
		Unit:  "4B",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tenant.ID)
	assert.Equal(t, "+15551000000", tenant.Phone)

	// Lookup succeeds under any provider formatting of the same number.
	assert.Equal(t, tenant, dir.FindTenantByPhone("+15551000000"))
	assert.Equal(t, tenant, dir.FindTenantByPhone("whatsapp:+15551000000@c.us"))
	assert.Equal(t, tenant, dir.FindTenantByID(tenant.ID))

	assert.Nil(t, dir.FindTenantByPhone("+19990000000"))
	assert.Nil(t, dir.FindTenantByID("nope"))
}

func TestRegisterTenantValidation(t *testing.T) {
	dir := New(nil)

	_, err := dir.RegisterTenant(context.Background(), &model.RegisterTenantRequest{Name: "Dana"})
	assert.Error(t, err)

	_, err = dir.RegisterTenant(context.Background(), &model.RegisterTenantRequest{Phone: "+15551000"})
	assert.Error(t, err)
}

func TestRegisterAndFindContractor(t *testing.T) {
	dir := New(nil)

	contractor, err := dir.RegisterContractor(context.Background(), &model.RegisterContractorRequest{
		Name:  "Lee Park",
		Phone: "+15552000",
		Trade: "plumbing",
	})
	require.NoError(t, err)

	assert.Equal(t, contractor, dir.FindContractorByPhone("whatsapp:+15552000"))
	assert.Nil(t, dir.FindContractorByPhone("+19990000000"))
}

func TestIsLandlord(t *testing.T) {
	dir := New([]string{"whatsapp:+15550100", "+1 555 010 1"})

	assert.True(t, dir.IsLandlord("+15550100"))
	assert.True(t, dir.IsLandlord("whatsapp:+15550101@c.us"))
	assert.False(t, dir.IsLandlord("+15551000"))

	assert.ElementsMatch(t, []string{"+15550100", "+15550101"}, dir.Landlords())
}

func TestListings(t *testing.T) {
	dir := New(nil)

	_, err := dir.RegisterTenant(context.Background(), &model.RegisterTenantRequest{Name: "A", Phone: "+15551001"})
	require.NoError(t, err)
	_, err = dir.RegisterTenant(context.Background(), &model.RegisterTenantRequest{Name: "B", Phone: "+15551002"})
	require.NoError(t, err)
	_, err = dir.RegisterContractor(context.Background(), &model.RegisterContractorRequest{Name: "C", Phone: "+15552001"})
	require.NoError(t, err)

	assert.Len(t, dir.ListTenants(), 2)
	assert.Len(t, dir.ListContractors(), 1)
}
