package masterdata

import (
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

func TestListParamsParsing(t *testing.T) {
	r := httptest.NewRequest("GET", "/products?keyword=pipe&is_active=true&page=2&perpage=10", nil)
	filter, pg := listParams(r)

	require.Equal(t, "pipe", filter.Keyword)
	require.NotNil(t, filter.IsActive)
	require.True(t, *filter.IsActive)
	require.Equal(t, 2, pg.Page)
	require.Equal(t, 10, pg.PerPage)
	require.Equal(t, 10, pg.Offset())
}

func TestListParamsDefaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/products", nil)
	filter, pg := listParams(r)

	require.Empty(t, filter.Keyword)
	require.Nil(t, filter.IsActive)
	require.Equal(t, 1, pg.Page)
	require.Zero(t, pg.Offset())
}

func TestCreateProductRequestValidation(t *testing.T) {
	v := validator.New(validator.WithRequiredStructEnabled())

	require.NoError(t, v.Struct(CreateProductRequest{SKU: "SKU-1", Name: "Steel pipe"}))
	require.Error(t, v.Struct(CreateProductRequest{Name: "missing sku"}))
	require.Error(t, v.Struct(CreateProductRequest{SKU: "SKU-1"}))
}

func TestCreatePartyRequestValidation(t *testing.T) {
	v := validator.New(validator.WithRequiredStructEnabled())

	require.NoError(t, v.Struct(CreatePartyRequest{Code: "CUS-1", Name: "Acme"}))
	require.Error(t, v.Struct(CreatePartyRequest{Code: "CUS-1", Name: "Acme", Email: "not-an-email"}))
}
