package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fjod/go_store/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ProductListerMock struct {
	products []*domain.Product
	err      error
}

func (m ProductListerMock) ListProducts(context.Context) ([]*domain.Product, error) {
	return m.products, m.err
}

func TestListProducts(t *testing.T) {
	handler := NewProductHandler(ProductListerMock{products: []*domain.Product{
		{ID: 1, Name: "Widget", Price: domain.MustMoney("19.99")},
	}})
	recorder := httptest.NewRecorder()

	handler.List(recorder, httptest.NewRequest(http.MethodGet, "/products", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	var response struct {
		Products []map[string]interface{} `json:"products"`
	}
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	require.Len(t, response.Products, 1)
	assert.Equal(t, "Widget", response.Products[0]["name"])
	assert.Equal(t, "19.99", response.Products[0]["price"])
}

func TestListProducts_Error(t *testing.T) {
	handler := NewProductHandler(ProductListerMock{err: errors.New("disk full")})
	recorder := httptest.NewRecorder()

	handler.List(recorder, httptest.NewRequest(http.MethodGet, "/products", nil))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}
