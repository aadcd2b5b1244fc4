package validators

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/harborline/storefront-backend/pkg/errors"
)

type addItemBody struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=50"`
}

func postJSON(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
}

func TestDecodeJSONBodyValid(t *testing.T) {
	t.Parallel()

	var dest addItemBody
	req := postJSON(`{"productId":"` + uuid.NewString() + `","quantity":3}`)
	require.NoError(t, DecodeJSONBody(req, &dest))
	assert.Equal(t, 3, dest.Quantity)
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	var dest addItemBody
	req := postJSON(`{"productId":"` + uuid.NewString() + `","quantity":3,"color":"red"}`)
	err := DecodeJSONBody(req, &dest)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestDecodeJSONBodyRejectsMalformedJSON(t *testing.T) {
	t.Parallel()

	var dest addItemBody
	err := DecodeJSONBody(postJSON(`{"quantity":`), &dest)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestDecodeJSONBodyFieldMessagesUseJSONNames(t *testing.T) {
	t.Parallel()

	var dest addItemBody
	err := DecodeJSONBody(postJSON(`{"productId":"not-a-uuid","quantity":99}`), &dest)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be a valid uuid", details["productId"])
	assert.Equal(t, "must be at most 50", details["quantity"])
}

func TestParseUUIDParam(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("cartId", id.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	parsed, err := ParseUUIDParam(req, "cartId")
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseUUIDParamInvalid(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("cartId", "not-a-uuid")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	_, err := ParseUUIDParam(req, "cartId")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
