package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

type registration struct {
	Username string `json:"username" validate:"required,min=3,max=8"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,mobile"`
	Code     string `json:"code" validate:"omitempty,len=6,numeric"`
	Quantity int    `json:"quantity" validate:"gte=1,lte=99"`
	Ordering string `json:"ordering" validate:"omitempty,oneof=price -price"`
	Password string `json:"password" validate:"omitempty,nefield=Username"`
	Nickname string `validate:"omitempty,alpha"`
}

func valid() registration {
	return registration{Username: "alice", Email: "alice@example.com", Quantity: 1}
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	return valErr.Fields()
}

func TestValidate_Valid(t *testing.T) {
	assert.NoError(t, Validate(valid()))

	r := valid()
	r.Phone, r.Code, r.Ordering = "13800138000", "123456", "-price"
	assert.NoError(t, Validate(r))
}

func TestValidate_FieldMessages(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*registration)
		field  string
		want   string
	}{
		{"required", func(r *registration) { r.Username = "" }, "username", "is required"},
		{"min", func(r *registration) { r.Username = "al" }, "username", "must be at least 3 characters"},
		{"max", func(r *registration) { r.Username = "alexandria" }, "username", "must be at most 8 characters"},
		{"email", func(r *registration) { r.Email = "not-an-email" }, "email", "must be a valid email address"},
		{"mobile", func(r *registration) { r.Phone = "12345" }, "phone", "must be a valid mobile phone number"},
		{"len", func(r *registration) { r.Code = "12a" }, "code", "must be exactly 6 characters"},
		{"gte", func(r *registration) { r.Quantity = 0 }, "quantity", "must be greater than or equal to 1"},
		{"lte", func(r *registration) { r.Quantity = 100 }, "quantity", "must be less than or equal to 99"},
		{"oneof", func(r *registration) { r.Ordering = "name" }, "ordering", "must be one of: price -price"},
		{"nefield", func(r *registration) { r.Password = r.Username }, "password", "must differ from Username"},
		{"unmapped tag, untagged field", func(r *registration) { r.Nickname = "4lice" }, "Nickname", "failed on 'alpha' validation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(&r)
			assert.Equal(t, tt.want, fieldsOf(t, Validate(r))[tt.field])
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := Validate(registration{Email: "alice@example.com", Quantity: 1})
	assert.Equal(t, "field 'username' is required", err.Error())
}

func TestCheck(t *testing.T) {
	assert.NoError(t, Check(valid()))

	err := Check(registration{Email: "bad", Quantity: 1})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Equal(t, map[string]string{
		"username": "is required",
		"email":    "must be a valid email address",
	}, appErr.Fields)
}

func TestCheck_NonStruct(t *testing.T) {
	var appErr *apperrors.AppError
	require.ErrorAs(t, Check("not a struct"), &appErr)
	assert.Equal(t, "INVALID_INPUT", appErr.Code)
}
