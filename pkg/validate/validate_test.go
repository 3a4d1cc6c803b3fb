package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Age      int    `json:"age,omitempty" validate:"omitempty,min=18"`
}

func TestStruct_ReportsJSONNames(t *testing.T) {
	err := New().Struct(signup{Email: "nope", Password: "123", Age: 3})

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, map[string]string{
		"email":    "must be a valid email address",
		"password": "must be at least 6 characters",
		"age":      "must be at least 18",
	}, verr.Fields)
	assert.Equal(t, "validation failed: age, email, password", err.Error())
}

func TestStruct_OK(t *testing.T) {
	assert.NoError(t, New().Struct(signup{Email: "a@b.test", Password: "secret"}))
}

func TestFields(t *testing.T) {
	assert.Nil(t, Fields(errors.New("x")))
	err := New().Struct(signup{})
	assert.Equal(t, "is required", Fields(err)["email"])
}
