package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney_DecodesStringAndNumber(t *testing.T) {
	var v struct {
		A Money `json:"a"`
		B Money `json:"b"`
		C Money `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"299.00","b":1897.5,"c":null}`), &v))

	assert.Equal(t, "299.00", v.A.String())
	assert.Equal(t, "1897.50", v.B.String())
	assert.True(t, v.C.IsZero())
}

func TestMoney_EncodesTwoDecimalString(t *testing.T) {
	data, err := json.Marshal(struct {
		Price Money `json:"price"`
	}{MoneyFromInt(99)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":"99.00"}`, string(data))
}

func TestMoney_MulRoundsToCents(t *testing.T) {
	assert.Equal(t, "897.00", MustMoney("299.00").Mul(3).String())
	assert.Equal(t, "1.01", MustMoney("0.335").Mul(3).String())
	assert.Equal(t, "0.00", MustMoney("299.00").Mul(0).String())
}

func TestMoney_Sum(t *testing.T) {
	total := Sum(MustMoney("598.00"), MustMoney("1299.00"))
	assert.Equal(t, "1897.00", total.String())
	assert.True(t, total.Equal(MustMoney("1897")))
}

func TestNewMoney_Invalid(t *testing.T) {
	_, err := NewMoney("abc")
	assert.Error(t, err)
}

func TestMoney_DecodeInvalid(t *testing.T) {
	var m Money
	assert.Error(t, json.Unmarshal([]byte(`"twelve"`), &m))
}
