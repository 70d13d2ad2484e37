package entity_test

import (
	"encoding/json"
	"settlement/entity"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	m, err := entity.NewMoney("12.5")
	require.NoError(t, err)
	assert.Equal(t, "12.500", m.String())

	_, err = entity.NewMoney("1.0005")
	assert.ErrorIs(t, err, entity.ErrInvalidAmount)

	_, err = entity.NewMoney("abc")
	assert.ErrorIs(t, err, entity.ErrInvalidAmount)

	m, err = entity.NewMoney("1.2500")
	require.NoError(t, err, "trailing zeros are not extra precision")
	assert.Equal(t, "1.250", m.String())
}

func TestNewMoney_bounds(t *testing.T) {
	testCases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "99999999999.999", want: "99999999999.999"},
		{in: "0.001", want: "0.001"},
		{in: "0.0010", want: "0.001"},
		{in: "0e-900000000", want: "0.000"},
		{in: "1e10", want: "10000000000.000"},
		{in: "1e11", wantErr: true},
		{in: "100000000000", wantErr: true},
		{in: "1e900000000", wantErr: true},
		{in: "-1e900000000", wantErr: true},
		{in: "1e-900000000", wantErr: true},
		{in: "0.0001", wantErr: true},
		{in: "1e99999999999", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			m, err := entity.NewMoney(tc.in)
			if tc.wantErr {
				assert.ErrorIs(t, err, entity.ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, m.String())
		})
	}
}

func TestMoney_UnmarshalJSON_hugeExponent(t *testing.T) {
	done := make(chan error, 1)
	go func() {
		var m entity.Money
		done <- json.Unmarshal([]byte("1e900000000"), &m)
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, entity.ErrInvalidAmount)
	case <-time.After(5 * time.Second):
		t.Fatal("parsing a short amount did not finish")
	}
}

func TestMoney_UnmarshalJSON_null(t *testing.T) {
	in := struct {
		Discount entity.Money  `json:"discount"`
		Refund   *entity.Money `json:"refund"`
	}{Discount: entity.MustMoney("5")}

	require.NoError(t, json.Unmarshal([]byte(`{"discount":null,"refund":null}`), &in))
	assert.Equal(t, "5.000", in.Discount.String())
	assert.Nil(t, in.Refund)
}

func TestMoney_MulRate(t *testing.T) {
	testCases := []struct {
		amount string
		rate   string
		want   string
	}{
		{amount: "285.000", rate: "0.02", want: "5.700"},
		{amount: "0.025", rate: "0.02", want: "0.001"},
		{amount: "0.075", rate: "0.02", want: "0.002"},
		{amount: "100.000", rate: "0.0333", want: "3.330"},
	}
	for _, tc := range testCases {
		t.Run(tc.amount+"x"+tc.rate, func(t *testing.T) {
			got := entity.MustMoney(tc.amount).MulRate(decimal.RequireFromString(tc.rate))
			assert.Equal(t, tc.want, got.String())
		})
	}
}

func TestMoney_JSON(t *testing.T) {
	payload, err := json.Marshal(struct {
		Amount entity.Money `json:"amount"`
	}{Amount: entity.MustMoney("7")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"7.000"}`, string(payload))

	var in struct {
		A entity.Money `json:"a"`
		B entity.Money `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"1.5","b":2.25}`), &in))
	assert.Equal(t, "1.500", in.A.String())
	assert.Equal(t, "2.250", in.B.String())

	err = json.Unmarshal([]byte(`{"a":"0.0001"}`), &in)
	assert.ErrorIs(t, err, entity.ErrInvalidAmount)
}

func TestMoney_ZeroValue(t *testing.T) {
	var m entity.Money
	assert.True(t, m.IsZero())
	assert.Equal(t, "0.000", m.String())
	assert.True(t, m.Add(entity.MustMoney("1")).Equal(entity.MustMoney("1.000")))
}

func TestMoney_SQL(t *testing.T) {
	v, err := entity.MustMoney("3.1").Value()
	require.NoError(t, err)
	assert.Equal(t, "3.100", v)

	var m entity.Money
	require.NoError(t, m.Scan([]byte("42.420")))
	assert.Equal(t, "42.420", m.String())
}
