package vo

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmailAddressNormalizesAndValidates(t *testing.T) {
	email, err := NewEmailAddress("  Buyer@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", email.String())

	_, err = NewEmailAddress("not-an-email")
	assert.Error(t, err)
}

func TestNewMoneyRejectsNegativeAmounts(t *testing.T) {
	_, err := NewMoney(decimal.NewFromInt(-1))
	assert.Error(t, err)

	m, err := NewMoney(decimal.NewFromFloat(9.999))
	require.NoError(t, err)
	assert.Equal(t, "10.00", m.String())
}

func TestMoneyFromStringRejectsGarbage(t *testing.T) {
	_, err := MoneyFromString("not-a-number")
	assert.Error(t, err)

	m, err := MoneyFromString("19.95")
	require.NoError(t, err)
	assert.Equal(t, "19.95", m.String())
}

func TestMoneyFromCentsRoundTrips(t *testing.T) {
	m := MoneyFromCents(1050)
	assert.Equal(t, "10.50", m.String())
}

func TestMoneyAddAndMul(t *testing.T) {
	a, err := MoneyFromString("5.00")
	require.NoError(t, err)
	b, err := MoneyFromString("2.50")
	require.NoError(t, err)

	sum := a.Add(b)
	assert.Equal(t, "7.50", sum.String())

	tripled := a.Mul(3)
	assert.Equal(t, "15.00", tripled.String())
}

func TestNewQuantityRejectsNonPositive(t *testing.T) {
	_, err := NewQuantity(0)
	assert.Error(t, err)

	q, err := NewQuantity(5)
	require.NoError(t, err)
	assert.Equal(t, 5, q.Int())
}

func TestNewHoldIDRejectsBlank(t *testing.T) {
	_, err := NewHoldID("   ")
	assert.Error(t, err)

	id, err := NewHoldID(" hold-1 ")
	require.NoError(t, err)
	assert.Equal(t, "hold-1", id.String())
}

func TestNewGeneratedHoldIDIsNeverZero(t *testing.T) {
	id := NewGeneratedHoldID()
	assert.False(t, id.IsZero())
}

func TestNewIdempotencyKeyRejectsBlank(t *testing.T) {
	_, err := NewIdempotencyKey("")
	assert.Error(t, err)

	key, err := NewIdempotencyKey("idem-1")
	require.NoError(t, err)
	assert.False(t, key.IsZero())
}
