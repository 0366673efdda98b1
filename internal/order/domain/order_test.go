package domain

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleItems() []OrderItem {
	return []OrderItem{
		{ProductID: 1, ProductName: "Blue Casual Shirt", Size: "M", Quantity: 2, Price: decimal.RequireFromString("899.50")},
		{ProductID: 2, ProductName: "Leather Belt", Quantity: 1, Price: decimal.NewFromInt(500)},
	}
}

func TestNewOrderNumberFormat(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	n := NewOrderNumber(now)
	assert.Regexp(t, regexp.MustCompile(`^ORD20260314[0-9A-F]{8}$`), n)
	assert.NotEqual(t, n, NewOrderNumber(now))
}

func TestNewOrderTotalsAndPaymentStatus(t *testing.T) {
	now := time.Now()
	cod := NewOrder(7, PaymentCOD, Shipping{}, sampleItems(), now)
	assert.True(t, cod.TotalAmount.Equal(decimal.RequireFromString("2299")))
	assert.Equal(t, StatusPending, cod.Status)
	assert.Equal(t, PaymentCompleted, cod.PaymentStatus)
	assert.Equal(t, int64(229900), cod.AmountMinor())

	online := NewOrder(7, PaymentOnline, Shipping{}, sampleItems(), now)
	assert.Equal(t, PaymentPending, online.PaymentStatus)
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusShipped, false},
		{StatusProcessing, StatusShipped, true},
		{StatusProcessing, StatusCancelled, true},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusCancelled, false},
		{StatusDelivered, StatusPending, false},
		{StatusCancelled, StatusProcessing, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			o := &Order{Status: tc.from}
			err := o.TransitionTo(tc.to)
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, tc.to, o.Status)
				return
			}
			assert.True(t, errors.Is(err, ErrInvalidTransition))
			assert.Equal(t, tc.from, o.Status)
		})
	}
}

func TestReleasesStockOn(t *testing.T) {
	assert.True(t, (&Order{Status: StatusPending}).ReleasesStockOn(StatusCancelled))
	assert.True(t, (&Order{Status: StatusProcessing}).ReleasesStockOn(StatusCancelled))
	assert.False(t, (&Order{Status: StatusShipped}).ReleasesStockOn(StatusCancelled))
	assert.False(t, (&Order{Status: StatusPending}).ReleasesStockOn(StatusProcessing))
}

func TestPaymentOutcomes(t *testing.T) {
	o := NewOrder(1, PaymentOnline, Shipping{}, sampleItems(), time.Now())
	require.NoError(t, o.MarkPaid("pay_1", "sig"))
	assert.Equal(t, StatusProcessing, o.Status)
	assert.Equal(t, PaymentCompleted, o.PaymentStatus)
	assert.Equal(t, "pay_1", o.GatewayPaymentID)

	failed := NewOrder(1, PaymentOnline, Shipping{}, sampleItems(), time.Now())
	require.NoError(t, failed.MarkPaymentFailed())
	assert.Equal(t, StatusCancelled, failed.Status)
	assert.Equal(t, PaymentFailed, failed.PaymentStatus)
}

func TestParseHelpers(t *testing.T) {
	s, err := ParseStatus(" Shipped ")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, s)
	assert.Equal(t, "Shipped", s.Label())

	_, err = ParseStatus("lost")
	assert.True(t, errors.Is(err, ErrInvalidStatus))

	_, err = ParsePaymentMethod("card")
	assert.True(t, errors.Is(err, ErrInvalidPaymentMethod))
	assert.Equal(t, "Cash on Delivery", PaymentCOD.Label())
}

func TestShippingValidate(t *testing.T) {
	full := Shipping{Name: "A", Phone: "9", Address: "x", City: "c", State: "s", Pincode: "1"}
	assert.NoError(t, full.Validate())
	full.City = "  "
	assert.True(t, errors.Is(full.Validate(), ErrIncompleteShipping))
}

func TestDescribeLine(t *testing.T) {
	assert.Equal(t, "Belt", DescribeLine("Belt", ""))
	assert.Equal(t, "Shirt (Size XL)", DescribeLine("Shirt", "XL"))
}
