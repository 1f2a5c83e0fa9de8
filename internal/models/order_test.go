// internal/models/order_test.go
package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestComputeTotal(t *testing.T) {
	items := []OrderItem{
		{ProductID: uuid.New(), Name: "Ceramic Mug", UnitPrice: 15.50, Quantity: 2},
		{ProductID: uuid.New(), Name: "Poster", UnitPrice: 9.00, Quantity: 1},
	}

	assert.Equal(t, 40.0, ComputeTotal(items))
}

func TestComputeTotalEmpty(t *testing.T) {
	assert.Equal(t, 0.0, ComputeTotal(nil))
	assert.Equal(t, 0.0, ComputeTotal([]OrderItem{}))
}

func TestComputeTotalSingleItem(t *testing.T) {
	items := []OrderItem{
		{ProductID: uuid.New(), Name: "E-book", UnitPrice: 12.99, Quantity: 3},
	}

	assert.InDelta(t, 38.97, ComputeTotal(items), 0.0001)
}

func TestOrderStatusValid(t *testing.T) {
	for _, status := range []OrderStatus{
		OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled,
	} {
		assert.True(t, status.Valid(), string(status))
	}

	assert.False(t, OrderStatus("archived").Valid())
	assert.False(t, OrderStatus("").Valid())
}
