package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCapabilitiesFor(t *testing.T) {
	admin := NewActor(1, "Anna", RoleAdministrator)
	for _, c := range []Capability{CapViewAllOrders, CapCloseAnyOrder, CapManageCatalog, CapViewReports, CapKitchenAccess} {
		assert.True(t, admin.Can(c), capabilityNames[c])
	}

	waiter := NewActor(2, "Boris", RoleWaiter)
	assert.True(t, waiter.Can(CapTakeOrders))
	assert.False(t, waiter.Can(CapViewAllOrders))
	assert.ErrorIs(t, waiter.Require(CapViewReports), ErrForbidden)

	chef := NewActor(3, "Chef", RoleChef)
	assert.Equal(t, []string{"KitchenAccess"}, chef.Caps.Names())

	stranger := NewActor(4, "X", Role("Sommelier"))
	assert.Empty(t, stranger.Caps.Names())
	assert.False(t, Role("Sommelier").Valid())
	assert.True(t, RoleCleaner.Valid())
}

func TestCanTouchOrder(t *testing.T) {
	waiter := NewActor(2, "Boris", RoleWaiter)
	admin := NewActor(1, "Anna", RoleAdministrator)

	assert.True(t, waiter.CanTouchOrder(2, CapCloseAnyOrder))
	assert.False(t, waiter.CanTouchOrder(5, CapCloseAnyOrder))
	assert.True(t, admin.CanTouchOrder(5, CapCloseAnyOrder))
}

func TestReportMath(t *testing.T) {
	assert.Equal(t, 0.0, Percent(decimal.NewFromInt(5), decimal.Zero))
	assert.Equal(t, 33.33, Percent(decimal.NewFromInt(1), decimal.NewFromInt(3)))

	rows := []DishSales{
		{DishName: "a", TotalRevenue: MoneyOf(decimal.NewFromInt(450))},
		{DishName: "b", TotalRevenue: MoneyOf(decimal.NewFromInt(760))},
	}
	ApplyRevenueShares(rows, decimal.NewFromInt(1210))
	assert.Equal(t, 37.19, rows[0].RevenueSharePct)
	assert.Equal(t, 62.81, rows[1].RevenueSharePct)

	assert.True(t, Average(decimal.NewFromInt(100), 0).IsZero())
	assert.Equal(t, "33.33", Average(decimal.NewFromInt(100), 3).StringFixed(2))

	total, shares := Distribute([]StatusShare{{StatusID: 1, Count: 3}, {StatusID: 2, Count: 1}})
	assert.Equal(t, int64(4), total)
	assert.Equal(t, 75.0, shares[0].Percentage)
	assert.Equal(t, 25.0, shares[1].Percentage)

	total, shares = Distribute(nil)
	assert.Zero(t, total)
	assert.Empty(t, shares)
}
