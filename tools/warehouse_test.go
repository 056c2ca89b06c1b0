package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aigentic/fleetassist/store"
	"github.com/aigentic/fleetassist/types"
)

func newToolRegistry(t *testing.T) (*Registry, *store.Warehouse) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	w := store.NewWarehouse(db, nil)
	require.NoError(t, w.Migrate())

	r := NewRegistry(nil)
	r.MustRegister(WarehouseTools(w)...)
	return r, w
}

func run(t *testing.T, r *Registry, name, args string) types.ToolResult {
	t.Helper()
	return r.Run(context.Background(), types.ToolCall{
		ID:        "call",
		Name:      name,
		Arguments: json.RawMessage(args),
	})
}

func TestWarehouseTools_Registered(t *testing.T) {
	r, _ := newToolRegistry(t)
	assert.ElementsMatch(t, []string{
		"fleet_query", "vehicle_list", "vehicle_query", "health_query",
		"health_bulk_query", "part_query", "part_delivery_time_query",
		"part_order_query", "vehicle_rental_query", "vehicle_appointment_query",
		"create_part_order", "create_appointment",
	}, r.Names())
}

func TestVehicleQueryTool(t *testing.T) {
	r, w := newToolRegistry(t)
	require.NoError(t, seedDB(w, []store.Vehicle{
		{VehicleID: "V1", Make: "Audi", Model: "Q4 e-tron", ModelYear: 2023, LicensePlate: "B-AU 1001"},
		{VehicleID: "V2", Make: "Tesla", Model: "Model 3", ModelYear: 2022, LicensePlate: "B-TE 2001"},
	}))

	// Comma separated IDs address multiple vehicles at once.
	result := run(t, r, "vehicle_query", `{"vehicle_id":"V1, V2"}`)
	require.False(t, result.IsError(), result.Error)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(result.Result, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "V1", rows[0]["Vehicle_ID"])
	assert.Equal(t, "B-AU 1001", rows[0]["License_Plate"])

	result = run(t, r, "vehicle_query", `{"vehicle_id":""}`)
	assert.True(t, result.IsError())
}

func TestCreatePartOrderTool(t *testing.T) {
	r, w := newToolRegistry(t)
	require.NoError(t, seedDB(w, []store.PartDelivery{
		{PartID: "P1", ValidFrom: store.Today().AddDays(-1), DeliveryTime: 5},
	}))

	result := run(t, r, "create_part_order", `{"part_id":"P1","quantity":2}`)
	require.False(t, result.IsError(), result.Error)

	var order map[string]any
	require.NoError(t, json.Unmarshal(result.Result, &order))
	assert.Equal(t, "P1", order["Part_ID"])
	assert.Equal(t, float64(2), order["Amount"])
	assert.Equal(t, store.OrderStatePending, order["State"])
	assert.Equal(t, store.Today().AddDays(5).String(), order["Arrival_Date"])

	// Unknown part surfaces as an error payload the model can read.
	result = run(t, r, "create_part_order", `{"part_id":"P9","quantity":1}`)
	assert.True(t, result.IsError())
	assert.Contains(t, string(result.Result), "error")
}

func TestCreateAppointmentTool(t *testing.T) {
	r, w := newToolRegistry(t)

	result := run(t, r, "create_appointment",
		`{"vehicle_id":"V1","time":"2026-09-10 09:30","place":"Germany, Berlin, Hauptstr. 5","order_id":"O1"}`)
	require.False(t, result.IsError(), result.Error)

	appts, err := w.VehicleAppointments(context.Background(), "V1")
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "O1", appts[0].OrderID)
	assert.Equal(t, time.Date(2026, 9, 10, 9, 30, 0, 0, time.UTC), appts[0].Time.UTC())

	result = run(t, r, "create_appointment",
		`{"vehicle_id":"V1","time":"next tuesday","place":"x"}`)
	assert.True(t, result.IsError())
}

func TestPartDeliveryTimeTool(t *testing.T) {
	r, w := newToolRegistry(t)
	require.NoError(t, seedDB(w, []store.PartDelivery{
		{PartID: "P1", ValidFrom: store.Today().AddDays(-1), DeliveryTime: 3},
	}))

	result := run(t, r, "part_delivery_time_query", `{"part_id":"P1"}`)
	require.False(t, result.IsError(), result.Error)
	assert.JSONEq(t, `{"Delivery_Time":3}`, string(result.Result))
}

// seedDB inserts rows through the warehouse's underlying handle.
func seedDB[T any](w *store.Warehouse, rows []T) error {
	return w.DB().Create(&rows).Error
}
