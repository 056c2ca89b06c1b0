package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aigentic/fleetassist/store"
	"github.com/aigentic/fleetassist/types"
)

func schema(name, description, parameters string) types.ToolSchema {
	return types.ToolSchema{
		Name:        name,
		Description: description,
		Parameters:  json.RawMessage(parameters),
	}
}

const noParams = `{"type":"object","properties":{}}`

func vehicleIDParam(required bool) string {
	req := ""
	if required {
		req = `,"required":["vehicle_id"]`
	}
	return `{"type":"object","properties":{"vehicle_id":{"type":"string","description":"The unique identifier of the vehicle."}}` + req + `}`
}

// WarehouseTools returns the data tools backed by the fleet warehouse.
func WarehouseTools(w *store.Warehouse) []Tool {
	return []Tool{
		{
			Schema: schema("fleet_query",
				"Retrieves the list of vehicle makes, models and model years in the fleet.",
				noParams),
			Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
				return w.FleetSummary(ctx)
			},
		},
		{
			Schema: schema("vehicle_list",
				"Retrieves the list of vehicles in the fleet with their properties.",
				noParams),
			Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
				return w.VehicleList(ctx)
			},
		},
		{
			Schema: schema("vehicle_query",
				"Retrieves the details of one or more vehicles. vehicle_id may be a comma separated list.",
				vehicleIDParam(true)),
			Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
				var in struct {
					VehicleID string `json:"vehicle_id"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, fmt.Errorf("invalid arguments: %w", err)
				}
				ids := splitIDs(in.VehicleID)
				if len(ids) == 0 {
					return nil, fmt.Errorf("vehicle_id is required")
				}
				return w.Vehicles(ctx, ids)
			},
		},
		{
			Schema: schema("health_query",
				"Retrieves the most recent health data of a vehicle.",
				vehicleIDParam(true)),
			Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
				var in struct {
					VehicleID string `json:"vehicle_id"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, fmt.Errorf("invalid arguments: %w", err)
				}
				return w.VehicleHealth(ctx, in.VehicleID)
			},
		},
		{
			Schema: schema("health_bulk_query",
				"Retrieves the most recent health data of all vehicles in the fleet.",
				noParams),
			Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
				return w.FleetHealth(ctx)
			},
		},
		{
			Schema: schema("part_query",
				"Retrieves the list of vehicle parts.",
				noParams),
			Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
				return w.Parts(ctx)
			},
		},
		{
			Schema: schema("part_delivery_time_query",
				"Retrieves the current delivery time in days of a vehicle part.",
				`{"type":"object","properties":{"part_id":{"type":"string","description":"The unique identifier of the vehicle part."}},"required":["part_id"]}`),
			Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
				var in struct {
					PartID string `json:"part_id"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, fmt.Errorf("invalid arguments: %w", err)
				}
				days, err := w.PartDeliveryTime(ctx, in.PartID)
				if err != nil {
					return nil, err
				}
				return map[string]int{"Delivery_Time": days}, nil
			},
		},
		{
			Schema: schema("part_order_query",
				"Retrieves the details of a part order.",
				`{"type":"object","properties":{"order_id":{"type":"string","description":"The unique identifier of the part order."}},"required":["order_id"]}`),
			Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
				var in struct {
					OrderID string `json:"order_id"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, fmt.Errorf("invalid arguments: %w", err)
				}
				return w.PartOrders(ctx, in.OrderID)
			},
		},
		{
			Schema: schema("vehicle_rental_query",
				"Retrieves the current and future rental dates of a vehicle.",
				vehicleIDParam(true)),
			Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
				var in struct {
					VehicleID string `json:"vehicle_id"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, fmt.Errorf("invalid arguments: %w", err)
				}
				return w.VehicleRentals(ctx, in.VehicleID)
			},
		},
		{
			Schema: schema("vehicle_appointment_query",
				"Retrieves the future service appointments of a vehicle.",
				vehicleIDParam(true)),
			Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
				var in struct {
					VehicleID string `json:"vehicle_id"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, fmt.Errorf("invalid arguments: %w", err)
				}
				return w.VehicleAppointments(ctx, in.VehicleID)
			},
		},
		{
			Schema: schema("create_part_order",
				"Creates a new part order.",
				`{"type":"object","properties":{"part_id":{"type":"string","description":"The unique identifier of the vehicle part."},"quantity":{"type":"integer","description":"The quantity of the part to order."}},"required":["part_id","quantity"]}`),
			Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
				var in struct {
					PartID   string `json:"part_id"`
					Quantity int    `json:"quantity"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, fmt.Errorf("invalid arguments: %w", err)
				}
				return w.CreatePartOrder(ctx, in.PartID, in.Quantity)
			},
		},
		{
			Schema: schema("create_appointment",
				"Creates a new service appointment.",
				`{"type":"object","properties":{"vehicle_id":{"type":"string","description":"The unique identifier of the vehicle."},"time":{"type":"string","description":"The date and time of the appointment, RFC 3339."},"place":{"type":"string","description":"The place of the appointment (Country, City, Street)."},"order_id":{"type":"string","description":"The unique identifier of the part order."}},"required":["vehicle_id","time","place"]}`),
			Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
				var in struct {
					VehicleID string `json:"vehicle_id"`
					Time      string `json:"time"`
					Place     string `json:"place"`
					OrderID   string `json:"order_id"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, fmt.Errorf("invalid arguments: %w", err)
				}
				at, err := store.ParseAppointmentTime(in.Time)
				if err != nil {
					return nil, err
				}
				return w.CreateAppointment(ctx, in.VehicleID, at, in.Place, in.OrderID)
			},
		},
	}
}

func splitIDs(s string) []string {
	parts := strings.Split(s, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}
