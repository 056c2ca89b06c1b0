package store

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aigentic/fleetassist/types"
)

// MetricsRecorder receives query timings. The metrics collector implements it.
type MetricsRecorder interface {
	RecordDBQuery(operation string, duration time.Duration)
}

// Warehouse provides the query and mutation operations backing the
// assistant's data tools. All reads are bounded; list queries cap at 100
// rows and per-entity history at 10.
type Warehouse struct {
	db      *gorm.DB
	metrics MetricsRecorder
	logger  *zap.Logger
}

const (
	listLimit    = 100
	historyLimit = 10
)

// NewWarehouse creates a warehouse over an open database handle.
func NewWarehouse(db *gorm.DB, logger *zap.Logger) *Warehouse {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Warehouse{
		db:     db,
		logger: logger.With(zap.String("component", "warehouse")),
	}
}

// WithMetrics attaches a query-timing recorder. Returns the warehouse for
// chaining.
func (w *Warehouse) WithMetrics(m MetricsRecorder) *Warehouse {
	w.metrics = m
	return w
}

// observe times one operation; the returned func is meant to be deferred.
func (w *Warehouse) observe(op string) func() {
	if w.metrics == nil {
		return func() {}
	}
	start := time.Now()
	return func() { w.metrics.RecordDBQuery(op, time.Since(start)) }
}

// DB exposes the underlying handle for seeding and migrations.
func (w *Warehouse) DB() *gorm.DB {
	return w.db
}

// Migrate creates the warehouse tables.
func (w *Warehouse) Migrate() error {
	return w.db.AutoMigrate(
		&Vehicle{},
		&HealthSample{},
		&Part{},
		&PartDelivery{},
		&PartOrder{},
		&Rental{},
		&Appointment{},
	)
}

func queryErr(op string, err error) error {
	return types.NewError(types.ErrWarehouseQuery, op).WithCause(err)
}

// FleetSummary returns the distinct make/model/year combinations in the fleet.
func (w *Warehouse) FleetSummary(ctx context.Context) ([]FleetEntry, error) {
	defer w.observe("fleet_summary")()
	var entries []FleetEntry
	err := w.db.WithContext(ctx).
		Model(&Vehicle{}).
		Distinct("make", "model", "model_year").
		Limit(listLimit).
		Find(&entries).Error
	if err != nil {
		return nil, queryErr("fleet summary", err)
	}
	return entries, nil
}

// VehicleList returns all vehicles with their properties.
func (w *Warehouse) VehicleList(ctx context.Context) ([]Vehicle, error) {
	defer w.observe("vehicle_list")()
	var vehicles []Vehicle
	err := w.db.WithContext(ctx).
		Order("vehicle_id ASC").
		Limit(listLimit).
		Find(&vehicles).Error
	if err != nil {
		return nil, queryErr("vehicle list", err)
	}
	return vehicles, nil
}

// Vehicles returns the details of the given vehicles.
func (w *Warehouse) Vehicles(ctx context.Context, vehicleIDs []string) ([]Vehicle, error) {
	defer w.observe("vehicle_query")()
	var vehicles []Vehicle
	err := w.db.WithContext(ctx).
		Where("vehicle_id IN ?", vehicleIDs).
		Find(&vehicles).Error
	if err != nil {
		return nil, queryErr("vehicle query", err)
	}
	return vehicles, nil
}

// VehicleHealth returns the most recent health samples of one vehicle,
// newest first.
func (w *Warehouse) VehicleHealth(ctx context.Context, vehicleID string) ([]HealthSample, error) {
	defer w.observe("vehicle_health")()
	var samples []HealthSample
	err := w.db.WithContext(ctx).
		Where("vehicle_id = ?", vehicleID).
		Order("timestamp DESC").
		Limit(historyLimit).
		Find(&samples).Error
	if err != nil {
		return nil, queryErr("vehicle health", err)
	}
	return samples, nil
}

// FleetHealth returns the latest health sample of every vehicle.
func (w *Warehouse) FleetHealth(ctx context.Context) ([]HealthSample, error) {
	defer w.observe("fleet_health")()
	latest := w.db.WithContext(ctx).Model(&HealthSample{}).
		Select("vehicle_id, MAX(timestamp) AS ts").
		Group("vehicle_id")

	var samples []HealthSample
	err := w.db.WithContext(ctx).
		Table("pm").
		Joins("JOIN (?) latest ON pm.vehicle_id = latest.vehicle_id AND pm.timestamp = latest.ts", latest).
		Order("pm.timestamp DESC").
		Limit(listLimit).
		Find(&samples).Error
	if err != nil {
		return nil, queryErr("fleet health", err)
	}
	return samples, nil
}

// Parts returns the parts catalog ordered by name.
func (w *Warehouse) Parts(ctx context.Context) ([]Part, error) {
	defer w.observe("parts")()
	var parts []Part
	err := w.db.WithContext(ctx).
		Order("name ASC").
		Limit(listLimit).
		Find(&parts).Error
	if err != nil {
		return nil, queryErr("parts", err)
	}
	return parts, nil
}

// PartDeliveryTime returns a part's delivery lead time in days, from the
// newest delivery record already in effect.
func (w *Warehouse) PartDeliveryTime(ctx context.Context, partID string) (int, error) {
	defer w.observe("part_delivery_time")()
	var delivery PartDelivery
	err := w.db.WithContext(ctx).
		Where("part_id = ? AND valid_from <= ?", partID, Today()).
		Order("valid_from DESC").
		First(&delivery).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, types.NewError(types.ErrNotFound, "no delivery record for part "+partID)
	}
	if err != nil {
		return 0, queryErr("part delivery time", err)
	}
	return delivery.DeliveryTime, nil
}

// PartOrders returns the details of a part order.
func (w *Warehouse) PartOrders(ctx context.Context, orderID string) ([]PartOrder, error) {
	defer w.observe("part_order_query")()
	var orders []PartOrder
	err := w.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("arrival_date DESC").
		Limit(historyLimit).
		Find(&orders).Error
	if err != nil {
		return nil, queryErr("part order query", err)
	}
	return orders, nil
}

// VehicleRentals returns a vehicle's rental windows that are still open:
// current and future rentals, the ones a service appointment can conflict
// with. Past rentals are excluded.
func (w *Warehouse) VehicleRentals(ctx context.Context, vehicleID string) ([]Rental, error) {
	defer w.observe("vehicle_rentals")()
	var rentals []Rental
	err := w.db.WithContext(ctx).
		Where("vehicle_id = ? AND date_to >= ?", vehicleID, Today()).
		Order("date_from ASC").
		Limit(historyLimit).
		Find(&rentals).Error
	if err != nil {
		return nil, queryErr("vehicle rentals", err)
	}
	return rentals, nil
}

// VehicleAppointments returns a vehicle's upcoming service appointments.
func (w *Warehouse) VehicleAppointments(ctx context.Context, vehicleID string) ([]Appointment, error) {
	defer w.observe("vehicle_appointments")()
	var appointments []Appointment
	err := w.db.WithContext(ctx).
		Where("vehicle_id = ?", vehicleID).
		Order("time ASC").
		Limit(historyLimit).
		Find(&appointments).Error
	if err != nil {
		return nil, queryErr("vehicle appointments", err)
	}
	return appointments, nil
}

// CreatePartOrder orders a part. The arrival date is derived from the part's
// current delivery lead time; ordering a part with no delivery record fails.
func (w *Warehouse) CreatePartOrder(ctx context.Context, partID string, quantity int) (*PartOrder, error) {
	defer w.observe("create_part_order")()
	if quantity < 1 {
		return nil, types.NewError(types.ErrInvalidRequest, "quantity must be >= 1")
	}

	var order *PartOrder
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var delivery PartDelivery
		err := tx.Where("part_id = ? AND valid_from <= ?", partID, Today()).
			Order("valid_from DESC").
			First(&delivery).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.NewError(types.ErrNotFound, "no delivery record for part "+partID)
		}
		if err != nil {
			return err
		}

		order = &PartOrder{
			OrderID:        uuid.NewString(),
			PartID:         partID,
			Amount:         quantity,
			ArrivalDate:    Today().AddDays(delivery.DeliveryTime),
			LastUpdateTime: time.Now().UTC(),
			Price:          10 + rand.Float64()*9990,
			State:          OrderStatePending,
		}
		return tx.Create(order).Error
	})
	if err != nil {
		var typed *types.Error
		if errors.As(err, &typed) {
			return nil, typed
		}
		return nil, queryErr("create part order", err)
	}

	w.logger.Info("part order created",
		zap.String("order_id", order.OrderID),
		zap.String("part_id", partID),
		zap.Int("quantity", quantity))
	return order, nil
}

// CreateAppointment books a service appointment.
func (w *Warehouse) CreateAppointment(ctx context.Context, vehicleID string, at time.Time, place, orderID string) (*Appointment, error) {
	defer w.observe("create_appointment")()
	if vehicleID == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "vehicle id is required")
	}

	appointment := &Appointment{
		AppointmentID: uuid.NewString(),
		Time:          at,
		Place:         place,
		OrderID:       orderID,
		VehicleID:     vehicleID,
	}
	if err := w.db.WithContext(ctx).Create(appointment).Error; err != nil {
		return nil, queryErr("create appointment", err)
	}

	w.logger.Info("appointment created",
		zap.String("appointment_id", appointment.AppointmentID),
		zap.String("vehicle_id", vehicleID),
		zap.Time("time", at))
	return appointment, nil
}
