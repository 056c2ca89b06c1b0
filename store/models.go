package store

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Date is a calendar date without a time component. It scans from both DATE
// columns and full timestamps, and marshals as ISO 8601 (2006-01-02).
type Date struct {
	time.Time
}

// NewDate creates a Date at midnight UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current date in UTC.
func Today() Date {
	return DateOf(time.Now().UTC())
}

// DateOf truncates a timestamp to its date.
func DateOf(t time.Time) Date {
	return Date{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// AddDays returns the date shifted by n days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time.AddDate(0, 0, n))
}

func (d Date) String() string {
	return d.Time.Format("2006-01-02")
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		return nil
	}
	t, err := time.Parse(`"2006-01-02"`, s)
	if err != nil {
		return fmt.Errorf("invalid date %s: %w", s, err)
	}
	d.Time = t
	return nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(value any) error {
	switch v := value.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		t, err := time.Parse("2006-01-02", v[:min(len(v), 10)])
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", v, err)
		}
		*d = Date{Time: t}
		return nil
	case []byte:
		return d.Scan(string(v))
	case nil:
		*d = Date{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Date", value)
	}
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return d.Time, nil
}

// GormDataType tells gorm which column type to migrate to.
func (Date) GormDataType() string {
	return "date"
}

// appointmentTimeLayouts lists the timestamp formats models actually produce.
var appointmentTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseAppointmentTime parses an appointment timestamp. The scheduling
// pipeline and the booking tool share it so the accepted formats cannot
// drift apart.
func ParseAppointmentTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range appointmentTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid appointment time %q", s)
}

// Vehicle is one fleet vehicle.
type Vehicle struct {
	VehicleID    string `gorm:"primaryKey" json:"Vehicle_ID"`
	Make         string `json:"Make"`
	Model        string `json:"Model"`
	ModelYear    int    `json:"Model_Year"`
	LicensePlate string `json:"License_Plate"`
	Mileage      int    `json:"Mileage"`
}

func (Vehicle) TableName() string { return "vehicle" }

// FleetEntry is one distinct make/model/year combination in the fleet.
type FleetEntry struct {
	Make      string `json:"Make"`
	Model     string `json:"Model"`
	ModelYear int    `json:"Model_Year"`
}

// HealthSample is one telemetry snapshot from a vehicle's predictive
// maintenance sensors.
type HealthSample struct {
	VehicleID        string    `gorm:"primaryKey" json:"Vehicle_ID"`
	Timestamp        time.Time `gorm:"primaryKey" json:"Timestamp"`
	BatteryHealth    float64   `json:"Battery_Health"`
	BrakePadWear     float64   `json:"Brake_Pad_Wear"`
	TireTreadDepth   float64   `json:"Tire_Tread_Depth"`
	MotorTemperature float64   `json:"Motor_Temperature"`
	ErrorCodes       string    `json:"Error_Codes"`
}

func (HealthSample) TableName() string { return "pm" }

// Part is a stockable vehicle part.
type Part struct {
	PartID string  `gorm:"primaryKey" json:"Part_ID"`
	Name   string  `json:"Name"`
	Price  float64 `json:"Price"`
}

func (Part) TableName() string { return "part" }

// PartDelivery is a part's delivery lead time, valid from a given date.
type PartDelivery struct {
	PartID       string `gorm:"primaryKey" json:"Part_ID"`
	ValidFrom    Date   `gorm:"primaryKey" json:"Valid_From"`
	DeliveryTime int    `json:"Delivery_Time"`
}

func (PartDelivery) TableName() string { return "part_delivery" }

// PartOrder is an order for a part.
type PartOrder struct {
	OrderID        string    `gorm:"primaryKey" json:"Order_ID"`
	PartID         string    `json:"Part_ID"`
	Amount         int       `json:"Amount"`
	ArrivalDate    Date      `json:"Arrival_Date"`
	LastUpdateTime time.Time `json:"Last_Update_Time"`
	Price          float64   `json:"Price"`
	State          string    `json:"State"`
}

func (PartOrder) TableName() string { return "part_order" }

// Part order states.
const (
	OrderStatePending   = "Pending"
	OrderStateDelivered = "Delivered"
	OrderStateCancelled = "Cancelled"
)

// Rental is a customer rental window for a vehicle.
type Rental struct {
	RentalID  string `gorm:"primaryKey" json:"Rental_ID"`
	VehicleID string `json:"Vehicle_ID"`
	DateFrom  Date   `json:"Date_From"`
	DateTo    Date   `json:"Date_To"`
}

func (Rental) TableName() string { return "rental" }

// Appointment is a scheduled service appointment.
type Appointment struct {
	AppointmentID string    `gorm:"primaryKey" json:"Appointment_ID"`
	Time          time.Time `json:"Time"`
	Place         string    `json:"Place"`
	OrderID       string    `json:"Order_ID"`
	VehicleID     string    `json:"Vehicle_ID"`
}

func (Appointment) TableName() string { return "appointment" }
