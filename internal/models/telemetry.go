package models

import (
	"encoding/json"
	"time"
)

// Required keys of a telemetry record.
const (
	FieldLatitude  = "latitude"
	FieldLongitude = "longitude"
	FieldTimestamp = "timestamp"
	FieldDeviceID  = "device_id"
)

// RequiredFields lists the keys every record must carry, in reporting order.
var RequiredFields = []string{FieldLatitude, FieldLongitude, FieldTimestamp}

// TelemetryRecord is one geolocation observation as received.
// Keys other than the required ones are passed through untouched.
type TelemetryRecord map[string]any

// Float returns the numeric value stored under key.
func (r TelemetryRecord) Float(key string) (float64, bool) {
	switch v := r[key].(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// String returns the string value stored under key.
func (r TelemetryRecord) String(key string) (string, bool) {
	s, ok := r[key].(string)
	return s, ok
}

// DeviceID returns the optional device identifier, or "".
func (r TelemetryRecord) DeviceID() string {
	s, _ := r.String(FieldDeviceID)
	return s
}

// Receipt proves that a record reached durable storage.
type Receipt struct {
	ID         string    `json:"id"`
	ReceivedAt time.Time `json:"received_at"`
	BackupFile string    `json:"backup_file"`
	DeviceID   string    `json:"device_id,omitempty"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
}
