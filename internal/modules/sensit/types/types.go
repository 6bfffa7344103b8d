package types

import (
	"log/slog"
	"strings"
	"time"
)

// SensorRecord is one row of the sensit table. SeqNumber is only used for
// ordering; measurements are nil when the column is NULL.
type SensorRecord struct {
	SeqNumber   int64     `json:"seqNumber"`
	Device      string    `json:"device,omitempty"`
	Time        time.Time `json:"time,omitzero"`
	Temperature *float64  `json:"temperature"`
	Humidity    *float64  `json:"humidity"`
}

func (r SensorRecord) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("seqNumber", r.SeqNumber),
		slog.String("device", r.Device),
	}
	if !r.Time.IsZero() {
		attrs = append(attrs, slog.Time("time", r.Time))
	}
	if r.Temperature != nil {
		attrs = append(attrs, slog.Float64("temperature", *r.Temperature))
	}
	if r.Humidity != nil {
		attrs = append(attrs, slog.Float64("humidity", *r.Humidity))
	}
	return slog.GroupValue(attrs...)
}

// DataType is the measurement a user asked about through the DataType entity.
type DataType int

const (
	DataTypeUnknown DataType = iota
	DataTypeTemperature
	DataTypeHumidity
)

func ParseDataType(s string) DataType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "temperature":
		return DataTypeTemperature
	case "humidity":
		return DataTypeHumidity
	default:
		return DataTypeUnknown
	}
}

func (d DataType) String() string {
	switch d {
	case DataTypeTemperature:
		return "temperature"
	case DataTypeHumidity:
		return "humidity"
	default:
		return "unknown"
	}
}

// SensitMessage is the JSON body of a Sigfox Sens'it data callback.
type SensitMessage struct {
	Device      string   `json:"device"`
	Time        int64    `json:"time"`
	SeqNumber   *int64   `json:"seqNumber"`
	Data        string   `json:"data,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
}

// Record converts the callback into a warehouse row.
func (m SensitMessage) Record() SensorRecord {
	rec := SensorRecord{
		Device:      m.Device,
		Temperature: m.Temperature,
		Humidity:    m.Humidity,
	}
	if m.SeqNumber != nil {
		rec.SeqNumber = *m.SeqNumber
	}
	if m.Time > 0 {
		rec.Time = time.Unix(m.Time, 0).UTC()
	}
	return rec
}
