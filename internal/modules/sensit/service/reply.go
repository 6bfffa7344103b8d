package service

import (
	"encoding/json"
	"strconv"

	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/modules/sensit/types"
)

const (
	// TrailingPrompt closes every reply.
	TrailingPrompt = " Would you like to know anything else ?"

	// NotUnderstoodReply answers a DataType other than temperature or humidity.
	NotUnderstoodReply = "Sorry I did not understand your request."
	// UnavailableReply replaces the measurement when the warehouse query fails.
	UnavailableReply = "Sorry, the sensor data is temporarily unavailable."
)

// FormatReply renders the sentence answering a question about requestedField
// for the given record. Unknown fields get NotUnderstoodReply.
func FormatReply(rec types.SensorRecord, requestedField string) string {
	switch types.ParseDataType(requestedField) {
	case types.DataTypeTemperature:
		if rec.Temperature == nil {
			return missingValueReply(types.DataTypeTemperature)
		}
		return "The latest measured temperature is " + formatValue(*rec.Temperature) + "°C."
	case types.DataTypeHumidity:
		if rec.Humidity == nil {
			return missingValueReply(types.DataTypeHumidity)
		}
		return "The latest measured humidity is " + formatValue(*rec.Humidity) + "%."
	default:
		return NotUnderstoodReply
	}
}

func missingValueReply(d types.DataType) string {
	return "The latest measurement has no " + d.String() + " value."
}

// formatValue uses JSON number encoding so the value reads exactly as the
// warehouse returned it: 21.5, 60, 0.1.
func formatValue(v float64) string {
	b, err := json.Marshal(v)
	if err != nil {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return string(b)
}
