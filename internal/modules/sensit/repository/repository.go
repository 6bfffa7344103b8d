package repository

import (
	"context"
	"time"

	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/modules/sensit/types"
)

// DefaultQueryTimeout bounds every warehouse round trip.
const DefaultQueryTimeout = 10 * time.Second

// SensitRepository reads and appends rows of the sensit table.
type SensitRepository interface {
	// FetchLatestRecord returns the row with the highest seqNumber.
	FetchLatestRecord(ctx context.Context) (types.SensorRecord, error)
	InsertRecord(ctx context.Context, rec types.SensorRecord) error
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultQueryTimeout
	}
	return d
}
