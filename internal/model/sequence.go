package model

import (
	"fmt"
	"time"
)

// Series identifies an independent business-number sequence.
type Series string

const (
	SeriesTender           Series = "TENDER"
	SeriesDocumentPurchase Series = "DOCUMENT_PURCHASE"
	SeriesBid              Series = "BID"
	SeriesWorkOrder        Series = "WORK_ORDER"
	SeriesAwardLetter      Series = "AWARD_LETTER"
	SeriesAssignment       Series = "ASSIGNMENT"
)

// AllSeries lists every series; migrations seed one counter row for each.
var AllSeries = []Series{
	SeriesTender, SeriesDocumentPurchase, SeriesBid,
	SeriesWorkOrder, SeriesAwardLetter, SeriesAssignment,
}

var seriesPrefix = map[Series]string{
	SeriesTender:           "TND-",
	SeriesDocumentPurchase: "DOC-",
	SeriesBid:              "BID-",
	SeriesWorkOrder:        "WO-",
	SeriesAwardLetter:      "AWD-",
	SeriesAssignment:       "ASG-",
}

func (s Series) Valid() bool {
	_, ok := seriesPrefix[s]
	return ok
}

func (s Series) Prefix() string { return seriesPrefix[s] }

// Format renders a counter value as a business number, e.g. TND-000042.
// Values above 999999 keep all their digits.
func (s Series) Format(n int64) string {
	return fmt.Sprintf("%s%06d", s.Prefix(), n)
}

// SequenceCounter is the single source of truth for a series.
// Value holds the last number handed out.
type SequenceCounter struct {
	Series    Series `gorm:"type:varchar(30);primaryKey"`
	Value     int64  `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

func (SequenceCounter) TableName() string { return "sequence_counters" }
