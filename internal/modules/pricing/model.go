// README: Fare rate definitions.
package pricing

// Rate is the tariff applied to an estimated route. Amounts are in the
// smallest currency unit.
type Rate struct {
	BaseFare    int64
	PerKm       int64
	PerMinute   int64
	PerSeat     int64
	Wheelchair  int64
	MinimumFare int64
}

// DefaultRate is used when no tariff is configured.
var DefaultRate = Rate{
	BaseFare:    85,
	PerKm:       20,
	PerMinute:   3,
	PerSeat:     10,
	Wheelchair:  30,
	MinimumFare: 85,
}
