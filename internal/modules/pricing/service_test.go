package pricing

import "testing"

func TestEstimate(t *testing.T) {
	svc := NewService(Rate{
		BaseFare:    85,
		PerKm:       20,
		PerMinute:   3,
		PerSeat:     10,
		Wheelchair:  30,
		MinimumFare: 85,
	})

	tests := []struct {
		name       string
		distanceM  int64
		durationS  int64
		seats      int
		wheelchair bool
		want       int64
	}{
		{
			name: "zero route falls back to minimum",
			want: 85,
		},
		{
			name:      "distance and time",
			distanceM: 4200, durationS: 600, seats: 1,
			// 85 + ceil(4.2)*20 + 10*3
			want: 85 + 100 + 30,
		},
		{
			name:      "extra seats surcharged",
			distanceM: 1000, durationS: 60, seats: 4,
			want: 85 + 20 + 3 + 3*10,
		},
		{
			name:      "wheelchair supplement",
			distanceM: 1000, durationS: 60, seats: 1, wheelchair: true,
			want: 85 + 20 + 3 + 30,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.Estimate(tt.distanceM, tt.durationS, tt.seats, tt.wheelchair)
			if got != tt.want {
				t.Errorf("Estimate() = %d, want %d", got, tt.want)
			}
		})
	}
}
