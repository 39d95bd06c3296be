package game

import (
	"time"
)

type Measure struct {
	Index int
	Scale float64       // Length relative to a 4/4 measure
	Beat  float64       // Beats from the start of the chart
	Time  time.Duration // The time the bar line is crossed
}
