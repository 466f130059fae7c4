package game

import "time"

// systemTicker hands the hub real wall-clock tickers. Tests swap it for a
// mock that returns a channel they drive by hand.
type systemTicker struct{}

func (systemTicker) Create(interval time.Duration) <-chan time.Time {
	return time.NewTicker(interval).C
}

func NewSystemTicker() PeriodicTickerChannelCreator {
	return systemTicker{}
}
