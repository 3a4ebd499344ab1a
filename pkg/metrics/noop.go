package metrics

// Noop discards all measurements. Used when metrics are disabled and in
// tests.
type Noop struct{}

func (Noop) RecordJob(string, string)      {}
func (Noop) RecordTrade(string, bool)      {}
func (Noop) RecordValidation(string, bool) {}
func (Noop) RecordEquity(string, float64)  {}
func (Noop) RecordLatency(string, float64) {}
