package extractor

import "go.uber.org/zap"

// Diagnostics receives structured events from an extraction.
type Diagnostics interface {
	ShapeResolved(shape string, textLen int)
	ControlCharsStripped(removed int)
	Accepted(scenarios, citations int)
	Rejected(err error)
}

// NopDiagnostics discards all events.
type NopDiagnostics struct{}

func (NopDiagnostics) ShapeResolved(string, int) {}
func (NopDiagnostics) ControlCharsStripped(int) {}
func (NopDiagnostics) Accepted(int, int) {}
func (NopDiagnostics) Rejected(error) {}

// ZapDiagnostics writes extraction events to a zap logger.
type ZapDiagnostics struct {
	logger *zap.Logger
}

// NewZapDiagnostics creates a Diagnostics backed by logger.
func NewZapDiagnostics(logger *zap.Logger) *ZapDiagnostics {
	return &ZapDiagnostics{logger: logger.Named("extractor")}
}

func (d *ZapDiagnostics) ShapeResolved(shape string, textLen int) {
	d.logger.Debug("response text resolved", zap.String("shape", shape), zap.Int("text_length", textLen))
}

func (d *ZapDiagnostics) ControlCharsStripped(removed int) {
	d.logger.Warn("stripped control characters before retrying decode", zap.Int("removed", removed))
}

func (d *ZapDiagnostics) Accepted(scenarios, citations int) {
	d.logger.Info("payload accepted", zap.Int("scenarios", scenarios), zap.Int("citations", citations))
}

func (d *ZapDiagnostics) Rejected(err error) {
	d.logger.Warn("payload rejected", zap.Error(err))
}
