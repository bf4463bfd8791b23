package world

// Diagnostics принимает сообщения о нарушениях контракта карты.
// *logging.Logger удовлетворяет этому интерфейсу.
type Diagnostics interface {
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

type nopDiagnostics struct{}

func (nopDiagnostics) Warn(string, ...interface{}) {}
func (nopDiagnostics) Error(string, ...interface{}) {}
