package forgeauth

// LoggerProvider hands out named loggers so host applications can plug their
// own logging stack underneath every component of this package.
type LoggerProvider interface {
	GetLogger(name string) Logger
}

type staticLoggerProvider struct {
	logger Logger
}

func (p staticLoggerProvider) GetLogger(string) Logger {
	if p.logger == nil {
		return defLogger{}
	}
	return p.logger
}

// ResolveLogger normalizes the (provider, logger) pair a component carries.
// An explicit logger wins over the provider; a nil pair falls back to the
// package default logger wrapped in a static provider.
func ResolveLogger(name string, provider LoggerProvider, logger Logger) (LoggerProvider, Logger) {
	if logger != nil {
		return staticLoggerProvider{logger: logger}, logger
	}

	if provider != nil {
		if l := provider.GetLogger(name); l != nil {
			return provider, l
		}
	}

	def := defLogger{}
	return staticLoggerProvider{logger: def}, def
}
