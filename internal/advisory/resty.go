package advisory

import (
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"
)

// HclogAdapter adapts an hclog.Logger to the resty Logger interface.
type HclogAdapter struct {
	logger hclog.Logger
}

// NewHclogAdapter creates an adapter that forwards messages to logger.
func NewHclogAdapter(logger hclog.Logger) resty.Logger {
	return &HclogAdapter{logger: logger}
}

// Errorf logs a message at error level.
func (a *HclogAdapter) Errorf(format string, v ...interface{}) {
	a.logger.Error(fmt.Sprintf(format, v...))
}

// Warnf logs a message at warning level.
func (a *HclogAdapter) Warnf(format string, v ...interface{}) {
	a.logger.Warn(fmt.Sprintf(format, v...))
}

// Debugf logs a message at debug level.
func (a *HclogAdapter) Debugf(format string, v ...interface{}) {
	a.logger.Debug(fmt.Sprintf(format, v...))
}
