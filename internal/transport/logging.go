// SPDX-License-Identifier: MIT
package transport

import (
	applog "github.com/MaveDX/Bard/internal/log"
)

// LoggingTransport is a stand-in Transport for debugging without a renderer
// attached. Frames are acknowledged and dropped.
type LoggingTransport struct{}

func NewLoggingTransport() *LoggingTransport {
	applog.Infof("transport: using logging transport")
	return &LoggingTransport{}
}

func (lt *LoggingTransport) Send(data any) error {
	applog.Debugf("transport: frame %+v", data)
	return nil
}

func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
