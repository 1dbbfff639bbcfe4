package session

import (
	"sync/atomic"
)

// Metrics contains atomic metrics for a session.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type Metrics struct {
	// ConnectCount indicates the number of successful connects.
	ConnectCount atomic.Uint64
	// ConnectErrCount indicates the number of failed connect attempts.
	ConnectErrCount atomic.Uint64
	// ResyncCount indicates the number of resolve, read and subscribe cycles.
	ResyncCount atomic.Uint64
	// StatusEventCount indicates the number of connection status events received.
	StatusEventCount atomic.Uint64

	// DataChangeCount indicates the number of data change notifications dispatched.
	DataChangeCount atomic.Uint64
	// ReadCount indicates the number of read requests sent.
	ReadCount atomic.Uint64
	// ReadErrCount indicates the number of failed read requests.
	ReadErrCount atomic.Uint64

	// WriteCount indicates the number of writes started.
	WriteCount atomic.Uint64
	// WriteErrCount indicates the number of writes that failed locally or remotely.
	WriteErrCount atomic.Uint64
	// WriteInflightCount indicates the number of writes waiting for completion.
	WriteInflightCount atomic.Int64

	// ConnRetryGauge indicates the number of reconnect attempts since the last successful connect.
	ConnRetryGauge atomic.Uint32
}

func (m *Metrics) incConnectCount() {
	m.ConnectCount.Add(1)
}

func (m *Metrics) incConnectErrCount() {
	m.ConnectErrCount.Add(1)
}

func (m *Metrics) incResyncCount() {
	m.ResyncCount.Add(1)
}

func (m *Metrics) incStatusEventCount() {
	m.StatusEventCount.Add(1)
}

func (m *Metrics) incDataChangeCount() {
	m.DataChangeCount.Add(1)
}

func (m *Metrics) incReadCount() {
	m.ReadCount.Add(1)
}

func (m *Metrics) incReadErrCount() {
	m.ReadErrCount.Add(1)
}

func (m *Metrics) incWriteCount() {
	m.WriteCount.Add(1)
}

func (m *Metrics) incWriteErrCount() {
	m.WriteErrCount.Add(1)
}

func (m *Metrics) incWriteInflightCount() {
	m.WriteInflightCount.Add(1)
}

func (m *Metrics) decWriteInflightCount() {
	m.WriteInflightCount.Add(-1)
}

func (m *Metrics) incConnRetryGauge() {
	m.ConnRetryGauge.Add(1)
}

func (m *Metrics) resetConnRetryGauge() {
	m.ConnRetryGauge.Store(0)
}
