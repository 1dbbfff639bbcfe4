package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bkuner/opcUaUnifiedAutomation/address"
	"github.com/bkuner/opcUaUnifiedAutomation/bridge"
	"github.com/bkuner/opcUaUnifiedAutomation/coerce"
	"github.com/bkuner/opcUaUnifiedAutomation/logger"
	"github.com/bkuner/opcUaUnifiedAutomation/uatype"
)

// Reading is the value of an item converted to its local slot type.
type Reading struct {
	// Value holds the Go value of the slot type, nil when Status is bad.
	Value     any
	Status    uatype.StatusCode
	Timestamp time.Time
}

// Item binds one local value slot to one remote address.
//
// The index of an item is its position in the item table of the session. It never changes and
// is the transaction id of every write of the item.
//
// The cached value and status are guarded by a per-item mutex that is held only while the
// cache is read or mutated, never across a network call.
type Item struct {
	index    uint32
	subIndex uint32
	addr     address.Address
	slot     uatype.Slot
	cfg      *ItemConfig
	sess     *Session
	sub      *Subscription
	logger   logger.Logger

	mu         sync.Mutex
	node       address.NodeID
	resolved   bool
	value      uatype.Variant
	remoteType uatype.TypeID
	access     uatype.AccessLevel
	status     uatype.StatusCode
	timestamp  time.Time

	writePending atomic.Bool
}

func newItem(s *Session, sub *Subscription, index uint32, addr address.Address, slot uatype.Slot, cfg *ItemConfig) *Item {
	if cfg.name == "" {
		cfg.name = addr.Raw()
	}

	return &Item{
		index:  index,
		addr:   addr,
		slot:   slot,
		cfg:    cfg,
		sess:   s,
		sub:    sub,
		logger: s.logger.With("item", index, "address", addr.Raw()),
		status: uatype.StatusBadWaitingForInitData,
	}
}

// Index returns the position of the item in the item table of its session.
func (it *Item) Index() uint32 { return it.index }

// Address returns the parsed address of the item.
func (it *Item) Address() address.Address { return it.addr }

// Name returns the consumer side name of the item.
func (it *Item) Name() string { return it.cfg.name }

// Slot returns the local slot descriptor.
func (it *Item) Slot() uatype.Slot { return it.slot }

// Direction returns whether the item is read-bound or write-bound.
func (it *Item) Direction() uatype.Direction { return it.cfg.direction }

// Session returns the owning session.
func (it *Item) Session() *Session { return it.sess }

// Subscription returns the subscription of the item, nil for poll-only items.
func (it *Item) Subscription() *Subscription { return it.sub }

// Tag returns the tag the item was bound to: its subscription tag, or the session tag for
// poll-only items.
func (it *Item) Tag() string {
	if it.sub != nil {
		return it.sub.tag
	}

	return it.sess.tag
}

// Status returns the result of the last operation, uatype.StatusGood when it succeeded.
func (it *Item) Status() uatype.StatusCode {
	it.mu.Lock()
	defer it.mu.Unlock()

	return it.status
}

// RemoteType returns the remote type reported by the last capability read.
func (it *Item) RemoteType() uatype.TypeID {
	it.mu.Lock()
	defer it.mu.Unlock()

	return it.remoteType
}

// Access returns the access rights reported by the last capability read.
func (it *Item) Access() uatype.AccessLevel {
	it.mu.Lock()
	defer it.mu.Unlock()

	return it.access
}

// Node returns the resolved node id and whether the address is resolved.
func (it *Item) Node() (address.NodeID, bool) {
	it.mu.Lock()
	defer it.mu.Unlock()

	return it.node, it.resolved
}

// WritePending reports whether a write of the item waits for its completion.
func (it *Item) WritePending() bool { return it.writePending.Load() }

// Read returns the cached value converted to the local slot type. It never touches the
// network.
//
// A bad item status is returned as the error. Conversion errors fail this call only and
// leave the item status unchanged.
func (it *Item) Read() (Reading, error) {
	it.mu.Lock()
	value, status, ts := it.value, it.status, it.timestamp
	it.mu.Unlock()

	if !status.IsGood() {
		return Reading{Status: status, Timestamp: ts}, fmt.Errorf("item %d: %w", it.index, status)
	}

	v, err := coerce.ToLocal(value, it.slot)
	if err != nil {
		return Reading{Status: status, Timestamp: ts}, fmt.Errorf("item %d: %w", it.index, err)
	}

	return Reading{Value: v, Status: status, Timestamp: ts}, nil
}

// Refresh reads the current value from the server and returns it like Read.
func (it *Item) Refresh(ctx context.Context) (Reading, error) {
	if st := it.sess.State(); !st.IsConnected() {
		return Reading{Status: it.Status()}, fmt.Errorf("%w: %s", ErrNotConnected, st)
	}
	node, ok := it.Node()
	if !ok {
		return Reading{Status: it.Status()}, ErrUnresolved
	}

	it.sess.metrics.incReadCount()
	values, err := it.sess.client.Read(ctx, []address.NodeID{node}, bridge.AttributeValue)
	if err != nil {
		it.sess.metrics.incReadErrCount()
		it.setStatus(uatype.StatusBadCommunicationError)
		it.logger.Error("read failed", "error", err)

		return Reading{Status: uatype.StatusBadCommunicationError}, fmt.Errorf("read item %d: %w", it.index, err)
	}
	if len(values) == 0 {
		it.setStatus(uatype.StatusBadUnexpectedError)
		return Reading{Status: uatype.StatusBadUnexpectedError}, fmt.Errorf("read item %d: empty result", it.index)
	}

	it.apply(values[0])

	return it.Read()
}

// Write converts value to the remote type and starts an asynchronous write tagged with the
// item index. It returns as soon as the request is handed to the client; the consumer is
// woken with EventWriteDone when the outcome is known.
//
// The call fails without a network request when the session is not connected, the item is
// unresolved or not writable, the conversion fails, or a previous write is still pending.
func (it *Item) Write(value any) error {
	if st := it.sess.State(); !st.IsConnected() {
		return fmt.Errorf("%w: %s", ErrNotConnected, st)
	}

	it.mu.Lock()
	node, resolved, access, remoteType := it.node, it.resolved, it.access, it.remoteType
	it.mu.Unlock()

	if !resolved {
		return ErrUnresolved
	}
	if !access.CanWrite() {
		it.setStatus(uatype.StatusBadNotWritable)
		return fmt.Errorf("item %d: %w", it.index, ErrNotWritable)
	}

	v, err := coerce.ToRemote(value, it.slot, remoteType)
	if err != nil {
		return fmt.Errorf("item %d: %w", it.index, err)
	}

	if !it.writePending.CompareAndSwap(false, true) {
		return fmt.Errorf("item %d: %w", it.index, ErrWritePending)
	}
	it.sess.metrics.incWriteInflightCount()

	if err := it.sess.client.WriteAsync(node, v, it.index); err != nil {
		it.writePending.Store(false)
		it.sess.metrics.decWriteInflightCount()
		it.sess.metrics.incWriteErrCount()
		it.setStatus(uatype.StatusBadCommunicationError)
		it.logger.Error("write request failed", "error", err)

		return fmt.Errorf("write item %d: %w", it.index, err)
	}
	it.sess.metrics.incWriteCount()
	it.logger.Debug("write started", "value", v)

	return nil
}

// completeWrite records the outcome of the pending write. It returns false when no write
// is pending.
func (it *Item) completeWrite(result uatype.StatusCode, results []uatype.StatusCode) bool {
	if !it.writePending.CompareAndSwap(true, false) {
		return false
	}
	it.sess.metrics.decWriteInflightCount()

	status := result
	if status.IsGood() {
		for _, r := range results {
			if !r.IsGood() {
				status = r
				break
			}
		}
	}

	it.setStatus(status)
	if status.IsGood() {
		it.logger.Debug("write completed")
	} else {
		it.sess.metrics.incWriteErrCount()
		it.logger.Error("write failed", "status", status)
	}
	it.sess.notify(it, EventWriteDone, status)

	return true
}

// apply stores a value delivered by the server and returns the resulting item status.
//
// While the session is in a bad state (watchdog warning, reconnecting) the value is cached
// but the item keeps the bad status of the session; the status turns good again when the
// session returns to ConnectedState.
func (it *Item) apply(dv bridge.DataValue) uatype.StatusCode {
	it.mu.Lock()
	defer it.mu.Unlock()

	it.timestamp = dv.SourceTimestamp
	if it.timestamp.IsZero() {
		it.timestamp = time.Now()
	}

	if !dv.Status.IsGood() {
		it.status = dv.Status
		return it.status
	}
	if !dv.Value.IsNull() && dv.Value.IsArray() != it.slot.Array {
		it.status = uatype.StatusBadTypeMismatch
		return it.status
	}

	it.value = dv.Value
	// the state is stored before the transition handler flags the items under it.mu
	if st := it.sess.State(); st.IsBad() {
		it.status = badStatus(st)
	} else {
		it.status = uatype.StatusGood
	}

	return it.status
}

// setResolution stores the node id found for the address. A resolved item waits for the
// capability read before its status turns good.
func (it *Item) setResolution(r address.Resolution) {
	it.mu.Lock()
	defer it.mu.Unlock()

	it.resolved = r.Status.IsGood()
	it.node = r.Node
	if it.resolved {
		it.status = uatype.StatusBadWaitingForInitData
	} else {
		it.status = r.Status
	}
}

// applyCapabilities stores the results of the value and access level reads that follow a
// (re)connect and returns the resulting status.
func (it *Item) applyCapabilities(val, acc bridge.DataValue) uatype.StatusCode {
	it.mu.Lock()
	defer it.mu.Unlock()

	status := uatype.StatusGood
	switch {
	case !val.Status.IsGood():
		status = val.Status
		it.logger.Warn("read value failed", "status", val.Status)
	case val.Value.IsArray() != it.slot.Array:
		status = uatype.StatusBadTypeMismatch
		it.logger.Warn("array mismatch", "remote", val.Value.Type(), "remote_array", val.Value.IsArray(), "local", it.slot)
	default:
		it.value = val.Value
		it.remoteType = val.Value.Type()
	}

	if acc.Status.IsGood() {
		it.access = accessFrom(acc.Value)
	} else {
		it.logger.Warn("read access level failed", "status", acc.Status)
		if status.IsGood() {
			status = acc.Status
		}
	}

	it.status = status
	it.timestamp = val.SourceTimestamp
	if it.timestamp.IsZero() {
		it.timestamp = time.Now()
	}

	if status.IsGood() {
		it.advise()
	}

	return status
}

// advise logs data loss and access right advisories. Called with it.mu held.
func (it *Item) advise() {
	switch loss := coerce.CheckDataLoss(it.cfg.direction, it.slot.Type, it.remoteType); loss {
	case coerce.LossLossy:
		it.logger.Warn("possible data loss", "direction", it.cfg.direction, "local", it.slot.Type, "remote", it.remoteType)
	case coerce.LossUnsupported:
		it.logger.Warn("unsupported type conversion", "direction", it.cfg.direction, "local", it.slot.Type, "remote", it.remoteType)
	}

	if it.cfg.direction == uatype.In && !it.access.CanRead() {
		it.logger.Warn("item not readable", "access", it.access)
	}
	if it.cfg.direction == uatype.Out && !it.access.CanWrite() {
		it.logger.Warn("item not writable", "access", it.access)
	}
}

// setStatus sets the item status and returns whether it changed.
func (it *Item) setStatus(status uatype.StatusCode) bool {
	it.mu.Lock()
	defer it.mu.Unlock()

	if it.status == status {
		return false
	}
	it.status = status
	it.timestamp = time.Now()

	return true
}

func accessFrom(v uatype.Variant) uatype.AccessLevel {
	switch x := v.Value().(type) {
	case uint8:
		return uatype.AccessLevel(x)
	case uint32:
		return uatype.AccessLevel(x)
	case int32:
		return uatype.AccessLevel(x)
	default:
		return 0
	}
}
