// Package session implements the session and subscription engine of the bridge.
//
// A Registry owns sessions and subscriptions by tag. Items are bound to a subscription tag,
// which monitors them on the server, or to a session tag, which reads them on demand (Poll,
// Item.Refresh).
//
//	reg := session.NewRegistry(session.WithReconnectInterval(5 * time.Second))
//	sess, _ := reg.CreateSession("plc1", "opc.tcp://plc1:4840", client)
//	_, _ = reg.CreateSubscription("fast", "plc1", session.WithPublishingInterval(100*time.Millisecond))
//	temp, _ := reg.BindItem("2:Line1.Temperature", "fast", uatype.Slot{Type: uatype.LocalFloat32})
//	_ = reg.ConnectAll(ctx)
//	reading, err := temp.Read()
//
// After every (re)connect a session resolves all item addresses, reads their values and
// access rights in two batched requests and then creates its subscriptions. Losing the
// connection flags every item with a bad status, wakes the item consumers and starts the
// reconnect loop, which retries on a fixed interval (or with capped exponential backoff)
// until it succeeds or the session shuts down.
//
// Writes are asynchronous. The item index is the transaction id of the write and the
// completion reported by the client is matched to the item by that index. An item accepts
// one write at a time; a second write while the first is pending fails with
// ErrWritePending.
package session
