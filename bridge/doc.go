// Package bridge provides the protocol-neutral building blocks of the session engine.
//
// It defines the contract of the protocol client collaborator (Client, EventHandler and the
// value types exchanged with it), the session connection state machine (ConnState and
// ConnStateMgr) and the TaskManager that owns every background goroutine of a session.
//
// Connection states:
//   - DisconnectedState: initial state, or after an explicit disconnect.
//   - ConnectingState: a connect call is in progress.
//   - ConnectedState: the session is established and items are resolved.
//   - WatchdogWarningState: the server missed a liveness check, the connection is kept.
//   - ReconnectingState: the connection was lost or a connect failed, a retry is scheduled.
//   - ShuttingDownState: terminal, entered on explicit shutdown.
//
// Package session implements Session, Subscription and Item on top of these types.
package bridge
