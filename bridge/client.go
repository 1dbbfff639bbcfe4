package bridge

import (
	"context"
	"time"

	"github.com/bkuner/opcUaUnifiedAutomation/address"
	"github.com/bkuner/opcUaUnifiedAutomation/uatype"
)

// AttributeID selects the node attribute of a read.
type AttributeID uint32

const (
	AttributeValue           AttributeID = 13
	AttributeUserAccessLevel AttributeID = 18
)

func (a AttributeID) String() string {
	switch a {
	case AttributeValue:
		return "Value"
	case AttributeUserAccessLevel:
		return "UserAccessLevel"
	default:
		return "Attribute"
	}
}

// ServerStatus is a connection status reported by the protocol client.
type ServerStatus uint8

const (
	ServerDisconnected ServerStatus = iota
	ServerConnected
	ServerWatchdogTimeout
	ServerConnectionErrorAPIReconnect
	ServerShutdown
	ServerNewSessionCreated
)

func (s ServerStatus) String() string {
	switch s {
	case ServerDisconnected:
		return "Disconnected"
	case ServerConnected:
		return "Connected"
	case ServerWatchdogTimeout:
		return "ConnectionWarningWatchdogTimeout"
	case ServerConnectionErrorAPIReconnect:
		return "ConnectionErrorApiReconnect"
	case ServerShutdown:
		return "ServerShutdown"
	case ServerNewSessionCreated:
		return "NewSessionCreated"
	default:
		return "Unknown"
	}
}

// DataValue is a value read from or pushed by the server.
type DataValue struct {
	Value           uatype.Variant
	Status          uatype.StatusCode
	SourceTimestamp time.Time
	ServerTimestamp time.Time
}

// SubscriptionParams configures the server-side subscription construct.
type SubscriptionParams struct {
	PublishingInterval time.Duration
	LifetimeCount      uint32
	MaxKeepAliveCount  uint32
	Priority           uint8
}

// MonitoredItem describes one monitored node of a subscription. Handle is the membership
// index of the item inside its subscription and is echoed in every data change.
type MonitoredItem struct {
	Handle uint32
	Node   address.NodeID
	// SamplingInterval in milliseconds; a negative value selects the publishing interval.
	SamplingInterval float64
	QueueSize        uint32
	DiscardOldest    bool
}

// SubscriptionHandle identifies a server-side subscription.
type SubscriptionHandle uint32

// DataChangeFunc receives data change notifications of one subscription. It is called from
// the protocol callback context and must not block.
type DataChangeFunc func(handle uint32, value DataValue)

// EventHandler receives the session level callbacks of a Client. Both methods are called
// from the protocol callback context and must not block.
type EventHandler interface {
	// ConnectionStatusChanged reports a connection status transition.
	ConnectionStatusChanged(status ServerStatus)
	// WriteComplete reports the outcome of an asynchronous write started with txID.
	// results holds one status per written node.
	WriteComplete(txID uint32, result uatype.StatusCode, results []uatype.StatusCode)
}

// Client is the protocol client collaborator of a session.
//
// Implementations own the secure channel and message encoding. Calls taking a context may
// block on the network; WriteAsync must return without waiting for the server.
type Client interface {
	address.Translator

	// SetEventHandler registers the receiver of connection status and write completions.
	SetEventHandler(h EventHandler)
	// Connect establishes the connection and the server session.
	Connect(ctx context.Context) error
	// Disconnect closes the session and the connection.
	Disconnect(ctx context.Context) error
	// Read reads one attribute of every node in a single request. Results are returned in
	// request order.
	Read(ctx context.Context, nodes []address.NodeID, attr AttributeID) ([]DataValue, error)
	// WriteAsync starts writing value to node. The outcome is reported through
	// EventHandler.WriteComplete with the same txID.
	WriteAsync(node address.NodeID, value uatype.Variant, txID uint32) error
	// CreateSubscription creates a server-side subscription monitoring items. Data changes
	// are delivered to onChange.
	CreateSubscription(ctx context.Context, params SubscriptionParams, items []MonitoredItem, onChange DataChangeFunc) (SubscriptionHandle, error)
	// DeleteSubscription removes a server-side subscription.
	DeleteSubscription(ctx context.Context, handle SubscriptionHandle) error
}
