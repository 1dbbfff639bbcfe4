package metrics

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/bkuner/opcUaUnifiedAutomation/address"
	"github.com/bkuner/opcUaUnifiedAutomation/session"
	"github.com/bkuner/opcUaUnifiedAutomation/uatest"
	"github.com/bkuner/opcUaUnifiedAutomation/uatype"
)

func TestCollector(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	srv := uatest.NewServer()
	node := address.NewStringNodeID(2, "Speed")
	srv.AddNode(node, uatype.Scalar(int32(1500)), uatype.AccessCurrentRead|uatype.AccessCurrentWrite)

	reg := session.NewRegistry(session.WithReconnectInterval(time.Hour))
	t.Cleanup(func() { _ = reg.Close(ctx) })

	_, err := reg.CreateSession("plc", "opc.tcp://plc:4840", srv)
	require.NoError(err)
	_, err = reg.CreateSubscription("fast", "plc")
	require.NoError(err)
	_, err = reg.BindItem("2,Speed", "fast", uatype.Slot{Type: uatype.LocalInt32})
	require.NoError(err)
	_, err = reg.BindItem("2,Missing", "fast", uatype.Slot{Type: uatype.LocalInt32})
	require.NoError(err)
	require.NoError(reg.ConnectAll(ctx))

	c := NewCollector(reg)

	t.Run("counters", func(t *testing.T) {
		expected := `
# HELP opcua_bridge_session_connects_total Successful connects.
# TYPE opcua_bridge_session_connects_total counter
opcua_bridge_session_connects_total{session="plc"} 1
# HELP opcua_bridge_session_connect_errors_total Failed connect attempts.
# TYPE opcua_bridge_session_connect_errors_total counter
opcua_bridge_session_connect_errors_total{session="plc"} 0
`
		err := testutil.CollectAndCompare(c, strings.NewReader(expected),
			"opcua_bridge_session_connects_total", "opcua_bridge_session_connect_errors_total")
		require.NoError(err)
	})

	t.Run("state and items", func(t *testing.T) {
		expected := `
# HELP opcua_bridge_session_state Connection state, 1 for the current state.
# TYPE opcua_bridge_session_state gauge
opcua_bridge_session_state{session="plc",state="connected"} 1
# HELP opcua_bridge_session_items Items bound to the session.
# TYPE opcua_bridge_session_items gauge
opcua_bridge_session_items{session="plc"} 2
# HELP opcua_bridge_session_bad_items Items with a bad status.
# TYPE opcua_bridge_session_bad_items gauge
opcua_bridge_session_bad_items{session="plc"} 1
`
		err := testutil.CollectAndCompare(c, strings.NewReader(expected),
			"opcua_bridge_session_state", "opcua_bridge_session_items", "opcua_bridge_session_bad_items")
		require.NoError(err)
	})

	t.Run("registry", func(t *testing.T) {
		families, err := NewRegistry(reg).Gather()
		require.NoError(err)

		names := make(map[string]bool)
		for _, f := range families {
			names[f.GetName()] = true
		}
		require.True(names["opcua_bridge_session_reads_total"])
		require.True(names["go_goroutines"])
	})

	t.Run("released sessions disappear", func(t *testing.T) {
		require.NoError(reg.Close(ctx))
		require.Equal(0, testutil.CollectAndCount(c))
	})
}
