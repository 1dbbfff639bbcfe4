package uaclient

import (
	"testing"
	"time"

	"github.com/gopcua/opcua/ua"
	"github.com/stretchr/testify/require"

	"github.com/bkuner/opcUaUnifiedAutomation/address"
	"github.com/bkuner/opcUaUnifiedAutomation/bridge"
	"github.com/bkuner/opcUaUnifiedAutomation/logger"
	"github.com/bkuner/opcUaUnifiedAutomation/uatype"
)

func TestNodeIDConversion(t *testing.T) {
	require := require.New(t)

	for _, n := range []address.NodeID{
		address.NewNumericNodeID(0, 85),
		address.NewNumericNodeID(2, 70000),
		address.NewStringNodeID(3, "Tank.Level"),
	} {
		back, err := fromUANodeID(toUANodeID(n))
		require.NoError(err)
		require.Equal(n, back)
	}

	_, err := fromUANodeID(nil)
	require.Error(err)

	_, err = fromUANodeID(ua.NewGUIDNodeID(2, "72962B91-FA75-4AE6-8D28-B404DC7DAF63"))
	require.Error(err)
}

func TestBrowsePathConversion(t *testing.T) {
	require := require.New(t)

	p := address.BrowsePath{
		Start:    address.NewNumericNodeID(0, 85),
		Elements: []address.QualifiedName{{Namespace: 2, Name: "Plant"}, {Namespace: 3, Name: "Level"}},
	}
	bp := toUABrowsePath(p)
	require.Equal(uint32(85), bp.StartingNode.IntID())
	require.Len(bp.RelativePath.Elements, 2)
	require.Equal(uint16(3), bp.RelativePath.Elements[1].TargetName.NamespaceIndex)
	require.Equal("Level", bp.RelativePath.Elements[1].TargetName.Name)
	require.True(bp.RelativePath.Elements[0].IncludeSubtypes)
}

func TestVariantConversion(t *testing.T) {
	require := require.New(t)

	t.Run("scalars and arrays", func(t *testing.T) {
		for _, v := range []uatype.Variant{
			uatype.Scalar(true),
			uatype.Scalar(int16(-7)),
			uatype.Scalar(uint32(42)),
			uatype.Scalar(21.5),
			uatype.Scalar("running"),
			uatype.Array([]float32{1, 2, 3}),
		} {
			uv, err := toUAVariant(v)
			require.NoError(err)
			back := fromUAVariant(uv)
			require.Equal(v.Type(), back.Type(), v.String())
			require.Equal(v.IsArray(), back.IsArray(), v.String())
			require.Equal(v.Value(), back.Value(), v.String())
		}
	})

	t.Run("opaque types", func(t *testing.T) {
		now := time.Now()
		v := fromUAVariant(ua.MustVariant(now))
		require.Equal(uatype.TypeDateTime, v.Type())
		require.False(v.IsArray())

		bs := fromUAVariant(ua.MustVariant([]byte{1, 2}))
		require.Equal(uatype.TypeByteString, bs.Type())
		require.False(bs.IsArray())

		_, err := toUAVariant(v)
		require.Error(err)
	})

	t.Run("null", func(t *testing.T) {
		require.True(fromUAVariant(nil).IsNull())
	})
}

func TestDataValueConversion(t *testing.T) {
	require := require.New(t)

	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	dv := fromUADataValue(&ua.DataValue{
		Value:           ua.MustVariant(int32(1500)),
		Status:          ua.StatusBadNodeIDUnknown,
		SourceTimestamp: ts,
	})
	require.Equal(uatype.StatusCode(ua.StatusBadNodeIDUnknown), dv.Status)
	require.Equal(ts, dv.SourceTimestamp)
	require.Equal(int32(1500), dv.Value.Value())

	require.Equal(uatype.StatusBadUnexpectedError, fromUADataValue(nil).Status)

	require.Equal(ua.AttributeIDUserAccessLevel, toUAAttribute(bridge.AttributeUserAccessLevel))
	require.Equal(ua.AttributeIDValue, toUAAttribute(bridge.AttributeValue))
}

func TestConfig(t *testing.T) {
	require := require.New(t)

	_, err := New(Config{}, nil)
	require.EqualError(err, "empty endpoint")

	_, err = New(Config{Endpoint: "opc.tcp://plc:4840", CertFile: "cert.pem"}, nil)
	require.EqualError(err, "certificate and key must be given together")

	c, err := New(Config{Endpoint: "opc.tcp://plc:4840"}, nil)
	require.NoError(err)
	require.Equal("None", c.cfg.SecurityPolicy)
	require.Equal(10*time.Second, c.cfg.RequestTimeout)
	require.NotEmpty(c.cfg.SessionName)
	require.Len(c.cfg.options(), 7)

	_, err = c.Read(t.Context(), []address.NodeID{address.NewNumericNodeID(2, 1)}, bridge.AttributeValue)
	require.ErrorIs(err, ErrNotConnected)
	require.ErrorIs(c.WriteAsync(address.NewNumericNodeID(2, 1), uatype.Scalar(int32(1)), 0), ErrNotConnected)
	require.NoError(c.Disconnect(t.Context()))
}

func TestTranslateResults(t *testing.T) {
	require := require.New(t)

	l := logger.NewMockLogger().Allow()
	c, err := New(Config{Endpoint: "opc.tcp://plc:4840"}, l)
	require.NoError(err)

	paths := []address.BrowsePath{
		{Start: address.ObjectsFolder, Elements: []address.QualifiedName{{Namespace: 2, Name: "Temperature"}}},
		{Start: address.ObjectsFolder, Elements: []address.QualifiedName{{Namespace: 2, Name: "Missing"}}},
		{Start: address.ObjectsFolder, Elements: []address.QualifiedName{{Namespace: 2, Name: "Recipe"}}},
	}
	resp := &ua.TranslateBrowsePathsToNodeIDsResponse{
		Results: []*ua.BrowsePathResult{
			{
				StatusCode: ua.StatusOK,
				Targets: []*ua.BrowsePathTarget{
					{TargetID: &ua.ExpandedNodeID{NodeID: ua.NewStringNodeID(2, "Temperature")}},
				},
			},
			{StatusCode: ua.StatusBadNoMatch},
			{
				StatusCode: ua.StatusOK,
				Targets: []*ua.BrowsePathTarget{
					{TargetID: nil},
					{TargetID: &ua.ExpandedNodeID{NodeID: ua.NewGUIDNodeID(2, "72962B91-FA75-4AE6-8D28-B404DC7DAF63")}},
					{TargetID: &ua.ExpandedNodeID{NodeID: ua.NewNumericNodeID(2, 1042)}},
				},
			},
		},
	}

	results, err := c.translateResults(resp, paths)
	require.NoError(err)
	require.Len(results, 3)
	require.Equal(uatype.StatusGood, results[0].Status)
	require.Equal([]address.NodeID{address.NewStringNodeID(2, "Temperature")}, results[0].Targets)
	require.Equal(uatype.StatusCode(ua.StatusBadNoMatch), results[1].Status)
	require.Empty(results[1].Targets)
	require.Equal([]address.NodeID{address.NewNumericNodeID(2, 1042)}, results[2].Targets)
	require.Contains(l.Messages("Warn"), "unsupported translate target")

	_, err = c.translateResults(&ua.ReadResponse{}, paths)
	require.ErrorContains(err, "unexpected response *ua.ReadResponse")
}
