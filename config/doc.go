// Package config loads the YAML description of sessions, subscriptions and items and
// bootstraps a session.Registry from it.
//
// A configuration file looks like:
//
//	sessions:
//	  - tag: plc
//	    endpoint: opc.tcp://plc.local:4840
//	    reconnect_interval: 5s
//	    subscriptions:
//	      - tag: fast
//	        publishing_interval: 100ms
//	items:
//	  - name: tank:temp
//	    tag: fast
//	    address: "2,Tank.Temperature"
//	    type: Float64
//	  - name: tank:setpoint
//	    link: "fast;ns=2;s=Tank.Setpoint"
//	    type: Float64
//	    direction: out
//	    rdbkoff: true
//
// All items of a session must use the same address class, link items are node id addresses.
//
// Build is best effort: a session, subscription or item that can't be created is skipped and
// its error is returned joined with the others, the rest of the configuration proceeds.
package config
