// Package address parses symbolic item addresses and resolves them to node ids.
//
// Two address forms are accepted, selected by the delimiter after the leading namespace:
//
//	2,Pump.Speed       node id: namespace 2, string identifier "Pump.Speed"
//	2,1042             node id: namespace 2, numeric identifier 1042
//	2:Pump.Speed       browse path from the Objects folder: 2:Pump / 2:Speed
//	2:Plant.3:Tank.Lvl browse path with a namespace switch: 2:Plant / 3:Tank / 3:Lvl
//
// Node id addresses are resolved locally. Browse paths are translated by the server; all
// browse paths of a session are sent in a single request per (re)connect.
//
// ParseLink additionally accepts the legacy link form "TAG;ns=2;s=Pump.Speed" or
// "TAG;ns=2;i=1042" which carries the owning session/subscription tag.
package address
