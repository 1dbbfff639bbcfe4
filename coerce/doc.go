// Package coerce converts values between local fixed-width slots and remote variants.
//
// ToLocal and ToRemote perform conversions with range checks: an out-of-range numeric
// cast, an unparsable string or an array longer than the slot capacity is an error for
// that single conversion. CheckDataLoss is a separate advisory that classifies a
// local/remote type pair without converting anything; sessions log its result once after
// every (re)connect.
package coerce
