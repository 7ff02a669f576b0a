// Package ws carries report envelopes to remote observers over websockets.
//
// The server side hands each connected observer an Outbound channel: sends
// are queued and written in order by a single write pump, so a reporter
// never waits on the network. The client side (Dial, Inbound) is used by
// the observe command to receive and render a remote run.
package ws
