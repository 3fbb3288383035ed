// Package sip turns byte streams into SIP messages and delivers them to a consumer
// in per-call order.
//
// The pipeline of a connection is:
//
//	bytes -> Framer -> RawMessage -> Dispatcher -> ParseRaw -> Consumer.DeliverMessage
//
// [Framer] finds message boundaries in a stream or in arbitrarily split chunks.
// [Dispatcher] groups raw messages by Call-ID: messages of the same call are parsed and
// delivered one after another in arrival order, while different calls are processed
// in parallel on a shared [Executor].
// [ServeConn], [ChunkSession], [Listener] and [GnetServer] compose both for
// stream-oriented and event-driven connections.
package sip

//go:generate go tool errtrace -w .
//go:generate go tool mockgen -destination=../internal/testutil/sipmock/consumer.go -package=sipmock . Consumer,Interceptor
//go:generate go tool mockgen -destination=../internal/testutil/netmock/listener.go -package=netmock net Listener
