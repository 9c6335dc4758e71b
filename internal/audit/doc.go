// Package audit dispatches security events asynchronously to a Sink.
//
// Sinks shipped here: NoOpSink, ChannelSink (tests), JSONWriterSink (one JSON
// object per line), ZapSink (structured log entries) and MultiSink, which
// fans out to several. The Dispatcher is a buffered relay on one worker
// goroutine that either drops or blocks when the buffer is full; a sink
// panic is logged and costs only that event.
//
// The engine decides which events exist; this package never filters them.
package audit
