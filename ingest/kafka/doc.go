// Package kafka consumes SIRI entity batches from Kafka topics and
// feeds them into the kind repositories. Each topic carries one kind;
// messages are JSON envelopes naming the producing codespace.
package kafka
