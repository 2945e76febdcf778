// Package messaging publishes events to a broker without tying callers to a
// specific one. NATS, NSQ, Kafka and Google Pub/Sub are supported; Memory
// keeps messages in process for tests and for deployments without a broker.
package messaging
