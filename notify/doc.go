// Package notify provides goIdentity.NotificationSender implementations.
//
// KafkaSender publishes each code as a JSON event for a separate delivery
// service (email/SMS gateway) to consume. LogSender writes codes to a zap
// logger and is meant for local development only.
package notify
