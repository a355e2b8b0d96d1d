// Package delivery moves saved meals from the scale to the nutrition
// server.
//
// On the scale, Forwarder hands each saved meal to the gateway over the
// link and keeps the meals that could not be delivered in a durable
// Backlog. On the gateway, Gateway answers link requests and Pipeline
// uploads one document per meal with a bearer token obtained once per
// session. Delivery is at-least-once: a meal is retried until the server
// confirms it, so a crash after the confirmation but before the backlog
// is rewritten sends that meal again.
package delivery
