// Package chat implements the conversation domain: conversations and their
// messages, scripted conversation flows, the chatbot configuration, and the
// reply service that routes a visitor message either to a matched flow or
// to the AI provider behind the circuit breaker and retry policy.
package chat
