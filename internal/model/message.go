package model

// Body is the payload of a one-way message.
type Body interface {
	Kind() string
}

// Message is delivered to To on behalf of From. Results never flow back
// on the same message; a callee answers with a new message.
type Message struct {
	From Address
	To   Address
	Body Body
}

// Event is a body that is journaled instead of delivered.
type Event interface {
	Body
	EventName() string
}
