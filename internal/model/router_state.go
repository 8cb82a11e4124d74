package model

// PairInfo describes the two tokens of a registered exchange.
type PairInfo struct {
	Token1 TokenRef `json:"token1"`
	Token2 TokenRef `json:"token2"`
}

// Lookup returns the side of the pair matching ledger and token id.
func (p PairInfo) Lookup(ledger Address, tokenID uint64) (TokenRef, bool) {
	switch {
	case p.Token1.Is(ledger, tokenID):
		return p.Token1, true
	case p.Token2.Is(ledger, tokenID):
		return p.Token2, true
	default:
		return TokenRef{}, false
	}
}

// RouterState is the router's single persisted record. Route and
// PendingRecipient are set exactly when Locked is true.
type RouterState struct {
	Locked           bool                 `json:"locked"`
	Paused           bool                 `json:"paused"`
	Route            Route                `json:"route,omitempty"`
	CurrentIndex     int                  `json:"current_index"`
	PendingRecipient *Address             `json:"pending_recipient,omitempty"`
	Admins           map[Address]bool     `json:"admins"`
	Exchanges        map[Address]PairInfo `json:"exchanges"`
}

// NewRouterState returns an idle state administered by admins.
func NewRouterState(admins ...Address) RouterState {
	st := RouterState{
		Admins:    make(map[Address]bool, len(admins)),
		Exchanges: make(map[Address]PairInfo),
	}
	for _, a := range admins {
		st.Admins[a] = true
	}
	return st
}

// Clone deep-copies the state.
func (s RouterState) Clone() RouterState {
	out := s
	out.Route = s.Route.Clone()
	if s.PendingRecipient != nil {
		r := *s.PendingRecipient
		out.PendingRecipient = &r
	}
	out.Admins = make(map[Address]bool, len(s.Admins))
	for k, v := range s.Admins {
		out.Admins[k] = v
	}
	out.Exchanges = make(map[Address]PairInfo, len(s.Exchanges))
	for k, v := range s.Exchanges {
		out.Exchanges[k] = v
	}
	return out
}

// CurrentHop returns the hop being executed. ok is false when idle.
func (s RouterState) CurrentHop() (Hop, bool) {
	if !s.Locked || s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Route) {
		return Hop{}, false
	}
	return s.Route[s.CurrentIndex], true
}

// Reset returns the state to idle.
func (s *RouterState) Reset() {
	s.Locked = false
	s.Route = nil
	s.CurrentIndex = 0
	s.PendingRecipient = nil
}
