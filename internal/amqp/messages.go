package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// RefreshScope names the slice of cached data a refresh message invalidates.
type RefreshScope string

const (
	// ScopeAccount asks for a single account's aggregates to be recomputed.
	ScopeAccount RefreshScope = "account"
	// ScopeDestinations asks for all destination balances to be recomputed.
	ScopeDestinations RefreshScope = "destinations"
	// ScopeCategories asks for the category directory to be reloaded.
	ScopeCategories RefreshScope = "categories"
)

func (s RefreshScope) Valid() bool {
	switch s {
	case ScopeAccount, ScopeDestinations, ScopeCategories:
		return true
	}
	return false
}

// RefreshMessage is a lightweight invalidation event. It carries no data,
// only what became stale; consumers refetch from the backend themselves.
type RefreshMessage struct {
	Scope     RefreshScope `json:"scope"`
	AccountID string       `json:"account_id,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

func NewRefreshMessage(scope RefreshScope, accountID string) *RefreshMessage {
	return &RefreshMessage{
		Scope:     scope,
		AccountID: accountID,
		Timestamp: time.Now(),
	}
}

func (m *RefreshMessage) Validate() error {
	if !m.Scope.Valid() {
		return fmt.Errorf("unknown refresh scope %q", m.Scope)
	}
	if m.Scope == ScopeAccount && m.AccountID == "" {
		return fmt.Errorf("account scope requires an account id")
	}
	return nil
}

func (m *RefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RefreshMessageFromJSON(data []byte) (*RefreshMessage, error) {
	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
