package statemachine

import (
	"fmt"
	"strings"

	"foodhub/models"
)

// Actors allowed to drive a transition
const (
	ActorRestaurant = "restaurant"
	ActorCustomer   = "customer"
	ActorGateway    = "gateway"
	ActorSystem     = "system"
)

// Transition defines a valid state change and who can perform it
type Transition struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Actor string `json:"actor"`
}

type transitionKey struct {
	From, To, Actor string
}

// Machine is an immutable transition table with O(1) validation.
type Machine struct {
	name        string
	transitions []Transition
	lookup      map[transitionKey]bool
}

// New builds a machine from its authoritative transition list
func New(name string, transitions []Transition) *Machine {
	m := &Machine{
		name:        name,
		transitions: transitions,
		lookup:      make(map[transitionKey]bool, len(transitions)),
	}
	for _, t := range transitions {
		m.lookup[transitionKey{t.From, t.To, t.Actor}] = true
	}
	return m
}

// Name identifies the lifecycle the machine describes
func (m *Machine) Name() string { return m.name }

// ValidTransitionsFrom returns all distinct next states from a given state
func (m *Machine) ValidTransitionsFrom(state string) []string {
	var nexts []string
	seen := map[string]bool{}
	for _, t := range m.transitions {
		if t.From == state && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

// CanTransition checks if a given actor can move from one state to another
func (m *Machine) CanTransition(from, to, actor string) error {
	if m.lookup[transitionKey{from, to, actor}] {
		return nil
	}
	return fmt.Errorf("invalid %s transition: %s -> %s is not allowed for actor %q; valid transitions from %s: %s",
		m.name, from, to, actor, from, m.describeValidFrom(from))
}

func (m *Machine) describeValidFrom(state string) string {
	nexts := m.ValidTransitionsFrom(state)
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	return strings.Join(nexts, ", ")
}

// Transitions returns a copy of the full table for documentation
func (m *Machine) Transitions() []Transition {
	out := make([]Transition, len(m.transitions))
	copy(out, m.transitions)
	return out
}

// Order documents the fulfilment lifecycle. Checkout only ever produces
// PENDING; the exits exist for owner tooling that is not wired up.
var Order = New("order", []Transition{
	{From: string(models.OrderPending), To: string(models.OrderAccepted), Actor: ActorRestaurant},
	{From: string(models.OrderPending), To: string(models.OrderRejected), Actor: ActorRestaurant},
	{From: string(models.OrderPending), To: string(models.OrderCancelled), Actor: ActorCustomer},
	{From: string(models.OrderPending), To: string(models.OrderCancelled), Actor: ActorRestaurant},
	{From: string(models.OrderPending), To: string(models.OrderCompleted), Actor: ActorRestaurant},
	{From: string(models.OrderAccepted), To: string(models.OrderCompleted), Actor: ActorRestaurant},
})

// Payment is the lifecycle of a single payment attempt.
var Payment = New("payment", []Transition{
	{From: string(models.PaymentPending), To: string(models.PaymentSucceeded), Actor: ActorGateway},
	{From: string(models.PaymentPending), To: string(models.PaymentFailed), Actor: ActorGateway},
	{From: string(models.PaymentSucceeded), To: string(models.PaymentRefunded), Actor: ActorSystem},
})
