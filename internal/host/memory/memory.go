// Package memory provides an in-memory implementation of host.Host.
package memory

import (
	"context"
	"fmt"
	"github.com/clambin/smarterzones/internal/host"
	"sync"
)

var _ host.Host = &Store{}

// Store keeps the state and attributes of a set of entities in memory. Changes made through SetState, SetAttribute
// or Command are reported to subscribers.
//
// By default, Command applies the command to the stored state (i.e. turn_on sets the entity's state to "on").
// If Executor is set, the command is passed to Executor instead and the store is left untouched.
type Store struct {
	Executor      func(context.Context, host.Command) error
	entities      map[string]*entity
	subscriptions map[subscription][]host.Callback
	commands      []host.Command
	commandErr    error
	lock          sync.Mutex
}

type entity struct {
	attributes map[string]string
	state      string
}

type subscription struct {
	entityID  string
	attribute string
}

type notification struct {
	callbacks []host.Callback
	event     host.Event
}

func New() *Store {
	return &Store{
		entities:      make(map[string]*entity),
		subscriptions: make(map[subscription][]host.Callback),
	}
}

func (s *Store) ReadState(_ context.Context, entityID string) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	e, ok := s.entities[entityID]
	if !ok {
		return "", fmt.Errorf("%s: %w", entityID, host.ErrNotFound)
	}
	return e.state, nil
}

func (s *Store) ReadAttribute(_ context.Context, entityID, attribute string) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	e, ok := s.entities[entityID]
	if !ok {
		return "", fmt.Errorf("%s: %w", entityID, host.ErrNotFound)
	}
	value, ok := e.attributes[attribute]
	if !ok {
		return "", fmt.Errorf("%s[%s]: %w", entityID, attribute, host.ErrNotFound)
	}
	return value, nil
}

func (s *Store) Subscribe(entityID, attribute string, callback host.Callback) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	key := subscription{entityID: entityID, attribute: attribute}
	s.subscriptions[key] = append(s.subscriptions[key], callback)
	return nil
}

// SetState sets the state of an entity, creating it if needed. Subscribers are notified if the state changed.
func (s *Store) SetState(entityID, state string) {
	s.lock.Lock()
	n := s.setState(entityID, state)
	s.lock.Unlock()
	n.notify()
}

func (s *Store) setState(entityID, state string) notification {
	e := s.getOrCreate(entityID)
	old := e.state
	e.state = state
	if old == state {
		return notification{}
	}
	return notification{
		callbacks: s.subscriptions[subscription{entityID: entityID}],
		event:     host.Event{EntityID: entityID, Old: old, New: state},
	}
}

// SetAttribute sets an attribute of an entity, creating the entity if needed. Subscribers are notified if the attribute changed.
func (s *Store) SetAttribute(entityID, attribute, value string) {
	s.lock.Lock()
	n := s.setAttribute(entityID, attribute, value)
	s.lock.Unlock()
	n.notify()
}

func (s *Store) setAttribute(entityID, attribute, value string) notification {
	e := s.getOrCreate(entityID)
	old, ok := e.attributes[attribute]
	e.attributes[attribute] = value
	if ok && old == value {
		return notification{}
	}
	return notification{
		callbacks: s.subscriptions[subscription{entityID: entityID, attribute: attribute}],
		event:     host.Event{EntityID: entityID, Attribute: attribute, Old: old, New: value},
	}
}

func (s *Store) getOrCreate(entityID string) *entity {
	e, ok := s.entities[entityID]
	if !ok {
		e = &entity{attributes: make(map[string]string)}
		s.entities[entityID] = e
	}
	return e
}

// Remove deletes an entity. Subsequent reads return host.ErrNotFound.
func (s *Store) Remove(entityID string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.entities, entityID)
}

// Command records the command and applies it (or passes it to Executor, if set).
func (s *Store) Command(ctx context.Context, command host.Command) error {
	s.lock.Lock()
	s.commands = append(s.commands, command)
	if s.commandErr != nil {
		err := s.commandErr
		s.lock.Unlock()
		return err
	}
	if s.Executor != nil {
		s.lock.Unlock()
		return s.Executor(ctx, command)
	}
	if _, ok := s.entities[command.EntityID]; !ok {
		s.lock.Unlock()
		return fmt.Errorf("%s: %w", command.EntityID, host.ErrNotFound)
	}

	var n notification
	switch command.Kind {
	case host.TurnOn:
		n = s.setState(command.EntityID, "on")
	case host.TurnOff:
		n = s.setState(command.EntityID, "off")
	case host.SetHVACMode:
		n = s.setState(command.EntityID, command.Params["hvac_mode"])
	case host.SetFanMode:
		n = s.setAttribute(command.EntityID, "fan_mode", command.Params["fan_mode"])
	case host.SetTemperature:
		n = s.setAttribute(command.EntityID, "temperature", command.Params["temperature"])
	default:
		s.lock.Unlock()
		return fmt.Errorf("unsupported command: %s", command.Kind)
	}
	s.lock.Unlock()
	n.notify()
	return nil
}

// Commands returns all commands received so far.
func (s *Store) Commands() []host.Command {
	s.lock.Lock()
	defer s.lock.Unlock()
	commands := make([]host.Command, len(s.commands))
	copy(commands, s.commands)
	return commands
}

// ResetCommands clears the list of received commands.
func (s *Store) ResetCommands() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.commands = s.commands[:0]
}

// RejectCommands makes all subsequent commands fail with err. Passing nil accepts commands again.
func (s *Store) RejectCommands(err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.commandErr = err
}

func (n notification) notify() {
	for _, callback := range n.callbacks {
		callback(n.event)
	}
}
