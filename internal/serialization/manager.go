package serialization

import (
	"fmt"
	"sync"

	"github.com/nm-morais/go-por/pkg/errors"
	"github.com/nm-morais/go-por/pkg/message"
)

const caller = "SerializationManager"

type Manager struct {
	serializers   *sync.Map
	deserializers *sync.Map
}

func NewSerializationManager() *Manager {
	return &Manager{
		serializers:   &sync.Map{},
		deserializers: &sync.Map{},
	}
}

func (m *Manager) GetDeserializer(id message.ID) (message.Deserializer, bool) {
	deserializer, ok := m.deserializers.Load(id)
	if !ok {
		return nil, false
	}
	return deserializer.(message.Deserializer), true
}

func (m *Manager) GetSerializer(id message.ID) (message.Serializer, bool) {
	serializer, ok := m.serializers.Load(id)
	if !ok {
		return nil, false
	}
	return serializer.(message.Serializer), true
}

func (m *Manager) RegisterDeserializer(id message.ID, deserializer message.Deserializer) {
	m.deserializers.Store(id, deserializer)
}

func (m *Manager) RegisterSerializer(id message.ID, serializer message.Serializer) {
	m.serializers.Store(id, serializer)
}

// Deserialize fails with an UnknownTag decode error when nothing is
// registered for id.
func (m *Manager) Deserialize(id message.ID, bytes []byte) (message.Message, error) {
	deserializer, ok := m.GetDeserializer(id)
	if !ok {
		return nil, errors.NewDecodeError(errors.UnknownTag, caller, "", fmt.Sprintf("no deserializer for message tag %d", id))
	}
	return deserializer.Deserialize(bytes)
}

func (m *Manager) Serialize(msg message.Message) ([]byte, error) {
	if msg == nil {
		return nil, errors.FatalError(400, "cannot serialize nil message", caller)
	}
	serializer, ok := m.GetSerializer(msg.Type())
	if !ok {
		return nil, errors.FatalError(404, fmt.Sprintf("no serializer for message tag %d", msg.Type()), caller)
	}
	return serializer.Serialize(msg)
}
