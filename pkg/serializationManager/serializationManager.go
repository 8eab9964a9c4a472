package serializationManager

import "github.com/nm-morais/go-por/pkg/message"

type SerializationManager interface {
	RegisterDeserializer(id message.ID, deserializer message.Deserializer)
	RegisterSerializer(id message.ID, serializer message.Serializer)
	Deserialize(id message.ID, bytes []byte) (message.Message, error)
	Serialize(message message.Message) ([]byte, error)
}
