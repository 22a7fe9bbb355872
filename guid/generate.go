package guid

import (
	"strings"

	"github.com/google/uuid"
)

// autoBase namespaces every generated GUID so that generated IDs never
// collide with name-based UUIDs produced for other purposes.
var autoBase = New(0x4449494C, 0xDE1F, 0x4525, [8]byte{0xB9, 0x57, 0x89, 0xD6, 0x0C, 0xE9, 0x34, 0x77})

// Generate derives a GUID from key with a SHA-1 name-based hash (RFC 4122
// version 5). The same key always yields the same GUID, which keeps
// registrations stable across rebuilds.
func Generate(key string) GUID {
	return FromUUID(uuid.NewSHA1(autoBase.UUID(), []byte(key)))
}

// NewRandom returns a random (version 4) GUID.
func NewRandom() GUID {
	return FromUUID(uuid.New())
}

// GenerateIID derives the IID of one type-system variant of an interface.
func GenerateIID(library, item, typeSystem string) GUID {
	return Generate(joinKey("IID", library, item, strings.ToLower(typeSystem)))
}

// GenerateCLSID derives a class ID.
func GenerateCLSID(library, class string) GUID {
	return Generate(joinKey("CLSID", library, class))
}

// GenerateLIBID derives a type library ID.
func GenerateLIBID(library string) GUID {
	return Generate(joinKey("LIBID", library))
}

func joinKey(parts ...string) string {
	return strings.Join(parts, ":")
}
