package redis

import (
	"strings"
)

const (
	urnPrefix      = "urn:"
	idsPrefix      = "ids:"
	sequencePrefix = "seq:"

	defaultClusterTag = "typedredis"
)

func namespaced(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + ":" + name
}

// clusterNamespace wraps namespace in a hash tag so every key a client
// derives hashes to the same cluster slot. Multi-key commands and MULTI/EXEC
// blocks are rejected with CROSSSLOT otherwise. An empty namespace has no
// tag of its own, so a fixed one is used.
func clusterNamespace(namespace string) string {
	if namespace == "" {
		namespace = defaultClusterTag
	}
	return "{" + namespace + "}"
}

// KeyNamer derives the keys used to store entities of one kind:
//
//	<namespace>:urn:<kind>:<id>   the encoded entity
//	<namespace>:ids:<Kind>        set of every stored id
//	<namespace>:seq:<Kind>        sequence counter
type KeyNamer struct {
	namespace string
	kind      string
}

func NewKeyNamer(namespace, kind string) KeyNamer {
	return KeyNamer{namespace: namespace, kind: kind}
}

func (k KeyNamer) Kind() string {
	return k.kind
}

// Key prefixes name with the namespace.
func (k KeyNamer) Key(name string) string {
	return namespaced(k.namespace, name)
}

func (k KeyNamer) URN(id string) string {
	return k.Key(urnPrefix + strings.ToLower(k.kind) + ":" + id)
}

func (k KeyNamer) URNs(ids []string) []string {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, k.URN(id))
	}
	return keys
}

func (k KeyNamer) IDsKey() string {
	return k.Key(idsPrefix + k.kind)
}

func (k KeyNamer) SequenceKey() string {
	return k.Key(sequencePrefix + k.kind)
}
