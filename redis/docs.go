// Package redis provides typed views over a go-redis client.
//
// A Client owns the connection pool and the settings shared by the views
// created from it: the key namespace, the bulk batch size and the cached
// server version. TypedClient[T] stores values of one kind:
//
//   - Entities implementing HasID are kept under urn:<kind>:<id> with their
//     ids recorded in the set ids:<Kind>. Store, GetByID, GetAll, Update and
//     DeleteAll work from these keys.
//   - Plain values, counters and the per kind sequence are addressed by name.
//   - Lists, Sets, SortedSets and GetHash return collection facades that
//     encode every element with the codec of the typed client.
//
// # Pipelines and transactions
//
// CreatePipeline and CreateTransaction return a command queue. Queueing only
// records the command; nothing is sent until Flush or Commit, which send the
// whole queue in one round trip and then run the callbacks in queue order.
// A transaction wraps the batch in MULTI/EXEC. A transaction that is closed
// without Commit, including by a panic unwinding past a deferred Close, is
// discarded and leaves no writes behind. Replay sends the recorded queue
// again against the current server state.
//
// # Bulk operations
//
// DeleteAll pages through the id set with SSCAN and never sends more than
// KeysBatchSize keys in one DEL.
package redis
