package state

// Key prefixes for every persisted record in the §3 data model. Kept as a
// flat var block the way the teacher's own prefixes.go enumerates its
// keyspace, just scoped to this engine's much smaller set of account kinds.
var (
	configKey         = []byte("lazorkit/config")
	registryKey       = []byte("lazorkit/registry")
	smartWalletPrefix = []byte("lazorkit/wallet/")
	walletDataPrefix  = []byte("lazorkit/walletdata/")
	devicePrefix      = []byte("lazorkit/device/")
	sessionPrefix     = []byte("lazorkit/session/")
)
