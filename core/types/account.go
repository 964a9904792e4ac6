package types

// SmartWallet is the value-holding account of a wallet (spec.md §3). The host
// runtime's lamport/value accounting is an external collaborator (spec.md
// §1); this engine only tracks the balance it needs to check fee affordability
// and perform native transfers in the `runtime` package's simulation.
type SmartWallet struct {
	Address [32]byte
	Balance uint64
}

// SmartWalletData is the sibling configuration record for a SmartWallet.
type SmartWalletData struct {
	WalletID      uint64
	PolicyProgram [32]byte
	LastNonce     uint64
	Bump          uint8
}
