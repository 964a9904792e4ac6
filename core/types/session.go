package types

// TransactionSession is the ephemeral record created by commit_cpi and
// redeemed (or expired) by execute_committed (spec.md §3, §4.10). Per
// spec.md §9's resolution of the CpiCommit/TransactionSession naming split,
// only this type is implemented.
type TransactionSession struct {
	OwnerWallet      [32]byte
	DataHash         [32]byte
	AccountsHash     [32]byte
	AuthorizedNonce  uint64
	ExpiresAt        uint64
	RentRefundTo     [32]byte
}
