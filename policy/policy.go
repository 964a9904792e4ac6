// Package policy defines the external contract a policy program must expose
// (spec.md §6) and the discriminator helpers the engine uses to validate
// instruction data against it. The policy programs themselves (`default_policy`
// and `default_rule`) are explicitly out of scope for the core (spec.md §1);
// `defaultpolicy` ships only a minimal reference double for tests.
package policy

import (
	"lazorkit/binding"
	"lazorkit/runtime"
)

// Discriminators for the four entrypoints a policy program must expose.
var (
	CheckPolicyDiscriminator = binding.Discriminator("check_policy")
	InitPolicyDiscriminator  = binding.Discriminator("init_policy")
	DestroyDiscriminator     = binding.Discriminator("destroy")
	AddDeviceDiscriminator   = binding.Discriminator("add_device")
)

// HasDiscriminator reports whether data begins with want.
func HasDiscriminator(data []byte, want [8]byte) bool {
	if len(data) < 8 {
		return false
	}
	return [8]byte(data[:8]) == want
}

// Program is the engine-side view of a registered policy program: just
// another CPI target reached through runtime.Registry. Argument layouts past
// the 8-byte discriminator are owned entirely by the policy (spec.md §6);
// this engine never interprets them.
type Program interface {
	runtime.Invoker
}
