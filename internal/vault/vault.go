// Package vault implements the vault bank: one vault per external resource
// address (LSU kinds, unstake-receipt kinds), created lazily on first use,
// per spec.md §4.6/§5. A vault holds either a fungible balance (an LSU
// resource) or a set of non-fungible ids (an unstake-receipt resource); a
// given resource address is only ever used as one or the other.
package vault

import (
	"fmt"

	"github.com/liquify/liquify-engine/internal/money"
)

// Vault is a single resource's holdings inside the bank.
type Vault struct {
	Resource string
	fungible money.Amount
	nfts     map[uint64]struct{}
}

func newVault(resource string) *Vault {
	return &Vault{Resource: resource, fungible: money.Zero, nfts: make(map[uint64]struct{})}
}

// Balance returns the fungible balance held (zero for an NFT vault).
func (v *Vault) Balance() money.Amount { return v.fungible }

// Holds reports whether NFT id is currently in this vault.
func (v *Vault) Holds(id uint64) bool {
	_, ok := v.nfts[id]
	return ok
}

// NFTCount returns the number of NFTs currently held.
func (v *Vault) NFTCount() int { return len(v.nfts) }

// Bank is the collection of per-resource vaults, the "vault bank".
type Bank struct {
	vaults map[string]*Vault
}

// NewBank returns an empty vault bank.
func NewBank() *Bank {
	return &Bank{vaults: make(map[string]*Vault)}
}

func (b *Bank) ensure(resource string) *Vault {
	v, ok := b.vaults[resource]
	if !ok {
		v = newVault(resource)
		b.vaults[resource] = v
	}
	return v
}

// DepositFungible adds amount LSU of resource to its vault, creating the
// vault if this is the first deposit of that resource.
func (b *Bank) DepositFungible(resource string, amount money.Amount) {
	v := b.ensure(resource)
	v.fungible = v.fungible.Add(amount)
}

// WithdrawFungible removes amount LSU of resource from its vault.
func (b *Bank) WithdrawFungible(resource string, amount money.Amount) error {
	v, ok := b.vaults[resource]
	if !ok || v.fungible.LessThan(amount) {
		return fmt.Errorf("vault %s: insufficient balance", resource)
	}
	v.fungible = v.fungible.Sub(amount)
	return nil
}

// DepositNFT places non-fungible id into resource's vault.
func (b *Bank) DepositNFT(resource string, id uint64) {
	v := b.ensure(resource)
	v.nfts[id] = struct{}{}
}

// WithdrawNFT removes non-fungible id from resource's vault.
func (b *Bank) WithdrawNFT(resource string, id uint64) error {
	v, ok := b.vaults[resource]
	if !ok {
		return fmt.Errorf("vault %s: unknown resource", resource)
	}
	if _, ok := v.nfts[id]; !ok {
		return fmt.Errorf("vault %s: nft %d not held", resource, id)
	}
	delete(v.nfts, id)
	return nil
}

// Get returns the vault for resource, and whether it has been created yet.
func (b *Bank) Get(resource string) (*Vault, bool) {
	v, ok := b.vaults[resource]
	return v, ok
}

// Balance reports the total on-hand holdings for resource: the fungible
// balance plus the count of live NFT ids, matching spec.md invariant I3's
// reconciliation (a resource is used exclusively as one kind or the other,
// so at most one of the two terms is ever non-zero in practice).
func (b *Bank) Balance(resource string) (fungible money.Amount, nftCount int) {
	v, ok := b.vaults[resource]
	if !ok {
		return money.Zero, 0
	}
	return v.fungible, len(v.nfts)
}
